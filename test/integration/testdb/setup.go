// Package testdb provisions the Postgres database used by repository and
// service integration tests.
package testdb

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/kevin07696/poynt-sync-service/internal/config"
	"github.com/kevin07696/poynt-sync-service/internal/db/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// tables truncated between tests, children first
var tables = []string{"sync_failures", "webhook_deliveries", "order_notes", "refund_items", "order_meta", "order_items", "orders"}

// URL returns TEST_DATABASE_URL, or a DSN assembled from the TEST_DB_*
// variables pointing at the docker-compose test instance.
func URL() string {
	if u := os.Getenv("TEST_DATABASE_URL"); u != "" {
		return u
	}
	port, err := strconv.Atoi(env("TEST_DB_PORT", "5434"))
	if err != nil {
		port = 5434
	}
	cfg := config.DatabaseConfig{
		Host:     env("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     env("TEST_DB_USER", "postgres"),
		Password: env("TEST_DB_PASSWORD", "postgres"),
		Name:     env("TEST_DB_NAME", "poynt_sync_test"),
		SSLMode:  "disable",
	}
	return cfg.URL()
}

// SetupTestDB migrates and truncates the test database and returns a pool
// closed at test cleanup. Skips in -short mode or when Postgres is down.
func SetupTestDB(t testing.TB) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(URL())
	require.NoError(t, err, "parse test database url")
	poolConfig.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, migrate(pool), "apply migrations")
	Truncate(t, pool)
	return pool
}

// Truncate empties every table and resets identities.
func Truncate(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
			t.Logf("truncate %s: %v", table, err)
		}
	}
}

func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
