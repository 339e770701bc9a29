package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
)

// DBExecutor runs the write transactions that wrap each webhook and hook.
type DBExecutor struct {
	pool *pgxpool.Pool
}

// NewDBExecutor wraps pool
func NewDBExecutor(pool *pgxpool.Pool) *DBExecutor {
	return &DBExecutor{pool: pool}
}

// GetDB returns the pool
func (db *DBExecutor) GetDB() *pgxpool.Pool {
	return db.pool
}

// WithTransaction runs fn in a read-committed transaction. Orders read
// through the tx are row-locked, so concurrent deliveries touching the same
// order apply one after the other. A panic in fn rolls back and re-panics.
func (db *DBExecutor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		observability.RecordDBTransaction("failed")
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// rollback must outlive a cancelled request context
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if p := recover(); p != nil {
			observability.RecordDBTransaction("rolled_back")
			panic(p)
		}
		observability.RecordDBTransaction("rolled_back")
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	observability.RecordDBTransaction("committed")
	return nil
}

// executor picks the caller's transaction when given one, else the pool.
func executor(db ports.DBTX, pool *pgxpool.Pool) ports.DBTX {
	if db != nil {
		return db
	}
	return pool
}

// selectFor returns the locking variant of a query when running inside a
// transaction. Pool reads stay lock-free.
func selectFor(db ports.DBTX, plain, locking string) string {
	if _, ok := db.(pgx.Tx); ok {
		return locking
	}
	return plain
}
