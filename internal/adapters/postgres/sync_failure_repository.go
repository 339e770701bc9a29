package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
)

const (
	insertSyncFailureSQL = `
INSERT INTO sync_failures (id, order_id, refund_id, operation, error)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`

	listUnresolvedSyncFailuresSQL = `
SELECT id, order_id, refund_id, operation, error, attempts, created_at, resolved_at
FROM sync_failures
WHERE resolved_at IS NULL
ORDER BY created_at
LIMIT $1`

	resolveSyncFailureSQL = `UPDATE sync_failures SET resolved_at = NOW() WHERE id = $1`

	bumpSyncFailureSQL = `UPDATE sync_failures SET attempts = attempts + 1, error = $2 WHERE id = $1`
)

// SyncFailureRepository journals outbound sync failures
type SyncFailureRepository struct {
	pool *pgxpool.Pool
}

// NewSyncFailureRepository creates a new sync failure repository
func NewSyncFailureRepository(db ports.DBPort) *SyncFailureRepository {
	return &SyncFailureRepository{pool: db.GetDB()}
}

// Record stores a failure and sets its ID
func (r *SyncFailureRepository) Record(ctx context.Context, f *domain.SyncFailure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, insertSyncFailureSQL, f.ID, f.OrderID, f.RefundID, f.Operation, f.Error).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("record sync failure for order %d: %w", f.OrderID, err)
	}
	f.Attempts = 1
	return nil
}

// ListUnresolved returns the oldest unresolved failures
func (r *SyncFailureRepository) ListUnresolved(ctx context.Context, limit int) ([]*domain.SyncFailure, error) {
	rows, err := r.pool.Query(ctx, listUnresolvedSyncFailuresSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync failures: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.SyncFailure, error) {
		var (
			f          domain.SyncFailure
			resolvedAt pgtype.Timestamptz
		)
		if err := row.Scan(&f.ID, &f.OrderID, &f.RefundID, &f.Operation, &f.Error,
			&f.Attempts, &f.CreatedAt, &resolvedAt); err != nil {
			return nil, err
		}
		f.ResolvedAt = timestamptzPtr(resolvedAt)
		return &f, nil
	})
}

// MarkResolved closes a failure after a successful resync
func (r *SyncFailureRepository) MarkResolved(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, resolveSyncFailureSQL, id); err != nil {
		return fmt.Errorf("resolve sync failure %s: %w", id, err)
	}
	return nil
}

// IncrementAttempts records another failed resync
func (r *SyncFailureRepository) IncrementAttempts(ctx context.Context, id string, lastError string) error {
	if _, err := r.pool.Exec(ctx, bumpSyncFailureSQL, id, lastError); err != nil {
		return fmt.Errorf("bump sync failure %s: %w", id, err)
	}
	return nil
}
