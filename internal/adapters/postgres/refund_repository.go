package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
)

const (
	insertRefundSQL = `
INSERT INTO orders (object_type, parent_id, status, currency, total, payment_method, reason, restock)
SELECT 'refund', o.id, 'completed', o.currency, $2, $3, $4, $5
FROM orders o
WHERE o.id = $1 AND o.object_type = 'order'
RETURNING id, created_at`

	insertRefundItemSQL = `
INSERT INTO refund_items (refund_id, item_id, quantity, refund_total, refund_tax)
VALUES ($1, $2, $3, $4, $5)`

	getRefundSQL = `
SELECT id, parent_id, total, payment_method, reason, restock, created_at
FROM orders
WHERE id = $1 AND object_type = 'refund'`

	listRefundIDsSQL = `
SELECT id FROM orders
WHERE parent_id = $1 AND object_type = 'refund'
ORDER BY id`

	listRefundItemsSQL = `
SELECT item_id, quantity, refund_total, refund_tax
FROM refund_items
WHERE refund_id = $1
ORDER BY item_id`

	deleteRefundSQL = `DELETE FROM orders WHERE id = $1 AND object_type = 'refund'`
)

// RefundRepository implements ports.RefundRepository.
// Refunds are rows of the orders table with object_type = 'refund'.
type RefundRepository struct {
	pool *pgxpool.Pool
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db ports.DBPort) *RefundRepository {
	return &RefundRepository{pool: db.GetDB()}
}

// CreateRefund inserts the refund, its items and its metadata, and sets ID
func (r *RefundRepository) CreateRefund(ctx context.Context, db ports.DBTX, refund *domain.Refund) error {
	q := executor(db, r.pool)

	amount, err := decimalToNumeric(refund.Amount)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, insertRefundSQL, refund.OrderID, amount, refund.PaymentMethod, refund.Reason, refund.Restock).
		Scan(&refund.ID, &refund.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("create refund for order %d: %w", refund.OrderID, err)
	}

	for _, item := range refund.Items {
		total, err := decimalToNumeric(item.RefundTotal)
		if err != nil {
			return err
		}
		tax, err := decimalToNumeric(item.RefundTax)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, insertRefundItemSQL, refund.ID, item.ItemID, item.Quantity, total, tax); err != nil {
			return fmt.Errorf("add refund item %d: %w", item.ItemID, err)
		}
	}

	for key, value := range refund.Meta {
		if _, err := q.Exec(ctx, upsertMetaSQL, refund.ID, key, value); err != nil {
			return fmt.Errorf("set refund meta %s: %w", key, err)
		}
	}

	return nil
}

// GetRefund loads a refund with its items and metadata
func (r *RefundRepository) GetRefund(ctx context.Context, db ports.DBTX, id int64) (*domain.Refund, error) {
	q := executor(db, r.pool)

	var (
		refund domain.Refund
		amount pgtype.Numeric
	)
	err := q.QueryRow(ctx, getRefundSQL, id).Scan(
		&refund.ID, &refund.OrderID, &amount, &refund.PaymentMethod,
		&refund.Reason, &refund.Restock, &refund.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRefundNotFound
		}
		return nil, fmt.Errorf("get refund %d: %w", id, err)
	}
	if refund.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, listRefundItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("list refund items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item       domain.RefundItem
			total, tax pgtype.Numeric
		)
		if err := rows.Scan(&item.ItemID, &item.Quantity, &total, &tax); err != nil {
			return nil, fmt.Errorf("scan refund item: %w", err)
		}
		if item.RefundTotal, err = pgNumericToDecimal(total); err != nil {
			return nil, err
		}
		if item.RefundTax, err = pgNumericToDecimal(tax); err != nil {
			return nil, err
		}
		refund.Items = append(refund.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if refund.Meta, err = listMeta(ctx, q, id); err != nil {
		return nil, err
	}
	return &refund, nil
}

// ListRefunds returns all refunds of an order, oldest first
func (r *RefundRepository) ListRefunds(ctx context.Context, db ports.DBTX, orderID int64) ([]*domain.Refund, error) {
	q := executor(db, r.pool)

	rows, err := q.Query(ctx, listRefundIDsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("list refunds for order %d: %w", orderID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect refund ids: %w", err)
	}

	refunds := make([]*domain.Refund, 0, len(ids))
	for _, id := range ids {
		refund, err := r.GetRefund(ctx, q, id)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

// DeleteRefund removes a refund; its items and metadata cascade
func (r *RefundRepository) DeleteRefund(ctx context.Context, db ports.DBTX, id int64) error {
	tag, err := executor(db, r.pool).Exec(ctx, deleteRefundSQL, id)
	if err != nil {
		return fmt.Errorf("delete refund %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRefundNotFound
	}
	return nil
}
