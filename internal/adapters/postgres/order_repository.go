package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

const (
	getOrderSQL = `
SELECT id, status, currency, total, payment_method, transaction_ref, paid_at, created_at, updated_at
FROM orders
WHERE id = $1 AND object_type = 'order'`

	getOrderForUpdateSQL = getOrderSQL + `
FOR UPDATE`

	listOrderItemsSQL = `
SELECT id, order_id, item_type, name, quantity, total, tax_total, taxable
FROM order_items
WHERE order_id = $1
ORDER BY id`

	listMetaSQL = `SELECT meta_key, meta_value FROM order_meta WHERE object_id = $1`

	findObjectByMetaSQL = `
SELECT o.id
FROM orders o
JOIN order_meta m ON m.object_id = o.id
WHERE m.meta_key = $1 AND m.meta_value = $2 AND o.object_type = $3
ORDER BY o.id
LIMIT 1`

	upsertMetaSQL = `
INSERT INTO order_meta (object_id, meta_key, meta_value)
VALUES ($1, $2, $3)
ON CONFLICT (object_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	deleteMetaSQL = `DELETE FROM order_meta WHERE object_id = $1 AND meta_key = $2`

	updateStatusSQL = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND object_type = 'order'`

	markPaidSQL = `
UPDATE orders
SET transaction_ref = $2, paid_at = $3, updated_at = NOW()
WHERE id = $1 AND object_type = 'order'`

	insertLineItemSQL = `
INSERT INTO order_items (order_id, item_type, name, quantity, total, tax_total, taxable)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	updateTotalSQL = `UPDATE orders SET total = $2, updated_at = NOW() WHERE id = $1`

	insertNoteSQL = `INSERT INTO order_notes (order_id, note) VALUES ($1, $2)`
)

// OrderRepository implements ports.OrderRepository with hand-written pgx queries
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db ports.DBPort) *OrderRepository {
	return &OrderRepository{pool: db.GetDB()}
}

// GetOrder loads an order together with its items and metadata
func (r *OrderRepository) GetOrder(ctx context.Context, db ports.DBTX, id int64) (*domain.Order, error) {
	q := executor(db, r.pool)

	var (
		order  domain.Order
		status string
		total  pgtype.Numeric
		paidAt pgtype.Timestamptz
	)
	err := q.QueryRow(ctx, selectFor(db, getOrderSQL, getOrderForUpdateSQL), id).Scan(
		&order.ID, &status, &order.Currency, &total, &order.PaymentMethod,
		&order.TransactionRef, &paidAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	order.Status = domain.OrderStatus(status)
	order.PaidAt = timestamptzPtr(paidAt)
	if order.Total, err = pgNumericToDecimal(total); err != nil {
		return nil, fmt.Errorf("order %d total: %w", id, err)
	}

	if order.Items, err = r.listItems(ctx, q, id); err != nil {
		return nil, err
	}
	if order.Meta, err = listMeta(ctx, q, id); err != nil {
		return nil, err
	}
	order.RemoteID = order.Meta[domain.MetaPoyntOrderRemoteID]

	return &order, nil
}

func (r *OrderRepository) listItems(ctx context.Context, q ports.DBTX, orderID int64) ([]domain.LineItem, error) {
	rows, err := q.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			item            domain.LineItem
			itemType        string
			total, taxTotal pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &itemType, &item.Name, &item.Quantity,
			&total, &taxTotal, &item.Taxable); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Type = domain.LineItemType(itemType)
		if item.Total, err = pgNumericToDecimal(total); err != nil {
			return nil, err
		}
		if item.TaxTotal, err = pgNumericToDecimal(taxTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func listMeta(ctx context.Context, q ports.DBTX, objectID int64) (map[string]string, error) {
	rows, err := q.Query(ctx, listMetaSQL, objectID)
	if err != nil {
		return nil, fmt.Errorf("list meta for %d: %w", objectID, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

// FindObjectIDByMeta returns the first object of objectType whose key holds value, or 0
func (r *OrderRepository) FindObjectIDByMeta(ctx context.Context, db ports.DBTX, objectType domain.ObjectType, key, value string) (int64, error) {
	if value == "" {
		return 0, nil
	}

	var id int64
	err := executor(db, r.pool).QueryRow(ctx, findObjectByMetaSQL, key, value, string(objectType)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("find %s by %s: %w", objectType, key, err)
	}
	return id, nil
}

// SetMeta writes a metadata value, last write wins
func (r *OrderRepository) SetMeta(ctx context.Context, db ports.DBTX, objectID int64, key, value string) error {
	if _, err := executor(db, r.pool).Exec(ctx, upsertMetaSQL, objectID, key, value); err != nil {
		return fmt.Errorf("set meta %s on %d: %w", key, objectID, err)
	}
	return nil
}

// DeleteMeta removes a metadata value
func (r *OrderRepository) DeleteMeta(ctx context.Context, db ports.DBTX, objectID int64, key string) error {
	if _, err := executor(db, r.pool).Exec(ctx, deleteMetaSQL, objectID, key); err != nil {
		return fmt.Errorf("delete meta %s on %d: %w", key, objectID, err)
	}
	return nil
}

// UpdateStatus sets the order status
func (r *OrderRepository) UpdateStatus(ctx context.Context, db ports.DBTX, orderID int64, status domain.OrderStatus) error {
	tag, err := executor(db, r.pool).Exec(ctx, updateStatusSQL, orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// MarkPaid records the payment reference and paid date
func (r *OrderRepository) MarkPaid(ctx context.Context, db ports.DBTX, orderID int64, transactionRef string, paidAt time.Time) error {
	if _, err := executor(db, r.pool).Exec(ctx, markPaidSQL, orderID, transactionRef, paidAt); err != nil {
		return fmt.Errorf("mark order %d paid: %w", orderID, err)
	}
	return nil
}

// AddLineItem inserts a line item and sets its ID
func (r *OrderRepository) AddLineItem(ctx context.Context, db ports.DBTX, item *domain.LineItem) error {
	total, err := decimalToNumeric(item.Total)
	if err != nil {
		return err
	}
	tax, err := decimalToNumeric(item.TaxTotal)
	if err != nil {
		return err
	}

	err = executor(db, r.pool).QueryRow(ctx, insertLineItemSQL,
		item.OrderID, string(item.Type), item.Name, item.Quantity, total, tax, item.Taxable,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("add %s item to order %d: %w", item.Type, item.OrderID, err)
	}
	return nil
}

// UpdateTotal stores a recalculated order total
func (r *OrderRepository) UpdateTotal(ctx context.Context, db ports.DBTX, orderID int64, total decimal.Decimal) error {
	n, err := decimalToNumeric(total)
	if err != nil {
		return err
	}
	if _, err := executor(db, r.pool).Exec(ctx, updateTotalSQL, orderID, n); err != nil {
		return fmt.Errorf("update order %d total: %w", orderID, err)
	}
	return nil
}

// AddNote attaches a private note to the order
func (r *OrderRepository) AddNote(ctx context.Context, db ports.DBTX, orderID int64, note string) error {
	if _, err := executor(db, r.pool).Exec(ctx, insertNoteSQL, orderID, note); err != nil {
		return fmt.Errorf("add note to order %d: %w", orderID, err)
	}
	return nil
}
