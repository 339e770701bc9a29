package ports

import (
	"context"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderRepository is the local order store owned by the host commerce system.
// Every method takes the executor so callers choose pool or transaction.
type OrderRepository interface {
	// GetOrder loads an order with its line items and metadata.
	// Returns domain.ErrOrderNotFound when missing.
	GetOrder(ctx context.Context, db DBTX, id int64) (*domain.Order, error)

	// FindObjectIDByMeta returns the first object of the given type whose
	// metadata key holds value, or 0 when nothing matches.
	FindObjectIDByMeta(ctx context.Context, db DBTX, objectType domain.ObjectType, key, value string) (int64, error)

	SetMeta(ctx context.Context, db DBTX, objectID int64, key, value string) error
	DeleteMeta(ctx context.Context, db DBTX, objectID int64, key string) error

	UpdateStatus(ctx context.Context, db DBTX, orderID int64, status domain.OrderStatus) error
	MarkPaid(ctx context.Context, db DBTX, orderID int64, transactionRef string, paidAt time.Time) error
	AddLineItem(ctx context.Context, db DBTX, item *domain.LineItem) error
	UpdateTotal(ctx context.Context, db DBTX, orderID int64, total decimal.Decimal) error
	AddNote(ctx context.Context, db DBTX, orderID int64, note string) error
}

// RefundRepository stores refunds, which share the order metadata index.
type RefundRepository interface {
	CreateRefund(ctx context.Context, db DBTX, refund *domain.Refund) error
	// GetRefund returns domain.ErrRefundNotFound when missing.
	GetRefund(ctx context.Context, db DBTX, id int64) (*domain.Refund, error)
	ListRefunds(ctx context.Context, db DBTX, orderID int64) ([]*domain.Refund, error)
	DeleteRefund(ctx context.Context, db DBTX, id int64) error
}
