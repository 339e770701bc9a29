package ports

import (
	"context"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
)

// DeliveryRepository journals inbound webhook deliveries for dedup and replay.
type DeliveryRepository interface {
	// RecordReceived upserts the delivery and bumps its attempt count.
	// It returns the stored row, whose Status reflects any earlier attempt.
	RecordReceived(ctx context.Context, delivery *domain.WebhookDelivery) (*domain.WebhookDelivery, error)
	MarkStatus(ctx context.Context, deliveryID string, status domain.DeliveryStatus, lastError string) error
	GetByDeliveryID(ctx context.Context, deliveryID string) (*domain.WebhookDelivery, error)
}

// SyncFailureRepository journals outbound sync failures for out-of-band resync.
type SyncFailureRepository interface {
	Record(ctx context.Context, failure *domain.SyncFailure) error
	ListUnresolved(ctx context.Context, limit int) ([]*domain.SyncFailure, error)
	MarkResolved(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string, lastError string) error
}
