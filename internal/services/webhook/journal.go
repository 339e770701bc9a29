package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Journal records every validated delivery and answers whether a
// redelivery has already been finished.
type Journal struct {
	repo   ports.DeliveryRepository
	cache  *dedupCache
	logger *zap.Logger
}

// NewJournal creates a journal fronted by a dedup cache with the given TTL.
// A zero TTL disables the cache; the table still dedups.
func NewJournal(repo ports.DeliveryRepository, ttl time.Duration, logger *zap.Logger) *Journal {
	return &Journal{repo: repo, cache: newDedupCache(ttl), logger: logger}
}

// Begin records the delivery. It reports true when an earlier attempt
// already reached a terminal status.
func (j *Journal) Begin(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	if j.cache.seen(event.DeliveryID) {
		return true, nil
	}

	stored, err := j.repo.RecordReceived(ctx, &domain.WebhookDelivery{
		DeliveryID: event.DeliveryID,
		EventType:  event.EventType,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Signature:  event.Signature,
		Payload:    event.Payload,
		Status:     domain.DeliveryStatusReceived,
		ReceivedAt: event.ReceivedAt,
	})
	if err != nil {
		return false, fmt.Errorf("journal delivery %s: %w", event.DeliveryID, err)
	}

	if stored.Status.IsTerminal() {
		j.cache.add(event.DeliveryID)
		j.logger.Info("Duplicate webhook delivery",
			zap.String("delivery_id", event.DeliveryID),
			zap.String("status", string(stored.Status)),
			zap.Int("attempts", stored.Attempts),
		)
		return true, nil
	}
	return false, nil
}

// Finish stores the final status of a delivery. Journal write failures are
// logged only; the delivery itself already succeeded or failed.
func (j *Journal) Finish(ctx context.Context, deliveryID string, status domain.DeliveryStatus, cause error) {
	var lastError string
	if cause != nil {
		lastError = cause.Error()
	}
	if err := j.repo.MarkStatus(ctx, deliveryID, status, lastError); err != nil {
		j.logger.Error("Failed to update delivery journal",
			zap.String("delivery_id", deliveryID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if status.IsTerminal() {
		j.cache.add(deliveryID)
	}
}

// Load returns a journaled delivery
func (j *Journal) Load(ctx context.Context, deliveryID string) (*domain.WebhookDelivery, error) {
	return j.repo.GetByDeliveryID(ctx, deliveryID)
}
