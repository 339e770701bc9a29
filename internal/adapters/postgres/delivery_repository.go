package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
)

const (
	recordDeliverySQL = `
INSERT INTO webhook_deliveries (id, delivery_id, event_type, resource, resource_id, payload, signature)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (delivery_id) DO UPDATE
SET attempts = webhook_deliveries.attempts + 1
RETURNING id, status, attempts, last_error, received_at, processed_at`

	markDeliverySQL = `
UPDATE webhook_deliveries
SET status = $2,
    last_error = $3,
    processed_at = CASE WHEN $2 IN ('processed', 'ignored') THEN NOW() ELSE processed_at END
WHERE delivery_id = $1`

	getDeliverySQL = `
SELECT id, delivery_id, event_type, resource, resource_id, payload, signature,
       status, attempts, last_error, received_at, processed_at
FROM webhook_deliveries
WHERE delivery_id = $1`
)

// DeliveryRepository journals webhook deliveries in PostgreSQL
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db ports.DBPort) *DeliveryRepository {
	return &DeliveryRepository{pool: db.GetDB()}
}

// RecordReceived upserts a delivery; a redelivery bumps attempts and keeps the earlier status
func (r *DeliveryRepository) RecordReceived(ctx context.Context, d *domain.WebhookDelivery) (*domain.WebhookDelivery, error) {
	stored := *d
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	var (
		status      string
		processedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, recordDeliverySQL,
		stored.ID, d.DeliveryID, d.EventType, d.Resource, d.ResourceID, d.Payload, d.Signature,
	).Scan(&stored.ID, &status, &stored.Attempts, &stored.LastError, &stored.ReceivedAt, &processedAt)
	if err != nil {
		return nil, fmt.Errorf("record delivery %s: %w", d.DeliveryID, err)
	}
	stored.Status = domain.DeliveryStatus(status)
	stored.ProcessedAt = timestamptzPtr(processedAt)
	return &stored, nil
}

// MarkStatus moves a delivery to a new status
func (r *DeliveryRepository) MarkStatus(ctx context.Context, deliveryID string, status domain.DeliveryStatus, lastError string) error {
	if _, err := r.pool.Exec(ctx, markDeliverySQL, deliveryID, string(status), lastError); err != nil {
		return fmt.Errorf("mark delivery %s %s: %w", deliveryID, status, err)
	}
	return nil
}

// GetByDeliveryID loads a journaled delivery, including its raw payload
func (r *DeliveryRepository) GetByDeliveryID(ctx context.Context, deliveryID string) (*domain.WebhookDelivery, error) {
	var (
		d           domain.WebhookDelivery
		status      string
		processedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, getDeliverySQL, deliveryID).Scan(
		&d.ID, &d.DeliveryID, &d.EventType, &d.Resource, &d.ResourceID, &d.Payload, &d.Signature,
		&status, &d.Attempts, &d.LastError, &d.ReceivedAt, &processedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "delivery not found").
				WithDetail("delivery_id", deliveryID)
		}
		return nil, fmt.Errorf("get delivery %s: %w", deliveryID, err)
	}
	d.Status = domain.DeliveryStatus(status)
	d.ProcessedAt = timestamptzPtr(processedAt)
	return &d, nil
}
