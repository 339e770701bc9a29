// Package webhook validates inbound Poynt webhooks and routes them to the
// transaction reconciliation engine or the order handlers.
package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/services/reconciliation"
	"go.uber.org/zap"
)

// Disposition is the routing outcome of a delivery
type Disposition string

const (
	DispositionHandled Disposition = "handled"
	DispositionIgnored Disposition = "ignored"
)

// TransactionHandler reconciles /transactions events
type TransactionHandler interface {
	HandleTransactionEvent(ctx context.Context, event *domain.WebhookEvent) (*reconciliation.Result, error)
}

type handleFunc func(ctx context.Context, event *domain.WebhookEvent) (Disposition, error)

// Dispatcher checks authenticity and shape, then routes by resource and event type
type Dispatcher struct {
	verifier     *Verifier
	transactions TransactionHandler
	orderRoutes  map[string]handleFunc
	logger       *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(verifier *Verifier, transactions TransactionHandler, orders *OrderHandler, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		verifier:     verifier,
		transactions: transactions,
		logger:       logger,
	}
	d.orderRoutes = map[string]handleFunc{
		domain.EventTypeOrderCancelled: orders.HandleCancelled,
		domain.EventTypeOrderCompleted: orders.HandleCompleted,
		domain.EventTypeOrderUpdated:   orders.HandleUpdated,
	}
	return d
}

// Validate checks the signature over the raw payload
func (d *Dispatcher) Validate(ctx context.Context, event *domain.WebhookEvent) error {
	return d.verifier.Verify(ctx, event.Payload, event.Signature)
}

// IsJSON reports whether payload is a JSON object
func IsJSON(payload []byte) bool {
	var v map[string]interface{}
	return json.Unmarshal(payload, &v) == nil
}

// Decode fills the routing fields of event from its payload. Deliveries
// without an id are keyed by a hash of the body so redeliveries still dedup.
func (d *Dispatcher) Decode(event *domain.WebhookEvent) error {
	if !IsJSON(event.Payload) {
		return domain.WrapError(domain.ErrorCodeInvalidPayload, "webhook body is not a JSON object", domain.ErrInvalidPayload)
	}

	if err := json.Unmarshal(event.Payload, event); err != nil {
		return domain.WrapError(domain.ErrorCodeInvalidPayload, "malformed webhook body", domain.ErrInvalidPayload)
	}
	if err := json.Unmarshal(event.Payload, &event.Decoded); err != nil {
		return domain.WrapError(domain.ErrorCodeInvalidPayload, "malformed webhook body", domain.ErrInvalidPayload)
	}

	if event.DeliveryID == "" {
		sum := sha256.Sum256(event.Payload)
		event.DeliveryID = hex.EncodeToString(sum[:])
	}
	return nil
}

// HandlePayload routes a validated event. Unrouted combinations are
// ignored without error.
func (d *Dispatcher) HandlePayload(ctx context.Context, event *domain.WebhookEvent) (Disposition, error) {
	handle := d.route(event)
	if handle == nil {
		d.logger.Debug("Ignoring unrouted webhook",
			zap.String("resource", event.Resource),
			zap.String("event_type", event.EventType),
		)
		return DispositionIgnored, nil
	}
	return handle(ctx, event)
}

func (d *Dispatcher) route(event *domain.WebhookEvent) handleFunc {
	switch event.Resource {
	case domain.WebhookResourceTransactions:
		return d.handleTransaction
	case domain.WebhookResourceOrders:
		return d.orderRoutes[event.EventType]
	default:
		return nil
	}
}

func (d *Dispatcher) handleTransaction(ctx context.Context, event *domain.WebhookEvent) (Disposition, error) {
	result, err := d.transactions.HandleTransactionEvent(ctx, event)
	if err != nil {
		return DispositionIgnored, err
	}
	switch result.Outcome {
	case reconciliation.OutcomeHandled, reconciliation.OutcomeDuplicate:
		return DispositionHandled, nil
	default:
		return DispositionIgnored, nil
	}
}
