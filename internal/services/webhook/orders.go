package webhook

import (
	"context"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/orders"
	"github.com/kevin07696/poynt-sync-service/internal/services/resolver"
	"go.uber.org/zap"
)

// OrderHandler applies /orders webhooks to the mirrored local order
type OrderHandler struct {
	gateway   ports.OrderGateway
	resolver  *resolver.Resolver
	lifecycle *orders.Service
	orders    ports.OrderRepository
	logger    *zap.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(
	gateway ports.OrderGateway,
	res *resolver.Resolver,
	lifecycle *orders.Service,
	orderRepo ports.OrderRepository,
	logger *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		gateway:   gateway,
		resolver:  res,
		lifecycle: lifecycle,
		orders:    orderRepo,
		logger:    logger,
	}
}

// remoteStatusTargets maps the remote terminal statuses onto local ones
var remoteStatusTargets = map[string]domain.OrderStatus{
	ports.RemoteOrderStatusCancelled: domain.OrderStatusCancelled,
	ports.RemoteOrderStatusCompleted: domain.OrderStatusCompleted,
}

// HandleCancelled applies ORDER_CANCELLED
func (h *OrderHandler) HandleCancelled(ctx context.Context, event *domain.WebhookEvent) (Disposition, error) {
	return h.applyStatus(ctx, event, ports.RemoteOrderStatusCancelled)
}

// HandleCompleted applies ORDER_COMPLETED
func (h *OrderHandler) HandleCompleted(ctx context.Context, event *domain.WebhookEvent) (Disposition, error) {
	return h.applyStatus(ctx, event, ports.RemoteOrderStatusCompleted)
}

// HandleUpdated refreshes the stored snapshot of the remote order
func (h *OrderHandler) HandleUpdated(ctx context.Context, event *domain.WebhookEvent) (Disposition, error) {
	local, remote, err := h.load(ctx, event)
	if err != nil || local == nil {
		return DispositionIgnored, err
	}

	if err := h.orders.SetMeta(ctx, nil, local.ID, domain.MetaRemoteOrderSnapshot, string(remote.Raw)); err != nil {
		return DispositionIgnored, fmt.Errorf("store remote order snapshot: %w", err)
	}
	return DispositionHandled, nil
}

// applyStatus moves the local order to the status the remote order reached.
// A remote order that no longer carries the expected status (reopened since
// the event was sent) is left alone.
func (h *OrderHandler) applyStatus(ctx context.Context, event *domain.WebhookEvent, want string) (Disposition, error) {
	local, remote, err := h.load(ctx, event)
	if err != nil || local == nil {
		return DispositionIgnored, err
	}

	if remote.Status != want {
		h.logger.Info("Remote order status moved on, ignoring event",
			zap.String("event_type", event.EventType),
			zap.String("remote_order_id", remote.ID),
			zap.String("remote_status", remote.Status),
		)
		return DispositionIgnored, nil
	}

	to := remoteStatusTargets[want]
	note := fmt.Sprintf("Poynt order %s marked %s.", remote.ID, to)
	changed, err := h.lifecycle.ApplyRemoteStatus(ctx, local.ID, to, note)
	if err != nil {
		return DispositionIgnored, err
	}

	h.logger.Info("Applied remote order status",
		zap.Int64("order_id", local.ID),
		zap.String("status", string(to)),
		zap.Bool("changed", changed),
	)
	return DispositionHandled, nil
}

// load resolves the local order first so unknown orders cost no remote call
func (h *OrderHandler) load(ctx context.Context, event *domain.WebhookEvent) (*domain.Order, *ports.RemoteOrder, error) {
	local, err := h.resolver.FindOrderByRemoteOrderID(ctx, nil, event.ResourceID)
	if err != nil {
		return nil, nil, err
	}
	if local == nil {
		h.logger.Debug("No local order for remote order",
			zap.String("remote_order_id", event.ResourceID),
		)
		return nil, nil, nil
	}

	remote, err := h.gateway.GetOrder(ctx, event.ResourceID)
	if err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}
