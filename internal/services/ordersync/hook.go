package ordersync

import (
	"context"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"go.uber.org/zap"
)

// Journaled sync operations
const (
	OperationComplete = "complete"
	OperationCancel   = "cancel"
	OperationRefund   = "refund"
)

// HookAdapter connects local lifecycle events to the sync service. Sync
// failures are logged, counted and journaled but never returned to the
// publisher, so a Poynt outage cannot fail a local order save.
type HookAdapter struct {
	sync     *Service
	failures ports.SyncFailureRepository
	logger   *zap.Logger
}

// NewHookAdapter creates a new hook adapter
func NewHookAdapter(sync *Service, failures ports.SyncFailureRepository, logger *zap.Logger) *HookAdapter {
	return &HookAdapter{sync: sync, failures: failures, logger: logger}
}

// Register subscribes the adapter to the order lifecycle events
func (h *HookAdapter) Register(bus *events.Bus) {
	bus.Subscribe(domain.EventOrderStatusChanged, h.onStatusChanged)
	bus.Subscribe(domain.EventRefundCreated, h.onRefundCreated)
}

func (h *HookAdapter) onStatusChanged(ctx context.Context, event domain.Event) error {
	e, ok := event.(domain.OrderStatusChangedEvent)
	if !ok || e.Origin == domain.EventOriginRemote {
		return nil
	}

	switch e.To {
	case domain.OrderStatusCompleted:
		h.run(ctx, OperationComplete, e.OrderID, 0)
	case domain.OrderStatusCancelled:
		h.run(ctx, OperationCancel, e.OrderID, 0)
	}
	return nil
}

func (h *HookAdapter) onRefundCreated(ctx context.Context, event domain.Event) error {
	e, ok := event.(domain.RefundCreatedEvent)
	if !ok || e.Origin == domain.EventOriginRemote {
		return nil
	}
	h.run(ctx, OperationRefund, e.OrderID, e.RefundID)
	return nil
}

// run executes one operation and journals it when it fails
func (h *HookAdapter) run(ctx context.Context, op string, orderID, refundID int64) {
	result, err := h.dispatch(ctx, op, orderID, refundID)
	if err == nil {
		observability.RecordSyncOperation(op, string(result))
		h.logger.Info("Order synced to Poynt",
			zap.String("operation", op),
			zap.String("result", string(result)),
			zap.Int64("order_id", orderID),
		)
		return
	}

	observability.RecordSyncOperation(op, string(ResultFailed))
	h.logger.Error("Order sync to Poynt failed",
		zap.String("operation", op),
		zap.Int64("order_id", orderID),
		zap.Int64("refund_id", refundID),
		zap.String("error_code", string(domain.GetErrorCode(err))),
		zap.Error(err),
	)

	failure := &domain.SyncFailure{
		Operation: op,
		OrderID:   orderID,
		RefundID:  refundID,
		Error:     err.Error(),
	}
	if jerr := h.failures.Record(ctx, failure); jerr != nil {
		h.logger.Error("Failed to journal sync failure",
			zap.String("operation", op),
			zap.Int64("order_id", orderID),
			zap.Error(jerr),
		)
	}
}

func (h *HookAdapter) dispatch(ctx context.Context, op string, orderID, refundID int64) (Result, error) {
	switch op {
	case OperationComplete:
		return h.sync.OrderCompleted(ctx, orderID)
	case OperationCancel:
		return h.sync.OrderCancelled(ctx, orderID)
	case OperationRefund:
		return h.sync.OrderRefunded(ctx, orderID, refundID)
	default:
		return ResultFailed, fmt.Errorf("unknown sync operation %q", op)
	}
}

// ResyncReport summarises a Resync run
type ResyncReport struct {
	Resolved int
	Failed   int
}

// Resync retries up to limit journaled failures, oldest first
func (h *HookAdapter) Resync(ctx context.Context, limit int) (ResyncReport, error) {
	var report ResyncReport

	pending, err := h.failures.ListUnresolved(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("list sync failures: %w", err)
	}

	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := h.dispatch(ctx, f.Operation, f.OrderID, f.RefundID)
		if err != nil {
			report.Failed++
			observability.RecordSyncOperation(f.Operation, string(ResultFailed))
			h.logger.Warn("Resync attempt failed",
				zap.String("failure_id", f.ID),
				zap.String("operation", f.Operation),
				zap.Int("attempts", f.Attempts+1),
				zap.Error(err),
			)
			if ierr := h.failures.IncrementAttempts(ctx, f.ID, err.Error()); ierr != nil {
				return report, ierr
			}
			continue
		}

		report.Resolved++
		observability.RecordSyncOperation(f.Operation, string(result))
		if err := h.failures.MarkResolved(ctx, f.ID); err != nil {
			return report, err
		}
	}
	return report, nil
}
