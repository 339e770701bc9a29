// Package orders owns local order lifecycle mutations: status transitions,
// payment completion and refund records. Callers pass the executor so the
// same code runs inside a webhook transaction or on its own.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/services/refund"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service mutates local orders and queues the matching lifecycle events
type Service struct {
	db        ports.DBPort
	orders    ports.OrderRepository
	refunds   ports.RefundRepository
	publisher ports.EventPublisher
	builder   *refund.Builder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new order lifecycle service
func NewService(
	db ports.DBPort,
	orders ports.OrderRepository,
	refunds ports.RefundRepository,
	publisher ports.EventPublisher,
	builder *refund.Builder,
	logger *zap.Logger,
) *Service {
	if builder == nil {
		builder = refund.NewBuilder()
	}
	return &Service{
		db:        db,
		orders:    orders,
		refunds:   refunds,
		publisher: publisher,
		builder:   builder,
		logger:    logger,
		now:       time.Now,
	}
}

// UpdateStatus moves order to status, adds a note and queues an
// OrderStatusChangedEvent. Same-status updates are a no-op.
func (s *Service) UpdateStatus(
	ctx context.Context,
	db ports.DBTX,
	order *domain.Order,
	to domain.OrderStatus,
	note string,
	origin domain.EventOrigin,
	batch *events.Batch,
) error {
	from := order.Status
	if from == to {
		return nil
	}

	if err := s.orders.UpdateStatus(ctx, db, order.ID, to); err != nil {
		return fmt.Errorf("update order %d status: %w", order.ID, err)
	}
	order.Status = to

	text := fmt.Sprintf("Order status changed from %s to %s.", from, to)
	if note != "" {
		text = note + " " + text
	}
	if err := s.orders.AddNote(ctx, db, order.ID, text); err != nil {
		return fmt.Errorf("add status note to order %d: %w", order.ID, err)
	}

	batch.Add(domain.OrderStatusChangedEvent{OrderID: order.ID, From: from, To: to, Origin: origin})
	return nil
}

// PaymentComplete records the payment reference and moves an unpaid order
// to processing. Orders that no longer need payment are left alone.
func (s *Service) PaymentComplete(
	ctx context.Context,
	db ports.DBTX,
	order *domain.Order,
	transactionRef string,
	origin domain.EventOrigin,
	batch *events.Batch,
) error {
	if !order.Status.NeedsPayment() {
		s.logger.Debug("Order does not need payment",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return nil
	}

	paidAt := s.now()
	if err := s.orders.MarkPaid(ctx, db, order.ID, transactionRef, paidAt); err != nil {
		return fmt.Errorf("mark order %d paid: %w", order.ID, err)
	}
	order.TransactionRef = transactionRef
	order.PaidAt = &paidAt

	return s.UpdateStatus(ctx, db, order, domain.OrderStatusProcessing, "Payment complete.", origin, batch)
}

// CreateRefund validates and stores a refund and queues a RefundCreatedEvent.
// A refund that brings the remaining amount to zero marks the order refunded.
func (s *Service) CreateRefund(
	ctx context.Context,
	db ports.DBTX,
	order *domain.Order,
	req refund.Request,
	batch *events.Batch,
) (*domain.Refund, error) {
	existing, err := s.refunds.ListRefunds(ctx, db, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list refunds of order %d: %w", order.ID, err)
	}

	r, err := s.builder.Build(order, existing, req)
	if err != nil {
		return nil, err
	}
	if err := s.refunds.CreateRefund(ctx, db, r); err != nil {
		return nil, fmt.Errorf("create refund for order %d: %w", order.ID, err)
	}

	note := fmt.Sprintf("Refunded %s %s.", r.Amount.StringFixed(2), order.Currency)
	if r.Reason != "" {
		note += " Reason: " + r.Reason
	}
	if err := s.orders.AddNote(ctx, db, order.ID, note); err != nil {
		return nil, fmt.Errorf("add refund note to order %d: %w", order.ID, err)
	}

	batch.Add(domain.RefundCreatedEvent{OrderID: order.ID, RefundID: r.ID, Origin: req.Origin})

	if refund.Remaining(order, append(existing, r)).LessThanOrEqual(decimal.Zero) {
		if err := s.UpdateStatus(ctx, db, order, domain.OrderStatusRefunded, "Order fully refunded.", req.Origin, batch); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Refund created",
		zap.Int64("order_id", order.ID),
		zap.Int64("refund_id", r.ID),
		zap.String("amount", r.Amount.String()),
		zap.String("origin", string(req.Origin)),
	)
	return r, nil
}

// Refunds lists the refunds recorded against an order
func (s *Service) Refunds(ctx context.Context, db ports.DBTX, orderID int64) ([]*domain.Refund, error) {
	refunds, err := s.refunds.ListRefunds(ctx, db, orderID)
	if err != nil {
		return nil, fmt.Errorf("list refunds of order %d: %w", orderID, err)
	}
	return refunds, nil
}

// DeleteRefund removes a refund record and notes it on the order
func (s *Service) DeleteRefund(ctx context.Context, db ports.DBTX, r *domain.Refund) error {
	if err := s.refunds.DeleteRefund(ctx, db, r.ID); err != nil {
		return fmt.Errorf("delete refund %d: %w", r.ID, err)
	}
	note := fmt.Sprintf("Refund #%d of %s removed.", r.ID, r.Amount.StringFixed(2))
	if err := s.orders.AddNote(ctx, db, r.OrderID, note); err != nil {
		return fmt.Errorf("add note to order %d: %w", r.OrderID, err)
	}
	return nil
}

// TransitionStatus is the host-initiated status change. It runs in its own
// transaction and publishes after commit.
func (s *Service) TransitionStatus(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, domain.WrapError(domain.ErrorCodeValidationFailed,
			fmt.Sprintf("unknown order status %q", to), domain.ErrValidationFailed)
	}

	var (
		order *domain.Order
		batch events.Batch
	)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		order, err = s.orders.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		return s.UpdateStatus(ctx, tx, order, to, "", domain.EventOriginLocal, &batch)
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, &batch)
	return order, nil
}

// ApplyRemoteStatus moves an order to a status reported by Poynt. The
// change is tagged remote so it is not mirrored back.
func (s *Service) ApplyRemoteStatus(ctx context.Context, orderID int64, to domain.OrderStatus, note string) (bool, error) {
	var (
		changed bool
		batch   events.Batch
	)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := s.orders.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		changed = order.Status != to
		return s.UpdateStatus(ctx, tx, order, to, note, domain.EventOriginRemote, &batch)
	})
	if err != nil {
		return false, err
	}

	s.flush(ctx, &batch)
	return changed, nil
}

// CreateLocalRefund is the host-initiated refund. It runs in its own
// transaction and publishes after commit.
func (s *Service) CreateLocalRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string, restock bool) (*domain.Refund, error) {
	var (
		created *domain.Refund
		batch   events.Batch
	)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := s.orders.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		created, err = s.CreateRefund(ctx, tx, order, refund.Request{
			Amount:  amount,
			Reason:  reason,
			Restock: restock,
			Origin:  domain.EventOriginLocal,
		}, &batch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, &batch)
	return created, nil
}

// flush publishes committed events. Subscriber failures are already
// reported by the bus and never undo a committed change.
func (s *Service) flush(ctx context.Context, batch *events.Batch) {
	if err := batch.Flush(ctx, s.publisher); err != nil {
		s.logger.Warn("Publishing order events failed", zap.Error(err))
	}
}
