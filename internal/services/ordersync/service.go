// Package ordersync mirrors local order lifecycle changes to Poynt.
package ordersync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/txadapter"
	"go.uber.org/zap"
)

// Result is the explicit outcome of one sync call
type Result string

const (
	ResultCompleted      Result = "completed"
	ResultForceCompleted Result = "force_completed"
	ResultCancelled      Result = "cancelled"
	ResultRefunded       Result = "refunded"
	ResultVoided         Result = "voided"
	ResultAlreadySynced  Result = "already_synced"
	ResultSkipped        Result = "skipped"
	ResultFailed         Result = "failed"
)

// Service pushes completed, cancelled and refunded orders to Poynt
type Service struct {
	db       ports.DBPort
	gateway  ports.PoyntGateway
	orders   ports.OrderRepository
	refunds  ports.RefundRepository
	provider string
	logger   *zap.Logger
	newID    func() string
}

// NewService creates a new order sync service
func NewService(
	db ports.DBPort,
	gateway ports.PoyntGateway,
	orders ports.OrderRepository,
	refunds ports.RefundRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:       db,
		gateway:  gateway,
		orders:   orders,
		refunds:  refunds,
		provider: domain.ProviderPoynt,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// OrderCompleted completes the remote order, retrying once with
// force-complete when Poynt reports unfulfilled items.
func (s *Service) OrderCompleted(ctx context.Context, orderID int64) (Result, error) {
	order, err := s.orders.GetOrder(ctx, nil, orderID)
	if err != nil {
		return ResultFailed, err
	}
	remoteID := order.GetMeta(domain.MetaPoyntOrderRemoteID)
	if remoteID == "" {
		return ResultSkipped, nil
	}

	err = s.gateway.CompleteOrder(ctx, remoteID)
	if err == nil {
		return ResultCompleted, nil
	}
	if !domain.HasRemoteCode(err, ports.RemoteCodeItemsNotFulfilled) {
		return ResultFailed, err
	}

	s.logger.Info("Remote order has unfulfilled items, forcing completion",
		zap.Int64("order_id", orderID),
		zap.String("remote_order_id", remoteID),
	)
	if err := s.gateway.ForceCompleteOrder(ctx, remoteID); err != nil {
		return ResultFailed, err
	}
	return ResultForceCompleted, nil
}

// OrderCancelled cancels the remote order
func (s *Service) OrderCancelled(ctx context.Context, orderID int64) (Result, error) {
	order, err := s.orders.GetOrder(ctx, nil, orderID)
	if err != nil {
		return ResultFailed, err
	}
	remoteID := order.GetMeta(domain.MetaPoyntOrderRemoteID)
	if remoteID == "" {
		return ResultSkipped, nil
	}

	if err := s.gateway.CancelOrder(ctx, remoteID); err != nil {
		return ResultFailed, err
	}
	return ResultCancelled, nil
}

// OrderRefunded pushes a local refund. Authorization-only orders are voided
// remotely; everything else gets a manual refund against the capture or
// sale. The returned remote id is stamped on the refund and on the order so
// the webhook Poynt sends back is recognised as already applied.
func (s *Service) OrderRefunded(ctx context.Context, orderID, refundID int64) (Result, error) {
	order, err := s.orders.GetOrder(ctx, nil, orderID)
	if err != nil {
		return ResultFailed, err
	}
	r, err := s.refunds.GetRefund(ctx, nil, refundID)
	if err != nil {
		return ResultFailed, err
	}

	if r.GetMeta(domain.MetaPoyntRefundRemoteID) != "" || r.GetMeta(domain.MetaPoyntVoidRemoteID) != "" {
		return ResultAlreadySynced, nil
	}

	paymentID := order.GetMeta(domain.MetaPoyntPaymentRemoteID)
	captureID := order.GetMeta(domain.MetaPoyntCaptureRemoteID)

	if paymentID != "" && captureID == "" && !order.IsCaptured() {
		return s.voidAuthorization(ctx, order, r, paymentID)
	}

	parentID := captureID
	if parentID == "" {
		parentID = paymentID
	}
	if parentID == "" {
		return ResultSkipped, nil
	}
	return s.manualRefund(ctx, order, r, parentID)
}

func (s *Service) voidAuthorization(ctx context.Context, order *domain.Order, r *domain.Refund, paymentID string) (Result, error) {
	rt, err := s.gateway.VoidTransaction(ctx, paymentID)
	if err != nil {
		return ResultFailed, err
	}

	voidID := rt.ID
	if voidID == "" {
		voidID = paymentID
	}
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.SetMeta(ctx, tx, r.ID, domain.MetaPoyntVoidRemoteID, voidID); err != nil {
			return err
		}
		return s.orders.SetMeta(ctx, tx, order.ID, domain.MetaPoyntVoidRemoteID, voidID)
	})
	if err != nil {
		return ResultFailed, fmt.Errorf("stamp void %s on refund %d: %w", voidID, r.ID, err)
	}
	return ResultVoided, nil
}

func (s *Service) manualRefund(ctx context.Context, order *domain.Order, r *domain.Refund, parentID string) (Result, error) {
	providerName := s.providerName(order)
	processedByPoynt := providerName == "" || providerName == s.provider

	fundingProvider := providerName
	if fundingProvider == "" {
		fundingProvider = domain.ProviderManual
	}

	rt, err := s.gateway.RefundTransaction(ctx, &ports.RefundRequest{
		ID:                    s.newID(),
		ParentID:              parentID,
		Currency:              order.Currency,
		FundingSourceProvider: fundingProvider,
		Notes:                 r.Reason,
		Amount:                domain.MoneyFromDecimal(r.Amount, order.Currency).Amount,
	})
	if err != nil {
		return ResultFailed, err
	}

	meta := map[string]string{
		domain.MetaPoyntRefundRemoteID:         rt.ID,
		domain.MetaRefundFundingSourceProvider: fundingProvider,
	}
	if processedByPoynt {
		txn := txadapter.Refund(rt)
		txn.OrderID = order.ID
		raw, err := txn.Marshal()
		if err != nil {
			return ResultFailed, err
		}
		meta[domain.TransactionMetaKey(s.provider, domain.TransactionKindRefund)] = raw
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for key, value := range meta {
			if err := s.orders.SetMeta(ctx, tx, r.ID, key, value); err != nil {
				return err
			}
		}
		return s.orders.SetMeta(ctx, tx, order.ID, domain.MetaPoyntRefundRemoteID, rt.ID)
	})
	if err != nil {
		return ResultFailed, fmt.Errorf("stamp remote refund %s on refund %d: %w", rt.ID, r.ID, err)
	}
	return ResultRefunded, nil
}

// providerName is the gateway that took the payment, from the order or its stored payment record
func (s *Service) providerName(order *domain.Order) string {
	if name := order.GetMeta(domain.MetaProviderName); name != "" {
		return name
	}
	raw := order.GetMeta(domain.TransactionMetaKey(s.provider, domain.TransactionKindPayment))
	if raw == "" {
		return ""
	}
	txn, err := domain.UnmarshalTransaction(raw)
	if err != nil {
		return ""
	}
	return txn.ProviderName
}
