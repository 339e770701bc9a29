package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/services/refund"
	"go.uber.org/zap"
)

func (e *Engine) handleCapture(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if order.IsCaptured() {
		return OutcomeDuplicate, nil
	}
	if !txn.IsApproved() {
		return e.declined(order, txn), nil
	}

	if err := e.addFees(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.persistTransaction(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.setMeta(ctx, db, order, domain.MetaIsCaptured, domain.BoolMeta(true)); err != nil {
		return "", err
	}

	if order.Status == domain.OrderStatusOnHold {
		note := fmt.Sprintf("Poynt capture %s of %s.", txn.RemoteID, txn.TotalAmount)
		if err := e.lifecycle.UpdateStatus(ctx, db, order, domain.OrderStatusProcessing, note, domain.EventOriginRemote, batch); err != nil {
			return "", err
		}
	}

	batch.Add(domain.CaptureTransactionEvent{Transaction: txn, OrderID: order.ID})
	return OutcomeHandled, nil
}

func (e *Engine) handleSale(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if order.IsCaptured() {
		return OutcomeDuplicate, nil
	}
	if !txn.IsApproved() {
		return e.declined(order, txn), nil
	}

	if err := e.addFees(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.persistTransaction(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.setMeta(ctx, db, order, domain.MetaIsCaptured, domain.BoolMeta(true)); err != nil {
		return "", err
	}
	if err := e.lifecycle.PaymentComplete(ctx, db, order, txn.RemoteID, domain.EventOriginRemote, batch); err != nil {
		return "", err
	}

	batch.Add(domain.PaymentTransactionEvent{Transaction: txn, OrderID: order.ID})
	return OutcomeHandled, nil
}

func (e *Engine) handleAuthorization(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if stored := e.storedTransaction(order, domain.TransactionKindPayment); stored != nil && stored.RemoteID != "" {
		return OutcomeDuplicate, nil
	}
	if !txn.IsApproved() {
		return e.declined(order, txn), nil
	}

	if err := e.persistTransaction(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.addFees(ctx, db, order, txn); err != nil {
		return "", err
	}

	if order.Status == domain.OrderStatusOnHold {
		note := fmt.Sprintf("Poynt authorization %s of %s.", txn.RemoteID, txn.TotalAmount)
		if err := e.lifecycle.UpdateStatus(ctx, db, order, domain.OrderStatusProcessing, note, domain.EventOriginRemote, batch); err != nil {
			return "", err
		}
	}

	batch.Add(domain.PaymentTransactionEvent{Transaction: txn, OrderID: order.ID})
	return OutcomeHandled, nil
}

// handleRefund creates the local refund for a remote refund. Any refund
// marker already on the order means the work was done.
func (e *Engine) handleRefund(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if order.HasMeta(domain.MetaPoyntRefundRemoteID) {
		return OutcomeDuplicate, nil
	}

	statusBefore := order.Status
	var pending events.Batch
	pending.Add(domain.BeforeCreateRefundEvent{Transaction: txn, OrderID: order.ID})

	created, err := e.lifecycle.CreateRefund(ctx, db, order, refund.Request{
		Amount:        txn.TotalAmount.Decimal(),
		Reason:        txn.Reason,
		PaymentMethod: e.provider,
		Restock:       true,
		Origin:        domain.EventOriginRemote,
		Meta:          e.refundMeta(domain.MetaPoyntRefundRemoteID, txn),
	}, &pending)
	if err != nil {
		return e.refundRejected(order, txn, err)
	}
	batch.Append(&pending)

	// also stamps _poynt_refund_remoteId, the guard above
	if err := e.persistTransaction(ctx, db, order, txn); err != nil {
		return "", err
	}
	if err := e.setMeta(ctx, db, order, domain.MetaStatusBeforeRefund, string(statusBefore)); err != nil {
		return "", err
	}

	e.logger.Info("Remote refund recorded",
		zap.Int64("order_id", order.ID),
		zap.Int64("refund_id", created.ID),
		zap.String("remote_id", txn.RemoteID),
	)
	return OutcomeHandled, nil
}

func (e *Engine) handleVoid(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	handle, ok := e.voids[txn.ParentType]
	if !ok {
		handle = e.voids[domain.ParentTypePayment]
	}
	return handle(ctx, db, order, txn, batch)
}

// handleVoidCapture reverses a capture: the order goes back on hold. The
// void slot is left empty so a later void of the authorization still applies.
func (e *Engine) handleVoidCapture(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if !order.IsCaptured() {
		return OutcomeDuplicate, nil
	}

	if err := e.setMeta(ctx, db, order, domain.MetaIsCaptured, domain.BoolMeta(false)); err != nil {
		return "", err
	}
	note := fmt.Sprintf("Poynt capture %s voided.", txn.RemoteParentID)
	if err := e.lifecycle.UpdateStatus(ctx, db, order, domain.OrderStatusOnHold, note, domain.EventOriginRemote, batch); err != nil {
		return "", err
	}

	batch.Add(domain.VoidTransactionEvent{Transaction: txn, OrderID: order.ID})
	return OutcomeHandled, nil
}

// handleVoidPayment turns a voided authorization or sale into a full refund
func (e *Engine) handleVoidPayment(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	if order.HasMeta(domain.MetaPoyntVoidRemoteID) {
		return OutcomeDuplicate, nil
	}

	statusBefore := order.Status
	var pending events.Batch
	pending.Add(domain.BeforeCreateVoidEvent{Transaction: txn, OrderID: order.ID})

	existing, err := e.lifecycle.Refunds(ctx, db, order.ID)
	if err != nil {
		return "", err
	}
	if amount := refund.Remaining(order, existing); amount.IsPositive() {
		_, err := e.lifecycle.CreateRefund(ctx, db, order, refund.Request{
			Amount:        amount,
			Reason:        txn.Reason,
			PaymentMethod: e.provider,
			Restock:       true,
			Origin:        domain.EventOriginRemote,
			Meta:          e.refundMeta(domain.MetaPoyntVoidRemoteID, txn),
		}, &pending)
		if err != nil {
			return e.refundRejected(order, txn, err)
		}
	}
	batch.Append(&pending)

	if err := e.setMeta(ctx, db, order, domain.MetaPoyntVoidRemoteID, txn.RemoteID); err != nil {
		return "", err
	}
	if err := e.setMeta(ctx, db, order, domain.MetaStatusBeforeRefund, string(statusBefore)); err != nil {
		return "", err
	}
	if err := e.persistTransaction(ctx, db, order, txn); err != nil {
		return "", err
	}

	batch.Add(domain.VoidTransactionEvent{Transaction: txn, OrderID: order.ID})
	return OutcomeHandled, nil
}

// handleVoidRefund deletes the local refund a remote refund void reverses
// and restores the status the order had before that refund.
func (e *Engine) handleVoidRefund(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error) {
	r, err := e.resolver.FindRefundForTransaction(ctx, db, txn.RemoteParentID)
	if err != nil {
		return "", err
	}
	if r == nil {
		return OutcomeDuplicate, nil
	}

	if err := e.lifecycle.DeleteRefund(ctx, db, r); err != nil {
		return "", err
	}
	batch.Add(domain.VoidTransactionEvent{Transaction: txn, OrderID: order.ID})

	if order.GetMeta(domain.MetaPoyntRefundRemoteID) == txn.RemoteParentID {
		if err := e.deleteMeta(ctx, db, order, domain.MetaPoyntRefundRemoteID); err != nil {
			return "", err
		}
	}

	if before := domain.OrderStatus(order.GetMeta(domain.MetaStatusBeforeRefund)); before.Valid() {
		note := fmt.Sprintf("Poynt refund %s voided.", txn.RemoteParentID)
		if err := e.lifecycle.UpdateStatus(ctx, db, order, before, note, domain.EventOriginRemote, batch); err != nil {
			return "", err
		}
		if err := e.deleteMeta(ctx, db, order, domain.MetaStatusBeforeRefund); err != nil {
			return "", err
		}
	}
	return OutcomeHandled, nil
}

// refundRejected drops remote refunds the local order cannot absorb, such
// as an amount above what is left to refund. Storage errors still fail.
func (e *Engine) refundRejected(order *domain.Order, txn *domain.Transaction, err error) (Outcome, error) {
	if !errors.Is(err, domain.ErrValidationAmountInvalid) {
		return "", err
	}
	e.logger.Warn("Remote refund does not fit the local order, dropping",
		zap.Int64("order_id", order.ID),
		zap.String("remote_id", txn.RemoteID),
		zap.String("amount", txn.TotalAmount.String()),
		zap.Error(err),
	)
	return OutcomeDropped, nil
}

func (e *Engine) declined(order *domain.Order, txn *domain.Transaction) Outcome {
	e.logger.Info("Ignoring declined transaction",
		zap.Int64("order_id", order.ID),
		zap.String("remote_id", txn.RemoteID),
		zap.String("kind", string(txn.Kind)),
		zap.String("result_code", txn.ResultCode),
	)
	return OutcomeDropped
}

func (e *Engine) refundMeta(key string, txn *domain.Transaction) map[string]string {
	meta := map[string]string{key: txn.RemoteID}
	if raw, err := txn.Marshal(); err == nil {
		meta[domain.TransactionMetaKey(e.provider, txn.SlotKind())] = raw
	}
	return meta
}

// persistTransaction stores the record and remote id in the kind's slot; last write wins
func (e *Engine) persistTransaction(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction) error {
	raw, err := txn.Marshal()
	if err != nil {
		return err
	}
	slot := txn.SlotKind()
	if err := e.setMeta(ctx, db, order, domain.TransactionMetaKey(e.provider, slot), raw); err != nil {
		return err
	}
	return e.setMeta(ctx, db, order, domain.RemoteIDMetaKey(e.provider, slot), txn.RemoteID)
}

func (e *Engine) storedTransaction(order *domain.Order, kind domain.TransactionKind) *domain.Transaction {
	raw := order.GetMeta(domain.TransactionMetaKey(e.provider, kind))
	if raw == "" {
		return nil
	}
	txn, err := domain.UnmarshalTransaction(raw)
	if err != nil {
		e.logger.Warn("Stored transaction is unreadable",
			zap.Int64("order_id", order.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil
	}
	return txn
}

func (e *Engine) setMeta(ctx context.Context, db ports.DBTX, order *domain.Order, key, value string) error {
	if err := e.orders.SetMeta(ctx, db, order.ID, key, value); err != nil {
		return fmt.Errorf("set %s on order %d: %w", key, order.ID, err)
	}
	order.SetMeta(key, value)
	return nil
}

func (e *Engine) deleteMeta(ctx context.Context, db ports.DBTX, order *domain.Order, key string) error {
	if err := e.orders.DeleteMeta(ctx, db, order.ID, key); err != nil {
		return fmt.Errorf("delete %s on order %d: %w", key, order.ID, err)
	}
	delete(order.Meta, key)
	return nil
}
