package reconciliation

import (
	"context"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/txadapter"
	"go.uber.org/zap"
)

func (e *Engine) authorized(ctx context.Context, id string) (*domain.Transaction, HandlerKind, error) {
	rt, err := e.fetch(ctx, id)
	if err != nil {
		return nil, HandlerAuthorization, err
	}
	return txadapter.Payment(rt), HandlerAuthorization, nil
}

// captured branches on the remote action: Poynt sends TRANSACTION_CAPTURED
// for two-step captures and for one-step sales alike.
func (e *Engine) captured(ctx context.Context, id string) (*domain.Transaction, HandlerKind, error) {
	rt, err := e.fetch(ctx, id)
	if err != nil {
		return nil, HandlerCapture, err
	}

	switch rt.Action {
	case ports.RemoteActionAuthorize:
		// the resource is the authorization; the capture hangs off its links
		captureID, ok := txadapter.LastCaptureLink(rt)
		if !ok {
			e.logger.Info("Authorization has no capture link, dropping",
				zap.String("transaction_id", rt.ID))
			return nil, HandlerCapture, nil
		}
		capture, err := e.fetch(ctx, captureID)
		if err != nil {
			return nil, HandlerCapture, err
		}
		txn := txadapter.Capture(capture)
		if txn.RemoteParentID == "" {
			txn.RemoteParentID = rt.ID
		}
		if txn.RemoteOrderID == "" {
			txn.RemoteOrderID = rt.OrderID
		}
		return txn, HandlerCapture, nil
	case ports.RemoteActionCapture:
		return txadapter.Capture(rt), HandlerCapture, nil
	case ports.RemoteActionSale:
		return txadapter.Payment(rt), HandlerSale, nil
	default:
		e.logger.Info("Dropping captured event with unexpected action",
			zap.String("transaction_id", rt.ID),
			zap.String("action", rt.Action))
		return nil, HandlerCapture, nil
	}
}

func (e *Engine) refunded(ctx context.Context, id string) (*domain.Transaction, HandlerKind, error) {
	rt, err := e.fetch(ctx, id)
	if err != nil {
		return nil, HandlerRefund, err
	}
	return txadapter.Refund(rt), HandlerRefund, nil
}

func (e *Engine) voided(ctx context.Context, id string) (*domain.Transaction, HandlerKind, error) {
	rt, err := e.fetch(ctx, id)
	if err != nil {
		return nil, HandlerVoid, err
	}
	return txadapter.Void(rt), HandlerVoid, nil
}
