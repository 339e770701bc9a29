// Package resolver locates local orders and refunds for remote Poynt ids
// through the provider metadata index.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Resolver finds local objects by _{provider}_{kind}_remoteId metadata
type Resolver struct {
	orders   ports.OrderRepository
	refunds  ports.RefundRepository
	provider string
	logger   *zap.Logger
}

// New creates a resolver for the given provider's metadata slots
func New(orders ports.OrderRepository, refunds ports.RefundRepository, provider string, logger *zap.Logger) *Resolver {
	return &Resolver{orders: orders, refunds: refunds, provider: provider, logger: logger}
}

// FindOrderForTransaction returns the order whose kind slot holds remoteID,
// or nil when none does.
func (r *Resolver) FindOrderForTransaction(ctx context.Context, db ports.DBTX, remoteID string, kind domain.TransactionKind) (*domain.Order, error) {
	return r.findOrder(ctx, db, domain.RemoteIDMetaKey(r.provider, kind), remoteID)
}

// FindOrderByRemoteOrderID returns the order mirrored as remoteOrderID, or nil
func (r *Resolver) FindOrderByRemoteOrderID(ctx context.Context, db ports.DBTX, remoteOrderID string) (*domain.Order, error) {
	return r.findOrder(ctx, db, domain.MetaPoyntOrderRemoteID, remoteOrderID)
}

// FindRefundForTransaction returns the refund record stamped with the remote refund id, or nil
func (r *Resolver) FindRefundForTransaction(ctx context.Context, db ports.DBTX, remoteID string) (*domain.Refund, error) {
	if remoteID == "" {
		return nil, nil
	}
	key := domain.RemoteIDMetaKey(r.provider, domain.TransactionKindRefund)
	id, err := r.orders.FindObjectIDByMeta(ctx, db, domain.ObjectTypeRefund, key, remoteID)
	if err != nil {
		return nil, fmt.Errorf("find refund by %s: %w", key, err)
	}
	if id == 0 {
		return nil, nil
	}

	refund, err := r.refunds.GetRefund(ctx, db, id)
	if errors.Is(err, domain.ErrRefundNotFound) {
		return nil, nil
	}
	return refund, err
}

type candidate struct {
	key   string
	value string
}

// ResolveForTransaction tries, in order, the transaction's own slot, its
// parent's slot(s), then the Poynt order reference. Nil means unmatched.
func (r *Resolver) ResolveForTransaction(ctx context.Context, db ports.DBTX, txn *domain.Transaction) (*domain.Order, error) {
	for _, c := range r.candidates(txn) {
		if c.value == "" {
			continue
		}
		order, err := r.findOrder(ctx, db, c.key, c.value)
		if err != nil {
			return nil, err
		}
		if order != nil {
			r.logger.Debug("Resolved order for transaction",
				zap.String("remote_id", txn.RemoteID),
				zap.String("kind", string(txn.Kind)),
				zap.String("matched_key", c.key),
				zap.Int64("order_id", order.ID),
			)
			return order, nil
		}
	}
	return nil, nil
}

func (r *Resolver) candidates(txn *domain.Transaction) []candidate {
	slot := func(kind domain.TransactionKind, value string) candidate {
		return candidate{key: domain.RemoteIDMetaKey(r.provider, kind), value: value}
	}

	out := []candidate{slot(txn.SlotKind(), txn.RemoteID)}

	switch txn.Kind {
	case domain.TransactionKindPayment, domain.TransactionKindAuthorization:
		// no parent
	case domain.TransactionKindCapture:
		out = append(out, slot(domain.TransactionKindPayment, txn.RemoteParentID))
	case domain.TransactionKindRefund:
		out = append(out,
			slot(domain.TransactionKindCapture, txn.RemoteParentID),
			slot(domain.TransactionKindPayment, txn.RemoteParentID),
		)
	case domain.TransactionKindVoid:
		switch txn.ParentType {
		case domain.ParentTypeCapture:
			out = append(out, slot(domain.TransactionKindCapture, txn.RemoteParentID))
		case domain.ParentTypeRefund:
			out = append(out, slot(domain.TransactionKindRefund, txn.RemoteParentID))
		default:
			// a void can name the voided authorization itself rather than a parent
			out = append(out,
				slot(domain.TransactionKindPayment, txn.RemoteParentID),
				slot(domain.TransactionKindPayment, txn.RemoteID),
			)
		}
	}

	return append(out, candidate{key: domain.MetaPoyntOrderRemoteID, value: txn.RemoteOrderID})
}

func (r *Resolver) findOrder(ctx context.Context, db ports.DBTX, key, value string) (*domain.Order, error) {
	if value == "" {
		return nil, nil
	}
	id, err := r.orders.FindObjectIDByMeta(ctx, db, domain.ObjectTypeOrder, key, value)
	if err != nil {
		return nil, fmt.Errorf("find order by %s: %w", key, err)
	}
	if id == 0 {
		return nil, nil
	}

	order, err := r.orders.GetOrder(ctx, db, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, nil
	}
	return order, err
}
