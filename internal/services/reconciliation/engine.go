// Package reconciliation maps Poynt transaction webhooks onto idempotent
// local order mutations.
package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/services/orders"
	"github.com/kevin07696/poynt-sync-service/internal/services/resolver"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"go.uber.org/zap"
)

// HandlerKind selects the mutation applied to a resolved order
type HandlerKind string

const (
	HandlerNone          HandlerKind = "none"
	HandlerCapture       HandlerKind = "capture"
	HandlerSale          HandlerKind = "sale"
	HandlerAuthorization HandlerKind = "authorization"
	HandlerRefund        HandlerKind = "refund"
	HandlerVoid          HandlerKind = "void"
)

// Outcome says what happened to one transaction event
type Outcome string

const (
	// OutcomeHandled means the order was mutated
	OutcomeHandled Outcome = "handled"
	// OutcomeDropped means the event type or remote action is not handled
	OutcomeDropped Outcome = "dropped"
	// OutcomeUnmatched means no local order matched the transaction
	OutcomeUnmatched Outcome = "unmatched"
	// OutcomeDuplicate means the handler's guard found the work already done
	OutcomeDuplicate Outcome = "duplicate"
)

// Result describes a reconciled event
type Result struct {
	Transaction *domain.Transaction
	Outcome     Outcome
	Handler     HandlerKind
	OrderID     int64
}

// strategy fetches and adapts the remote transaction for one event type.
// A nil transaction drops the event.
type strategy func(ctx context.Context, resourceID string) (*domain.Transaction, HandlerKind, error)

type handlerFunc func(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction, batch *events.Batch) (Outcome, error)

// Engine reconciles transaction webhooks
type Engine struct {
	db        ports.DBPort
	gateway   ports.TransactionGateway
	orders    ports.OrderRepository
	lifecycle *orders.Service
	resolver  *resolver.Resolver
	publisher ports.EventPublisher
	provider  string
	logger    *zap.Logger

	strategies map[string]strategy
	handlers   map[HandlerKind]handlerFunc
	voids      map[domain.ParentType]handlerFunc
}

// NewEngine wires the dispatch tables
func NewEngine(
	db ports.DBPort,
	gateway ports.TransactionGateway,
	orderRepo ports.OrderRepository,
	lifecycle *orders.Service,
	res *resolver.Resolver,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		db:        db,
		gateway:   gateway,
		orders:    orderRepo,
		lifecycle: lifecycle,
		resolver:  res,
		publisher: publisher,
		provider:  domain.ProviderPoynt,
		logger:    logger,
	}

	e.strategies = map[string]strategy{
		domain.EventTypeTransactionAuthorized: e.authorized,
		domain.EventTypeTransactionCaptured:   e.captured,
		domain.EventTypeTransactionRefunded:   e.refunded,
		domain.EventTypeTransactionVoided:     e.voided,
	}
	e.handlers = map[HandlerKind]handlerFunc{
		HandlerCapture:       e.handleCapture,
		HandlerSale:          e.handleSale,
		HandlerAuthorization: e.handleAuthorization,
		HandlerRefund:        e.handleRefund,
		HandlerVoid:          e.handleVoid,
	}
	e.voids = map[domain.ParentType]handlerFunc{
		domain.ParentTypeCapture: e.handleVoidCapture,
		domain.ParentTypePayment: e.handleVoidPayment,
		domain.ParentTypeRefund:  e.handleVoidRefund,
	}
	return e
}

// Handles reports whether eventType has a strategy
func (e *Engine) Handles(eventType string) bool {
	_, ok := e.strategies[eventType]
	return ok
}

// Reconcile classifies the event, resolves the order and applies the
// matching handler inside one database transaction. Events queued by the
// handler are published after commit. Only remote fetch and storage
// failures are errors; everything else is reported through the Result.
func (e *Engine) Reconcile(ctx context.Context, eventType, resourceID string) (*Result, error) {
	result := &Result{Outcome: OutcomeDropped, Handler: HandlerNone}

	classify, ok := e.strategies[eventType]
	if !ok {
		e.logger.Debug("Dropping unhandled transaction event", zap.String("event_type", eventType))
		observability.RecordReconciliation(string(HandlerNone), string(OutcomeDropped))
		return result, nil
	}

	txn, kind, err := classify(ctx, resourceID)
	if err != nil {
		observability.RecordReconciliation(string(kind), "error")
		return nil, err
	}
	result.Handler = kind
	if txn == nil {
		observability.RecordReconciliation(string(kind), string(OutcomeDropped))
		return result, nil
	}
	result.Transaction = txn

	handle, ok := e.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for %s", kind)
	}

	var batch events.Batch
	err = e.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := e.resolver.ResolveForTransaction(ctx, tx, txn)
		if err != nil {
			return err
		}
		if order == nil {
			result.Outcome = OutcomeUnmatched
			return nil
		}
		result.OrderID = order.ID

		e.enrich(order, txn)

		result.Outcome, err = handle(ctx, tx, order, txn, &batch)
		return err
	})
	if err != nil {
		observability.RecordReconciliation(string(kind), "error")
		e.logger.Error("Reconciliation failed",
			zap.String("event_type", eventType),
			zap.String("remote_id", txn.RemoteID),
			zap.String("handler", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}

	if err := batch.Flush(ctx, e.publisher); err != nil {
		e.logger.Warn("Publishing reconciliation events failed",
			zap.Int64("order_id", result.OrderID),
			zap.Error(err),
		)
	}

	observability.RecordReconciliation(string(kind), string(result.Outcome))
	e.logger.Info("Transaction event reconciled",
		zap.String("event_type", eventType),
		zap.String("remote_id", txn.RemoteID),
		zap.String("handler", string(kind)),
		zap.String("outcome", string(result.Outcome)),
		zap.Int64("order_id", result.OrderID),
	)
	return result, nil
}

// HandleTransactionEvent reconciles a webhook delivery on /transactions
func (e *Engine) HandleTransactionEvent(ctx context.Context, event *domain.WebhookEvent) (*Result, error) {
	return e.Reconcile(ctx, event.EventType, event.ResourceID)
}

// enrich marks the transaction remote and backfills the provider name
func (e *Engine) enrich(order *domain.Order, txn *domain.Transaction) {
	txn.Source = domain.TransactionSourceRemote
	txn.OrderID = order.ID
	if txn.ProviderName == "" {
		txn.ProviderName = order.GetMeta(domain.MetaProviderName)
	}
}

// fetch is the single path to the remote transaction API
func (e *Engine) fetch(ctx context.Context, id string) (*ports.RemoteTransaction, error) {
	start := time.Now()
	rt, err := e.gateway.GetTransaction(ctx, id)
	observability.RecordRemoteFetch(err == nil)
	if err != nil {
		e.logger.Warn("Remote transaction fetch failed",
			zap.String("transaction_id", id),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	return rt, nil
}
