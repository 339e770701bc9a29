package ordersync

import (
	"errors"
	"testing"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/testutil"
	"github.com/kevin07696/poynt-sync-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	store   *testutil.MemoryStore
	gateway *mocks.MockPoyntGateway
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemoryStore()
	gateway := &mocks.MockPoyntGateway{}
	t.Cleanup(func() { gateway.AssertExpectations(t) })

	svc := NewService(store, gateway, store, store, zaptest.NewLogger(t))
	svc.newID = func() string { return "uuid-1" }
	return &fixture{store: store, gateway: gateway, svc: svc}
}

func (f *fixture) refund(t *testing.T, order *domain.Order, amount string, meta map[string]string) *domain.Refund {
	t.Helper()
	r := &domain.Refund{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString(amount),
		Reason:  "damaged",
		Meta:    meta,
	}
	require.NoError(t, f.store.CreateRefund(t.Context(), nil, r))
	return r
}

func itemsNotFulfilled() error {
	return domain.NewRemoteError(domain.ErrCompleteRemoteOrder, "complete order ord-1", 400,
		ports.RemoteCodeItemsNotFulfilled, "items not fulfilled")
}

func TestService_OrderCompleted(t *testing.T) {
	tests := []struct {
		name       string
		meta       map[string]string
		setup      func(g *mocks.MockPoyntGateway)
		wantResult Result
		wantErr    error
	}{
		{
			name: "completes_remote_order",
			meta: map[string]string{domain.MetaPoyntOrderRemoteID: "ord-1"},
			setup: func(g *mocks.MockPoyntGateway) {
				g.On("CompleteOrder", mock.Anything, "ord-1").Return(nil).Once()
			},
			wantResult: ResultCompleted,
		},
		{
			name: "retries_once_with_force_complete",
			meta: map[string]string{domain.MetaPoyntOrderRemoteID: "ord-1"},
			setup: func(g *mocks.MockPoyntGateway) {
				g.On("CompleteOrder", mock.Anything, "ord-1").Return(itemsNotFulfilled()).Once()
				g.On("ForceCompleteOrder", mock.Anything, "ord-1").Return(nil).Once()
			},
			wantResult: ResultForceCompleted,
		},
		{
			name: "force_complete_failure_is_returned",
			meta: map[string]string{domain.MetaPoyntOrderRemoteID: "ord-1"},
			setup: func(g *mocks.MockPoyntGateway) {
				g.On("CompleteOrder", mock.Anything, "ord-1").Return(itemsNotFulfilled()).Once()
				g.On("ForceCompleteOrder", mock.Anything, "ord-1").
					Return(domain.NewRemoteError(domain.ErrCompleteRemoteOrder, "force complete order ord-1", 500, "", "boom")).Once()
			},
			wantResult: ResultFailed,
			wantErr:    domain.ErrCompleteRemoteOrder,
		},
		{
			name: "other_failure_is_not_retried",
			meta: map[string]string{domain.MetaPoyntOrderRemoteID: "ord-1"},
			setup: func(g *mocks.MockPoyntGateway) {
				g.On("CompleteOrder", mock.Anything, "ord-1").
					Return(domain.NewRemoteError(domain.ErrCompleteRemoteOrder, "complete order ord-1", 409, "INVALID_STATE", "nope")).Once()
			},
			wantResult: ResultFailed,
			wantErr:    domain.ErrCompleteRemoteOrder,
		},
		{
			name:       "order_without_remote_reference_is_skipped",
			setup:      func(g *mocks.MockPoyntGateway) {},
			wantResult: ResultSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.gateway)
			order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusCompleted, "10.00", tt.meta))

			result, err := f.svc.OrderCompleted(t.Context(), order.ID)

			assert.Equal(t, tt.wantResult, result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_OrderCancelled(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusCancelled, "10.00", map[string]string{
		domain.MetaPoyntOrderRemoteID: "ord-9",
	}))
	f.gateway.On("CancelOrder", mock.Anything, "ord-9").Return(nil).Once()

	result, err := f.svc.OrderCancelled(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultCancelled, result)

	_, err = f.svc.OrderCancelled(t.Context(), 999)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestService_OrderRefunded_Guard(t *testing.T) {
	for _, key := range []string{domain.MetaPoyntRefundRemoteID, domain.MetaPoyntVoidRemoteID} {
		t.Run(key, func(t *testing.T) {
			f := newFixture(t)
			order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "20.00", map[string]string{
				domain.MetaPoyntPaymentRemoteID: "pay-1",
				domain.MetaIsCaptured:           domain.BoolMeta(true),
			}))
			r := f.refund(t, order, "5.00", map[string]string{key: "remote-1"})

			result, err := f.svc.OrderRefunded(t.Context(), order.ID, r.ID)
			require.NoError(t, err)
			assert.Equal(t, ResultAlreadySynced, result)
			f.gateway.AssertNotCalled(t, "RefundTransaction", mock.Anything, mock.Anything)
		})
	}
}

func TestService_OrderRefunded_VoidsAuthorization(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusOnHold, "20.00", map[string]string{
		domain.MetaPoyntPaymentRemoteID: "auth-1",
	}))
	r := f.refund(t, order, "20.00", nil)
	f.gateway.On("VoidTransaction", mock.Anything, "auth-1").
		Return(&ports.RemoteTransaction{ID: "void-1", Action: ports.RemoteActionVoid}, nil).Once()

	result, err := f.svc.OrderRefunded(t.Context(), order.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultVoided, result)

	stored := f.store.Refunds(order.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, "void-1", stored[0].GetMeta(domain.MetaPoyntVoidRemoteID))
	assert.Equal(t, "void-1", f.store.Order(order.ID).GetMeta(domain.MetaPoyntVoidRemoteID))
	f.gateway.AssertNotCalled(t, "RefundTransaction", mock.Anything, mock.Anything)
}

func TestService_OrderRefunded_ManualRefund(t *testing.T) {
	tests := []struct {
		name           string
		meta           map[string]string
		wantParent     string
		wantProvider   string
		wantFullRecord bool
	}{
		{
			name: "poynt_capture_is_parent",
			meta: map[string]string{
				domain.MetaPoyntPaymentRemoteID: "auth-1",
				domain.MetaPoyntCaptureRemoteID: "cap-1",
				domain.MetaIsCaptured:           domain.BoolMeta(true),
			},
			wantParent:     "cap-1",
			wantProvider:   domain.ProviderManual,
			wantFullRecord: true,
		},
		{
			name: "sale_payment_is_parent",
			meta: map[string]string{
				domain.MetaPoyntPaymentRemoteID: "sale-1",
				domain.MetaIsCaptured:           domain.BoolMeta(true),
				domain.MetaProviderName:         domain.ProviderPoynt,
			},
			wantParent:     "sale-1",
			wantProvider:   domain.ProviderPoynt,
			wantFullRecord: true,
		},
		{
			name: "third_party_gateway_keeps_marker_only",
			meta: map[string]string{
				domain.MetaPoyntPaymentRemoteID: "sale-2",
				domain.MetaIsCaptured:           domain.BoolMeta(true),
				domain.MetaProviderName:         "stripe",
			},
			wantParent:   "sale-2",
			wantProvider: "stripe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "20.00", tt.meta))
			r := f.refund(t, order, "7.50", nil)

			f.gateway.On("RefundTransaction", mock.Anything, mock.MatchedBy(func(req *ports.RefundRequest) bool {
				return req.ID == "uuid-1" &&
					req.ParentID == tt.wantParent &&
					req.Amount == 750 &&
					req.Currency == "USD" &&
					req.FundingSourceProvider == tt.wantProvider &&
					req.Notes == "damaged"
			})).Return(&ports.RemoteTransaction{
				ID: "ref-1", ParentID: tt.wantParent, Action: ports.RemoteActionRefund,
				Status: "REFUNDED", Currency: "USD", TransactionAmount: 750,
			}, nil).Once()

			result, err := f.svc.OrderRefunded(t.Context(), order.ID, r.ID)
			require.NoError(t, err)
			assert.Equal(t, ResultRefunded, result)

			stored := f.store.Refunds(order.ID)[0]
			assert.Equal(t, "ref-1", stored.GetMeta(domain.MetaPoyntRefundRemoteID))
			assert.Equal(t, tt.wantProvider, stored.GetMeta(domain.MetaRefundFundingSourceProvider))
			assert.Equal(t, "ref-1", f.store.Order(order.ID).GetMeta(domain.MetaPoyntRefundRemoteID))

			raw := stored.GetMeta(domain.TransactionMetaKey(domain.ProviderPoynt, domain.TransactionKindRefund))
			if !tt.wantFullRecord {
				assert.Empty(t, raw)
				return
			}
			txn, err := domain.UnmarshalTransaction(raw)
			require.NoError(t, err)
			assert.Equal(t, domain.TransactionKindRefund, txn.Kind)
			assert.Equal(t, domain.TransactionSourceLocal, txn.Source)
			assert.Equal(t, "ref-1", txn.RemoteID)
			assert.Equal(t, order.ID, txn.OrderID)
		})
	}
}

func TestService_OrderRefunded_NoParentSkipped(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "20.00", nil))
	r := f.refund(t, order, "5.00", nil)

	result, err := f.svc.OrderRefunded(t.Context(), order.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, result)
}

func TestService_OrderRefunded_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "20.00", map[string]string{
		domain.MetaPoyntCaptureRemoteID: "cap-1",
		domain.MetaIsCaptured:           domain.BoolMeta(true),
	}))
	r := f.refund(t, order, "5.00", nil)
	f.gateway.On("RefundTransaction", mock.Anything, mock.Anything).
		Return(nil, domain.NewRemoteError(domain.ErrRefundRemoteOrder, "refund cap-1", 500, "", "down")).Once()

	result, err := f.svc.OrderRefunded(t.Context(), order.ID, r.ID)
	assert.Equal(t, ResultFailed, result)
	assert.ErrorIs(t, err, domain.ErrRefundRemoteOrder)
	assert.Empty(t, f.store.Refunds(order.ID)[0].GetMeta(domain.MetaPoyntRefundRemoteID))
}

func TestHookAdapter_SwallowsAndJournalsFailures(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusCompleted, "10.00", map[string]string{
		domain.MetaPoyntOrderRemoteID: "ord-1",
	}))
	f.gateway.On("CompleteOrder", mock.Anything, "ord-1").
		Return(domain.NewRemoteError(domain.ErrCompleteRemoteOrder, "complete order ord-1", 503, "", "unavailable")).Once()

	bus := events.NewBus(zaptest.NewLogger(t))
	hook := NewHookAdapter(f.svc, f.store, zaptest.NewLogger(t))
	hook.Register(bus)

	err := bus.Publish(t.Context(), domain.OrderStatusChangedEvent{
		OrderID: order.ID, From: domain.OrderStatusProcessing, To: domain.OrderStatusCompleted, Origin: domain.EventOriginLocal,
	})
	require.NoError(t, err, "sync failures never reach the publisher")

	failures, err := f.store.ListUnresolved(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, OperationComplete, failures[0].Operation)
	assert.Equal(t, order.ID, failures[0].OrderID)
	assert.Contains(t, failures[0].Error, "unavailable")

	// resync succeeds once Poynt is back
	f.gateway.On("CompleteOrder", mock.Anything, "ord-1").Return(nil).Once()
	report, err := hook.Resync(t.Context(), 10)
	require.NoError(t, err)
	assert.Equal(t, ResyncReport{Resolved: 1}, report)

	failures, err = f.store.ListUnresolved(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestHookAdapter_ResyncKeepsFailing(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusCancelled, "10.00", map[string]string{
		domain.MetaPoyntOrderRemoteID: "ord-2",
	}))
	require.NoError(t, f.store.Record(t.Context(), &domain.SyncFailure{
		Operation: OperationCancel, OrderID: order.ID, Error: "earlier",
	}))
	f.gateway.On("CancelOrder", mock.Anything, "ord-2").Return(errors.New("still down")).Once()

	hook := NewHookAdapter(f.svc, f.store, zaptest.NewLogger(t))
	report, err := hook.Resync(t.Context(), 10)
	require.NoError(t, err)
	assert.Equal(t, ResyncReport{Failed: 1}, report)

	failures, err := f.store.ListUnresolved(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Attempts)
	assert.Equal(t, "still down", failures[0].Error)
}

func TestHookAdapter_IgnoresRemoteOriginAndOtherStatuses(t *testing.T) {
	f := newFixture(t)
	order := f.store.PutOrder(testutil.NewOrder(domain.OrderStatusCompleted, "10.00", map[string]string{
		domain.MetaPoyntOrderRemoteID: "ord-1",
	}))

	bus := events.NewBus(zaptest.NewLogger(t))
	NewHookAdapter(f.svc, f.store, zaptest.NewLogger(t)).Register(bus)

	require.NoError(t, bus.Publish(t.Context(), domain.OrderStatusChangedEvent{
		OrderID: order.ID, To: domain.OrderStatusCompleted, Origin: domain.EventOriginRemote,
	}))
	require.NoError(t, bus.Publish(t.Context(), domain.OrderStatusChangedEvent{
		OrderID: order.ID, To: domain.OrderStatusProcessing, Origin: domain.EventOriginLocal,
	}))
	require.NoError(t, bus.Publish(t.Context(), domain.RefundCreatedEvent{
		OrderID: order.ID, RefundID: 1, Origin: domain.EventOriginRemote,
	}))

	f.gateway.AssertNotCalled(t, "CompleteOrder", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "RefundTransaction", mock.Anything, mock.Anything)
}
