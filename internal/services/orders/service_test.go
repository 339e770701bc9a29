package orders

import (
	"testing"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/services/refund"
	"github.com/kevin07696/poynt-sync-service/internal/testutil"
	"github.com/kevin07696/poynt-sync-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (*Service, *testutil.MemoryStore, *mocks.EventRecorder) {
	t.Helper()
	store := testutil.NewMemoryStore()
	recorder := &mocks.EventRecorder{}
	return NewService(store, store, store, recorder, nil, zaptest.NewLogger(t)), store, recorder
}

func TestService_UpdateStatus(t *testing.T) {
	svc, store, _ := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusOnHold, "20.00", nil))

	var batch events.Batch
	require.NoError(t, svc.UpdateStatus(t.Context(), nil, order, domain.OrderStatusProcessing, "", domain.EventOriginRemote, &batch))
	require.NoError(t, svc.UpdateStatus(t.Context(), nil, order, domain.OrderStatusProcessing, "", domain.EventOriginRemote, &batch))

	assert.Equal(t, domain.OrderStatusProcessing, store.Order(order.ID).Status)
	require.Equal(t, 1, batch.Len(), "same-status update is a no-op")
	evt := batch.Events()[0].(domain.OrderStatusChangedEvent)
	assert.Equal(t, domain.OrderStatusOnHold, evt.From)
	assert.Equal(t, domain.OrderStatusProcessing, evt.To)
	assert.Equal(t, domain.EventOriginRemote, evt.Origin)
	assert.Len(t, store.Notes(order.ID), 1)
}

func TestService_PaymentComplete(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.OrderStatus
		wantStatus domain.OrderStatus
		wantPaid   bool
	}{
		{name: "pending_becomes_processing", status: domain.OrderStatusPending, wantStatus: domain.OrderStatusProcessing, wantPaid: true},
		{name: "on_hold_becomes_processing", status: domain.OrderStatusOnHold, wantStatus: domain.OrderStatusProcessing, wantPaid: true},
		{name: "completed_untouched", status: domain.OrderStatusCompleted, wantStatus: domain.OrderStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			order := store.PutOrder(testutil.NewOrder(tt.status, "20.00", nil))

			var batch events.Batch
			require.NoError(t, svc.PaymentComplete(t.Context(), nil, order, "sale-1", domain.EventOriginRemote, &batch))

			stored := store.Order(order.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
			if tt.wantPaid {
				assert.Equal(t, "sale-1", stored.TransactionRef)
				assert.NotNil(t, stored.PaidAt)
			} else {
				assert.Empty(t, stored.TransactionRef)
				assert.Zero(t, batch.Len())
			}
		})
	}
}

func TestService_CreateRefund(t *testing.T) {
	svc, store, _ := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "30.00", nil))

	var batch events.Batch
	partial, err := svc.CreateRefund(t.Context(), nil, order, refund.Request{
		Amount: decimal.RequireFromString("10.00"),
		Origin: domain.EventOriginRemote,
	}, &batch)
	require.NoError(t, err)
	assert.Empty(t, partial.Items)
	assert.Equal(t, domain.OrderStatusProcessing, store.Order(order.ID).Status)

	_, err = svc.CreateRefund(t.Context(), nil, order, refund.Request{
		Amount: decimal.RequireFromString("20.00"),
		Origin: domain.EventOriginRemote,
	}, &batch)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusRefunded, store.Order(order.ID).Status)
	assert.Len(t, store.Refunds(order.ID), 2)

	var names []string
	for _, e := range batch.Events() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{domain.EventRefundCreated, domain.EventRefundCreated, domain.EventOrderStatusChanged}, names)

	_, err = svc.CreateRefund(t.Context(), nil, order, refund.Request{Amount: decimal.RequireFromString("0.01")}, &batch)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationAmountInvalid))
}

func TestService_DeleteRefund(t *testing.T) {
	svc, store, _ := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "30.00", nil))

	var batch events.Batch
	r, err := svc.CreateRefund(t.Context(), nil, order, refund.Request{Amount: decimal.RequireFromString("5.00")}, &batch)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRefund(t.Context(), nil, r))
	assert.Empty(t, store.Refunds(order.ID))
	assert.Error(t, svc.DeleteRefund(t.Context(), nil, r))
}

func TestService_TransitionStatus(t *testing.T) {
	svc, store, recorder := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "30.00", nil))

	updated, err := svc.TransitionStatus(t.Context(), order.ID, domain.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, updated.Status)
	require.Len(t, recorder.Events, 1)
	assert.Equal(t, domain.EventOriginLocal, recorder.Events[0].(domain.OrderStatusChangedEvent).Origin)

	_, err = svc.TransitionStatus(t.Context(), order.ID, "shipped")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))

	_, err = svc.TransitionStatus(t.Context(), 9999, domain.OrderStatusCompleted)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestService_CreateLocalRefund_RollsBackOnError(t *testing.T) {
	svc, store, recorder := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "30.00", nil))

	created, err := svc.CreateLocalRefund(t.Context(), order.ID, decimal.RequireFromString("30.00"), "customer request", true)
	require.NoError(t, err)
	assert.Len(t, created.Items, 1)
	assert.Equal(t, []string{domain.EventRefundCreated, domain.EventOrderStatusChanged}, recorder.Names())

	_, err = svc.CreateLocalRefund(t.Context(), order.ID, decimal.RequireFromString("1.00"), "", false)
	require.Error(t, err)
	assert.Len(t, store.Refunds(order.ID), 1)
	assert.Equal(t, 1, store.Rollbacks)
	assert.Len(t, recorder.Events, 2, "nothing published after a rollback")
}

func TestService_ApplyRemoteStatus(t *testing.T) {
	svc, store, recorder := newTestService(t)
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "20.00", nil))

	changed, err := svc.ApplyRemoteStatus(t.Context(), order.ID, domain.OrderStatusCancelled, "Poynt order cancelled.")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.ApplyRemoteStatus(t.Context(), order.ID, domain.OrderStatusCancelled, "Poynt order cancelled.")
	require.NoError(t, err)
	assert.False(t, changed)

	require.Len(t, recorder.Events, 1)
	evt := recorder.Events[0].(domain.OrderStatusChangedEvent)
	assert.Equal(t, domain.EventOriginRemote, evt.Origin)
	assert.Equal(t, domain.OrderStatusCancelled, store.Order(order.ID).Status)
}
