package poynt

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"github.com/kevin07696/poynt-sync-service/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *countingTokens) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.BusinessID = "biz-1"
	cfg.Timeout = 2 * time.Second

	tokens := &countingTokens{StaticToken: "test-token"}
	gw := NewGateway(cfg, server.Client(), tokens, nil, security.NewZapLogger(zaptest.NewLogger(t)))
	return gw, tokens
}

type countingTokens struct {
	StaticToken
	invalidated int32
}

func (c *countingTokens) Invalidate() { atomic.AddInt32(&c.invalidated, 1) }

const capturedTxn = `{
	"id": "txn-cap",
	"parentId": "txn-auth",
	"action": "CAPTURE",
	"status": "CAPTURED",
	"amounts": {"currency": "USD", "transactionAmount": 5500, "tipAmount": 500},
	"processorResponse": {"status": "Successful", "statusCode": "1", "statusMessage": "Approved"},
	"references": [{"id": "ord-9", "type": "POYNT_ORDER"}],
	"links": [{"href": "txn-auth", "rel": "AUTHORIZE", "method": "GET"}]
}`

func TestGateway_GetTransaction(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/businesses/biz-1/transactions/txn-cap", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "1.2", r.Header.Get("api-version"))
		assert.NotEmpty(t, r.Header.Get("Poynt-Request-Id"))
		_, _ = io.WriteString(w, capturedTxn)
	})

	txn, err := gw.GetTransaction(t.Context(), "txn-cap")
	require.NoError(t, err)

	assert.Equal(t, "txn-cap", txn.ID)
	assert.Equal(t, "txn-auth", txn.ParentID)
	assert.Equal(t, ports.RemoteActionCapture, txn.Action)
	assert.Equal(t, "ord-9", txn.OrderID)
	assert.Equal(t, int64(5500), txn.TransactionAmount)
	assert.Equal(t, int64(500), txn.TipAmount)
	assert.Equal(t, "Successful", txn.ProcessorStatus)
	assert.Empty(t, txn.FundingSourceProvider)
	assert.False(t, txn.HasLink(ports.LinkRelCapture))
}

func TestGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		call       func(gw *Gateway) error
		wantKind   error
		wantCode   string
		wantStatus int
	}{
		{
			name:   "fetch_not_found",
			status: http.StatusNotFound,
			body:   `{"code":"RESOURCE_NOT_FOUND","developerMessage":"no such transaction"}`,
			call: func(gw *Gateway) error {
				_, err := gw.GetTransaction(t.Context(), "missing")
				return err
			},
			wantKind:   domain.ErrRemoteFetch,
			wantCode:   "RESOURCE_NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "complete_items_not_fulfilled",
			status: http.StatusBadRequest,
			body:   `{"code":"ITEMS_NOT_FULFILLED","message":"items not fulfilled"}`,
			call: func(gw *Gateway) error {
				return gw.CompleteOrder(t.Context(), "ord-1")
			},
			wantKind:   domain.ErrCompleteRemoteOrder,
			wantCode:   ports.RemoteCodeItemsNotFulfilled,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "cancel_server_error",
			status: http.StatusInternalServerError,
			body:   `{}`,
			call: func(gw *Gateway) error {
				return gw.CancelOrder(t.Context(), "ord-1")
			},
			wantKind:   domain.ErrCancelRemoteOrder,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := tt.call(gw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)

			var remoteErr *domain.RemoteError
			require.True(t, errors.As(err, &remoteErr))
			assert.Equal(t, tt.wantStatus, remoteErr.StatusCode)
			assert.Equal(t, tt.wantCode, remoteErr.Code)
		})
	}
}

func TestGateway_RefundTransaction(t *testing.T) {
	var captured refundRequest
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/businesses/biz-1/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{
			"id": "refund-uuid",
			"parentId": "txn-cap",
			"action": "REFUND",
			"status": "REFUNDED",
			"amounts": {"currency": "USD", "transactionAmount": 1000},
			"fundingSource": {"type": "CUSTOM_FUNDING_SOURCE", "customFundingSource": {"type": "OTHER", "provider": "manual", "accountId": "manual"}}
		}`)
	})

	txn, err := gw.RefundTransaction(t.Context(), &ports.RefundRequest{
		ID:       "refund-uuid",
		ParentID: "txn-cap",
		Currency: "USD",
		Amount:   1000,
	})
	require.NoError(t, err)

	assert.Equal(t, "refund-uuid", captured.ID)
	assert.Equal(t, "txn-cap", captured.ParentID)
	assert.Equal(t, ports.RemoteActionRefund, captured.Action)
	assert.Equal(t, fundingSourceCustom, captured.FundingSource.Type)
	require.NotNil(t, captured.FundingSource.CustomFundingSource)
	assert.Equal(t, domain.ProviderManual, captured.FundingSource.CustomFundingSource.Provider)
	assert.Equal(t, int64(1000), captured.Amounts.TransactionAmount)
	assert.Equal(t, "biz-1", captured.Context.BusinessID)

	assert.Equal(t, "refund-uuid", txn.ID)
	assert.Equal(t, domain.ProviderManual, txn.FundingSourceProvider)
}

func TestGateway_UnauthorizedInvalidatesToken(t *testing.T) {
	gw, tokens := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := gw.GetOrder(t.Context(), "ord-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.invalidated))
}

func TestGateway_GetOrder(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/biz-1/orders/ord-1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"ord-1","statuses":{"status":"CANCELLED"}}`)
	})

	order, err := gw.GetOrder(t.Context(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, ports.RemoteOrderStatusCancelled, order.Status)
	assert.JSONEq(t, `{"id":"ord-1","statuses":{"status":"CANCELLED"}}`, string(order.Raw))
}

func TestGateway_CircuitOpensOnServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.BusinessID = "biz-1"

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.MaxFailures = 2
	breakerCfg.Timeout = time.Minute
	breaker := resilience.NewCircuitBreaker(breakerCfg)

	gw := NewGateway(cfg, server.Client(), StaticToken("t"), breaker, security.NewZapLogger(zaptest.NewLogger(t)))

	for i := 0; i < 3; i++ {
		err := gw.CancelOrder(t.Context(), "ord-1")
		assert.ErrorIs(t, err, domain.ErrCancelRemoteOrder)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, resilience.StateOpen, breaker.State())
}
