package orders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/services/orders"
	"github.com/kevin07696/poynt-sync-service/internal/testutil"
	"github.com/kevin07696/poynt-sync-service/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRouter(t *testing.T, token string) (http.Handler, *testutil.MemoryStore, *mocks.EventRecorder) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := testutil.NewMemoryStore()
	recorder := &mocks.EventRecorder{}
	h := NewHandler(orders.NewService(store, store, store, recorder, nil, logger), token, logger)

	r := chi.NewRouter()
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Post("/status", h.UpdateStatus)
		r.Post("/refunds", h.CreateRefund)
	})
	return r, store, recorder
}

func post(t *testing.T, h http.Handler, path, body, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, store, recorder := newRouter(t, "")
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "10.00", nil))
	path := "/orders/" + itoa(order.ID) + "/status"

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{name: "completes_order", path: path, body: `{"status":"completed"}`, wantStatus: http.StatusOK},
		{name: "unknown_status", path: path, body: `{"status":"shipped"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed_body", path: path, body: `{`, wantStatus: http.StatusBadRequest},
		{name: "bad_order_id", path: "/orders/abc/status", body: `{"status":"completed"}`, wantStatus: http.StatusBadRequest},
		{name: "missing_order", path: "/orders/999/status", body: `{"status":"completed"}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := post(t, h, tt.path, tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, domain.OrderStatusCompleted, store.Order(order.ID).Status)
	require.Len(t, recorder.Events, 1)
	assert.Equal(t, domain.EventOriginLocal, recorder.Events[0].(domain.OrderStatusChangedEvent).Origin)
}

func TestHandler_CreateRefund(t *testing.T) {
	h, store, recorder := newRouter(t, "")
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "10.00", nil))
	path := "/orders/" + itoa(order.ID) + "/refunds"

	rec, body := post(t, h, path, `{"amount":"4.00","reason":"damaged","restock":true}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "4.00", body["amount"])
	assert.Equal(t, []string{domain.EventRefundCreated}, recorder.Names())

	rec, _ = post(t, h, path, `{"amount":"7.00"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "more than the remaining amount")

	rec, _ = post(t, h, path, `{"amount":"ten"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, store.Refunds(order.ID), 1)
}

func TestHandler_Authenticate(t *testing.T) {
	h, store, _ := newRouter(t, "host-token")
	order := store.PutOrder(testutil.NewOrder(domain.OrderStatusProcessing, "10.00", nil))
	path := "/orders/" + itoa(order.ID) + "/status"

	rec, _ := post(t, h, path, `{"status":"completed"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, path, `{"status":"completed"}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, path, `{"status":"completed"}`, "host-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
