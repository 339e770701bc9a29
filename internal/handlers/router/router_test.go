package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/poynt-sync-service/internal/handlers/orders"
	"github.com/kevin07696/poynt-sync-service/internal/handlers/webhook"
	ordersvc "github.com/kevin07696/poynt-sync-service/internal/services/orders"
	svc "github.com/kevin07696/poynt-sync-service/internal/services/webhook"
	"github.com/kevin07696/poynt-sync-service/internal/testutil"
	"github.com/kevin07696/poynt-sync-service/internal/testutil/mocks"
	"github.com/kevin07696/poynt-sync-service/pkg/middleware"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type okIntake struct{ calls int }

func (o *okIntake) Receive(context.Context, []byte, string) (*svc.Receipt, error) {
	o.calls++
	return &svc.Receipt{DeliveryID: "d", Outcome: svc.OutcomeIgnored}, nil
}

func TestRouter(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := testutil.NewMemoryStore()
	intake := &okIntake{}
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, logger)
	defer limiter.Shutdown()

	h := New(Deps{
		Webhook:     webhook.NewHandler(intake, resilience.TestTimeoutConfig(), logger),
		Orders:      orders.NewHandler(ordersvc.NewService(store, store, store, &mocks.EventRecorder{}, nil, logger), "", logger),
		RateLimiter: limiter,
		Timeouts:    resilience.TestTimeoutConfig(),
		Logger:      logger,
	})

	send := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/webhooks/poynt", `{}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/webhooks/poynt", `{}`), "webhook route is rate limited")
	assert.Equal(t, 1, intake.calls)

	assert.Equal(t, http.StatusNotFound, send(http.MethodPost, "/orders/1/status", `{"status":"completed"}`))
}
