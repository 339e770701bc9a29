// Package router wires the HTTP handlers onto a chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kevin07696/poynt-sync-service/internal/handlers/orders"
	"github.com/kevin07696/poynt-sync-service/internal/handlers/webhook"
	"github.com/kevin07696/poynt-sync-service/pkg/middleware"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"github.com/kevin07696/poynt-sync-service/pkg/shutdown"
	"go.uber.org/zap"
)

// Deps are the handlers and middleware the router mounts
type Deps struct {
	Webhook     *webhook.Handler
	Orders      *orders.Handler
	RateLimiter *middleware.RateLimiter
	InFlight    *shutdown.InFlightTracker
	Timeouts    *resilience.TimeoutConfig
	Logger      *zap.Logger
}

// New builds the public router
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.HTTPMetrics)
	if d.InFlight != nil {
		r.Use(d.InFlight.Middleware)
	}
	r.Use(middleware.Timeout(d.Timeouts, d.Logger))

	r.Route("/webhooks", func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}
		r.Post("/poynt", d.Webhook.Receive)
	})

	r.Route("/orders/{id}", func(r chi.Router) {
		r.Use(d.Orders.Authenticate)
		r.Post("/status", d.Orders.UpdateStatus)
		r.Post("/refunds", d.Orders.CreateRefund)
	})

	return r
}
