package middleware

import (
	"net/http"

	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"go.uber.org/zap"
)

// Timeout applies the handler budget from the timeout hierarchy. A request
// context that already carries a deadline is left alone.
func Timeout(cfg *resilience.TimeoutConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := cfg.HandlerContext(r.Context())
			defer cancel()

			logger.Debug("Applied handler timeout",
				zap.String("path", r.URL.Path),
				zap.Duration("timeout", cfg.HTTPHandler),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
