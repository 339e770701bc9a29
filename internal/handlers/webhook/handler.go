// Package webhook exposes the Poynt webhook endpoint.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/handlers"
	svc "github.com/kevin07696/poynt-sync-service/internal/services/webhook"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps a webhook body; Poynt notifications are small pointers
const DefaultMaxBodyBytes = 1 << 20

// Intake processes a raw delivery
type Intake interface {
	Receive(ctx context.Context, payload []byte, signature string) (*svc.Receipt, error)
}

// Handler serves POST /webhooks/poynt
type Handler struct {
	intake   Intake
	timeouts *resilience.TimeoutConfig
	maxBody  int64
	logger   *zap.Logger
}

// NewHandler creates a new webhook HTTP handler
func NewHandler(intake Intake, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Handler{intake: intake, timeouts: timeouts, maxBody: DefaultMaxBodyBytes, logger: logger}
}

// WithMaxBody overrides the body cap; non-positive values keep the default
func (h *Handler) WithMaxBody(n int64) *Handler {
	if n > 0 {
		h.maxBody = n
	}
	return h
}

// Receive reads the raw body, hands it to the intake and maps the result
// onto the status codes Poynt's redelivery logic understands: 2xx stops
// redelivery, anything else is retried.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, string(domain.ErrorCodeInvalidPayload), "body too large")
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, string(domain.ErrorCodeInvalidPayload), "unreadable body")
		return
	}

	ctx, cancel := h.timeouts.WebhookContext(r.Context())
	defer cancel()

	receipt, err := h.intake.Receive(ctx, payload, r.Header.Get(svc.SignatureHeader))
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Webhook delivery failed", zap.Int("status", status), zap.Error(err))
		}
		handlers.RespondError(w, h.logger, status, string(domain.GetErrorCode(err)), http.StatusText(status))
		return
	}

	handlers.RespondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":     true,
		"delivery_id": receipt.DeliveryID,
		"outcome":     receipt.Outcome,
	})
}

// StatusFor maps an intake error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest
	case domain.IsRemoteError(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
