// Package orders exposes the host-facing order lifecycle endpoints.
package orders

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/handlers"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Lifecycle is the slice of the order service the host drives
type Lifecycle interface {
	TransitionStatus(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error)
	CreateLocalRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string, restock bool) (*domain.Refund, error)
}

// StatusRequest is the body of POST /orders/{id}/status
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending on-hold processing completed cancelled refunded failed"`
}

// RefundRequest is the body of POST /orders/{id}/refunds
type RefundRequest struct {
	Amount  string `json:"amount" validate:"required,numeric"`
	Reason  string `json:"reason" validate:"max=500"`
	Restock bool   `json:"restock"`
}

// Handler serves the order endpoints. When token is set every request must
// carry it as a bearer token.
type Handler struct {
	lifecycle Lifecycle
	validate  *validator.Validate
	token     string
	logger    *zap.Logger
}

// NewHandler creates a new order HTTP handler
func NewHandler(lifecycle Lifecycle, token string, logger *zap.Logger) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		validate:  validator.New(),
		token:     token,
		logger:    logger,
	}
}

// Authenticate rejects requests without the host token
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" {
			got := r.Header.Get("Authorization")
			want := "Bearer " + h.token
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				h.logger.Warn("Unauthorized order request", zap.String("remote_addr", r.RemoteAddr))
				handlers.RespondError(w, h.logger, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UpdateStatus handles POST /orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.lifecycle.TransitionStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	handlers.RespondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":  true,
		"order_id": order.ID,
		"status":   order.Status,
	})
}

// CreateRefund handles POST /orders/{id}/refunds
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req RefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, string(domain.ErrorCodeValidationAmountInvalid), "invalid amount")
		return
	}

	created, err := h.lifecycle.CreateLocalRefund(r.Context(), orderID, amount, req.Reason, req.Restock)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	handlers.RespondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"order_id":  orderID,
		"refund_id": created.ID,
		"amount":    created.Amount.StringFixed(2),
	})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, string(domain.ErrorCodeValidationFailed), err.Error())
		return false
	}
	return true
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	code := string(domain.GetErrorCode(err))
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		handlers.RespondError(w, h.logger, http.StatusNotFound, string(domain.ErrorCodeOrderNotFound), "order not found")
	case errors.Is(err, domain.ErrValidationAmountInvalid), errors.Is(err, domain.ErrValidationFailed):
		handlers.RespondError(w, h.logger, http.StatusUnprocessableEntity, code, err.Error())
	default:
		h.logger.Error("Order request failed", zap.Error(err))
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, string(domain.ErrorCodeInternalError), "internal error")
	}
}
