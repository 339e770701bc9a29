// Package refund validates and builds refund records for an order.
package refund

import (
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Request describes a refund to record against an order
type Request struct {
	Meta          map[string]string
	Reason        string
	PaymentMethod string
	Amount        decimal.Decimal
	Origin        domain.EventOrigin
	Restock       bool
}

// LineItemParser turns an order's lines into refund lines
type LineItemParser func(order *domain.Order) []domain.RefundItem

// Builder validates a refund request against what has already been
// refunded. Line items are only itemised when the whole order total is
// refunded in one go; partial refunds carry an amount only.
type Builder struct {
	Parse LineItemParser
}

// NewBuilder returns a builder using ParseLineItemsForRefund
func NewBuilder() *Builder {
	return &Builder{Parse: ParseLineItemsForRefund}
}

// Remaining is the order total minus every existing refund
func Remaining(order *domain.Order, existing []*domain.Refund) decimal.Decimal {
	remaining := order.Total
	for _, r := range existing {
		remaining = remaining.Sub(r.Amount)
	}
	return remaining
}

// Build returns the refund to persist. It does not touch storage.
func (b *Builder) Build(order *domain.Order, existing []*domain.Refund, req Request) (*domain.Refund, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.WrapError(domain.ErrorCodeValidationAmountInvalid,
			"refund amount must be positive", domain.ErrValidationAmountInvalid).
			WithDetail("amount", req.Amount.String())
	}

	remaining := Remaining(order, existing)
	if req.Amount.GreaterThan(remaining) {
		return nil, domain.WrapError(domain.ErrorCodeValidationAmountInvalid,
			fmt.Sprintf("refund amount %s exceeds remaining %s", req.Amount.StringFixed(2), remaining.StringFixed(2)),
			domain.ErrValidationAmountInvalid).
			WithDetail("order_id", order.ID)
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = order.PaymentMethod
	}

	refund := &domain.Refund{
		OrderID:       order.ID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		PaymentMethod: paymentMethod,
		Restock:       req.Restock,
		Meta:          make(map[string]string, len(req.Meta)),
	}
	for k, v := range req.Meta {
		refund.Meta[k] = v
	}

	if req.Amount.Equal(order.Total) && b.Parse != nil {
		refund.Items = b.Parse(order)
	}
	return refund, nil
}

// ParseLineItemsForRefund refunds every line at its full quantity, using
// line totals (after discounts) and line tax totals.
func ParseLineItemsForRefund(order *domain.Order) []domain.RefundItem {
	items := make([]domain.RefundItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.RefundItem{
			ItemID:      item.ID,
			Quantity:    item.Quantity,
			RefundTotal: item.Total,
			RefundTax:   item.TaxTotal,
		})
	}
	return items
}
