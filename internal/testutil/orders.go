package testutil

import (
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/shopspring/decimal"
)

// NewOrder builds a USD order with one product line of the given total
func NewOrder(status domain.OrderStatus, total string, meta map[string]string) *domain.Order {
	amount := decimal.RequireFromString(total)
	if meta == nil {
		meta = make(map[string]string)
	}
	return &domain.Order{
		Status:        status,
		Currency:      "USD",
		PaymentMethod: domain.ProviderPoynt,
		Total:         amount,
		Meta:          meta,
		Items: []domain.LineItem{{
			Name:     "Widget",
			Type:     domain.LineItemTypeProduct,
			Total:    amount,
			TaxTotal: decimal.Zero,
			Quantity: 1,
			Taxable:  true,
		}},
	}
}
