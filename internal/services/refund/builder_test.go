package refund

import (
	"testing"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            11,
		Currency:      "USD",
		PaymentMethod: domain.ProviderPoynt,
		Total:         decimal.RequireFromString("55.00"),
		Items: []domain.LineItem{
			{ID: 1, Name: "Widget", Type: domain.LineItemTypeProduct, Quantity: 2,
				Total: decimal.RequireFromString("45.00"), TaxTotal: decimal.RequireFromString("5.00")},
			{ID: 2, Name: "Tip", Type: domain.LineItemTypeFee, Quantity: 1,
				Total: decimal.RequireFromString("5.00"), TaxTotal: decimal.Zero},
		},
	}
}

func TestBuilder_ParsesLineItemsOnlyForFullTotal(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		existing   []*domain.Refund
		wantParsed bool
	}{
		{name: "full_total", amount: "55.00", wantParsed: true},
		{name: "full_total_other_scale", amount: "55", wantParsed: true},
		{name: "partial", amount: "10.00", wantParsed: false},
		{name: "remaining_after_partial_is_not_total", amount: "45.00",
			existing: []*domain.Refund{{Amount: decimal.RequireFromString("10.00")}}, wantParsed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			b := &Builder{Parse: func(o *domain.Order) []domain.RefundItem {
				calls++
				return ParseLineItemsForRefund(o)
			}}

			refund, err := b.Build(testOrder(), tt.existing, Request{Amount: decimal.RequireFromString(tt.amount)})
			require.NoError(t, err)

			if tt.wantParsed {
				assert.Equal(t, 1, calls)
				assert.Len(t, refund.Items, 2)
			} else {
				assert.Zero(t, calls)
				assert.Empty(t, refund.Items)
			}
		})
	}
}

func TestBuilder_Validation(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name     string
		amount   string
		existing []*domain.Refund
	}{
		{name: "zero", amount: "0"},
		{name: "negative", amount: "-1.00"},
		{name: "exceeds_total", amount: "55.01"},
		{name: "exceeds_remaining", amount: "50.00",
			existing: []*domain.Refund{{Amount: decimal.RequireFromString("10.00")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(testOrder(), tt.existing, Request{Amount: decimal.RequireFromString(tt.amount)})
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationAmountInvalid))
		})
	}
}

func TestBuilder_Attribution(t *testing.T) {
	b := NewBuilder()

	refund, err := b.Build(testOrder(), nil, Request{
		Amount:  decimal.RequireFromString("5.00"),
		Reason:  "damaged",
		Restock: true,
		Meta:    map[string]string{domain.MetaPoyntRefundRemoteID: "ref-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderPoynt, refund.PaymentMethod, "defaults to the order's payment method")
	assert.Equal(t, "damaged", refund.Reason)
	assert.True(t, refund.Restock)
	assert.Equal(t, "ref-1", refund.GetMeta(domain.MetaPoyntRefundRemoteID))

	refund, err = b.Build(testOrder(), nil, Request{Amount: decimal.RequireFromString("5.00"), PaymentMethod: "stripe"})
	require.NoError(t, err)
	assert.Equal(t, "stripe", refund.PaymentMethod)
}

func TestParseLineItemsForRefund_UsesTotals(t *testing.T) {
	items := ParseLineItemsForRefund(testOrder())
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ItemID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.RequireFromString("45.00").Equal(items[0].RefundTotal))
	assert.True(t, decimal.RequireFromString("5.00").Equal(items[0].RefundTax))
}
