package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_IsApproved(t *testing.T) {
	tests := []struct {
		name     string
		status   TransactionStatus
		expected bool
	}{
		{name: "approved", status: TransactionStatusApproved, expected: true},
		{name: "declined", status: TransactionStatusDeclined, expected: false},
		{name: "empty", status: "", expected: false},
		// provider statuses are case sensitive
		{name: "lowercase", status: "approved", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := &Transaction{Status: tt.status}
			assert.Equal(t, tt.expected, txn.IsApproved())
		})
	}
}

func TestTransactionKind_Valid(t *testing.T) {
	for _, k := range []TransactionKind{
		TransactionKindPayment, TransactionKindAuthorization, TransactionKindCapture,
		TransactionKindRefund, TransactionKindVoid,
	} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, TransactionKind("sale").Valid())
	assert.False(t, TransactionKind("").Valid())
}

func TestTransaction_SlotKind(t *testing.T) {
	tests := []struct {
		kind TransactionKind
		slot TransactionKind
	}{
		{kind: TransactionKindAuthorization, slot: TransactionKindPayment},
		{kind: TransactionKindPayment, slot: TransactionKindPayment},
		{kind: TransactionKindCapture, slot: TransactionKindCapture},
		{kind: TransactionKindRefund, slot: TransactionKindRefund},
		{kind: TransactionKindVoid, slot: TransactionKindVoid},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.slot, NewTransaction(tt.kind).SlotKind())
		})
	}
}

func TestNewTransaction_DefaultsToLocal(t *testing.T) {
	txn := NewTransaction(TransactionKindRefund)
	assert.Equal(t, TransactionKindRefund, txn.Kind)
	assert.Equal(t, TransactionSourceLocal, txn.Source)
	assert.Empty(t, txn.RemoteID)
}

func TestTransaction_MarshalRoundTrip(t *testing.T) {
	txn := NewTransaction(TransactionKindVoid)
	txn.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	txn.RemoteID = "void-1"
	txn.RemoteParentID = "cap-1"
	txn.ParentType = ParentTypeCapture
	txn.Status = TransactionStatusApproved
	txn.Source = TransactionSourceRemote
	txn.ProviderName = ProviderPoynt
	txn.TotalAmount = NewMoney(1250, "usd")
	txn.OrderID = 9

	raw, err := txn.Marshal()
	require.NoError(t, err)
	assert.Contains(t, raw, `"parent_type":"capture"`)

	decoded, err := UnmarshalTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, txn, decoded)
}

func TestUnmarshalTransaction_Invalid(t *testing.T) {
	_, err := UnmarshalTransaction("{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal transaction")
}

func TestMetaKeys(t *testing.T) {
	assert.Equal(t, MetaPoyntRefundRemoteID, RemoteIDMetaKey(ProviderPoynt, TransactionKindRefund))
	assert.Equal(t, MetaPoyntCaptureRemoteID, RemoteIDMetaKey(ProviderPoynt, TransactionKindCapture))
	assert.Equal(t, "_poynt_payment_transaction", TransactionMetaKey(ProviderPoynt, TransactionKindPayment))
	assert.Equal(t, "yes", BoolMeta(true))
	assert.Equal(t, "no", BoolMeta(false))
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		minor    int64
		rendered string
	}{
		{name: "usd", amount: "12.34", currency: "usd", minor: 1234, rendered: "12.34 USD"},
		{name: "rounds_half_up", amount: "0.005", currency: "USD", minor: 1, rendered: "0.01 USD"},
		{name: "zero_decimal", amount: "500", currency: "JPY", minor: 500, rendered: "500 JPY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MoneyFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.minor, m.Amount)
			assert.Equal(t, tt.rendered, m.String())
			assert.False(t, m.IsZero())
		})
	}

	assert.True(t, NewMoney(0, "usd").IsZero())
	assert.Equal(t, "USD", NewMoney(0, "usd").Currency)
}

func TestOrder_Helpers(t *testing.T) {
	order := &Order{
		Currency: "USD",
		Items: []LineItem{
			{Name: "Widget", Type: LineItemTypeProduct, Total: decimal.RequireFromString("10.00"), TaxTotal: decimal.RequireFromString("0.80")},
			{Name: "Tip", Type: LineItemTypeFee, Total: decimal.RequireFromString("2.00")},
		},
	}

	assert.Empty(t, order.GetMeta(MetaIsCaptured))
	assert.False(t, order.HasMeta(MetaIsCaptured))
	assert.False(t, order.IsCaptured())

	order.SetMeta(MetaIsCaptured, BoolMeta(true))
	assert.True(t, order.IsCaptured())

	assert.True(t, order.HasFee("Tip"))
	assert.False(t, order.HasFee("tip"))

	total := order.RecalculateTotals()
	assert.True(t, decimal.RequireFromString("12.80").Equal(total))
	assert.Equal(t, int64(1280), order.TotalMoney().Amount)
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, OrderStatusOnHold.Valid())
	assert.False(t, OrderStatus("draft").Valid())

	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusOnHold, OrderStatusFailed} {
		assert.True(t, s.NeedsPayment(), s)
	}
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusCompleted, OrderStatusRefunded, OrderStatusCancelled} {
		assert.False(t, s.NeedsPayment(), s)
	}
}
