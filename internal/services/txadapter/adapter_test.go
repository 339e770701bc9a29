package txadapter

import (
	"testing"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/stretchr/testify/assert"
)

func TestVoidParentType(t *testing.T) {
	tests := []struct {
		name       string
		links      []ports.Link
		wantParent domain.ParentType
		wantID     string
	}{
		{
			name:       "capture_link",
			links:      []ports.Link{{Rel: ports.LinkRelCapture, Href: "cap-1"}},
			wantParent: domain.ParentTypeCapture,
			wantID:     "cap-1",
		},
		{
			name:       "refund_link",
			links:      []ports.Link{{Rel: ports.LinkRelRefund, Href: "ref-1"}},
			wantParent: domain.ParentTypeRefund,
			wantID:     "ref-1",
		},
		{
			name:       "capture_wins_over_refund",
			links:      []ports.Link{{Rel: ports.LinkRelRefund, Href: "ref-1"}, {Rel: ports.LinkRelCapture, Href: "cap-1"}},
			wantParent: domain.ParentTypeCapture,
			wantID:     "cap-1",
		},
		{
			name:       "no_links_defaults_to_payment",
			wantParent: domain.ParentTypePayment,
			wantID:     "parent-from-body",
		},
		{
			name:       "unrelated_links_default_to_payment",
			links:      []ports.Link{{Rel: "AUTHORIZE", Href: "auth-1"}},
			wantParent: domain.ParentTypePayment,
			wantID:     "parent-from-body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &ports.RemoteTransaction{ID: "void-1", ParentID: "parent-from-body", Action: ports.RemoteActionVoid, Links: tt.links}

			assert.Equal(t, tt.wantParent, VoidParentType(rt))

			txn := Void(rt)
			assert.Equal(t, domain.TransactionKindVoid, txn.Kind)
			assert.Equal(t, tt.wantParent, txn.ParentType)
			assert.Equal(t, tt.wantID, txn.RemoteParentID)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		processor string
		want      domain.TransactionStatus
	}{
		{name: "authorized", status: "AUTHORIZED", processor: "Successful", want: domain.TransactionStatusApproved},
		{name: "captured_without_processor", status: "CAPTURED", want: domain.TransactionStatusApproved},
		{name: "declined", status: "DECLINED", processor: "Successful", want: domain.TransactionStatusDeclined},
		{name: "processor_failure", status: "AUTHORIZED", processor: "Failure", want: domain.TransactionStatusDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(&ports.RemoteTransaction{Status: tt.status, ProcessorStatus: tt.processor}))
		})
	}
}

func TestAdapt_Amounts(t *testing.T) {
	rt := &ports.RemoteTransaction{
		ID:                  "txn-1",
		OrderID:             "ord-1",
		Action:              ports.RemoteActionSale,
		Status:              "CAPTURED",
		Currency:            "USD",
		TransactionAmount:   5500,
		TipAmount:           500,
		ProcessorStatusCode: "1",
		ProcessorMessage:    "Approved",
	}

	txn := Payment(rt)
	assert.Equal(t, domain.TransactionKindPayment, txn.Kind)
	assert.Equal(t, "txn-1", txn.RemoteID)
	assert.Equal(t, "ord-1", txn.RemoteOrderID)
	assert.Equal(t, domain.NewMoney(5500, "USD"), txn.TotalAmount)
	assert.Equal(t, domain.NewMoney(500, "USD"), txn.TipAmount)
	assert.True(t, txn.CashbackAmount.IsZero())
	assert.Equal(t, "1", txn.ResultCode)
	assert.Empty(t, txn.ProviderName)
	assert.Empty(t, txn.ParentType)
}

func TestLastCaptureLink(t *testing.T) {
	_, ok := LastCaptureLink(&ports.RemoteTransaction{})
	assert.False(t, ok)

	id, ok := LastCaptureLink(&ports.RemoteTransaction{Links: []ports.Link{
		{Rel: ports.LinkRelCapture, Href: "cap-1"},
		{Rel: ports.LinkRelCapture, Href: "cap-2"},
	}})
	assert.True(t, ok)
	assert.Equal(t, "cap-2", id)
}
