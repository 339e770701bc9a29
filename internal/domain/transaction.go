package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionKind tags the transaction variant
type TransactionKind string

const (
	TransactionKindPayment       TransactionKind = "payment"
	TransactionKindAuthorization TransactionKind = "authorization"
	TransactionKindCapture       TransactionKind = "capture"
	TransactionKindRefund        TransactionKind = "refund"
	TransactionKindVoid          TransactionKind = "void"
)

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindPayment, TransactionKindAuthorization, TransactionKindCapture,
		TransactionKindRefund, TransactionKindVoid:
		return true
	}
	return false
}

// TransactionStatus represents the outcome reported by the provider
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "Approved"
	TransactionStatusDeclined TransactionStatus = "Declined"
)

// TransactionSource records where a transaction originated
type TransactionSource string

const (
	TransactionSourceLocal  TransactionSource = "local"  // created by an outbound call from this service
	TransactionSourceRemote TransactionSource = "remote" // learned from an inbound webhook
)

// ParentType classifies what a void reverses
type ParentType string

const (
	ParentTypePayment ParentType = "payment"
	ParentTypeCapture ParentType = "capture"
	ParentTypeRefund  ParentType = "refund"
)

// ProviderPoynt is the provider name used for transactions processed by Poynt
const ProviderPoynt = "poynt"

// ProviderManual names the funding source of manual refunds with no known provider
const ProviderManual = "manual"

// Transaction is a provider transaction attached to an order.
// Kind selects the variant; ParentType is only set on voids.
type Transaction struct {
	CreatedAt      time.Time         `json:"created_at"`
	Kind           TransactionKind   `json:"kind"`
	RemoteID       string            `json:"remote_id,omitempty"`
	RemoteParentID string            `json:"remote_parent_id,omitempty"`
	RemoteOrderID  string            `json:"remote_order_id,omitempty"`
	ParentType     ParentType        `json:"parent_type,omitempty"`
	Action         string            `json:"action,omitempty"`
	Status         TransactionStatus `json:"status"`
	ResultCode     string            `json:"result_code,omitempty"`
	ResultMessage  string            `json:"result_message,omitempty"`
	ProviderName   string            `json:"provider_name,omitempty"`
	Source         TransactionSource `json:"source"`
	Reason         string            `json:"reason,omitempty"`
	TotalAmount    Money             `json:"total_amount"`
	TipAmount      Money             `json:"tip_amount"`
	CashbackAmount Money             `json:"cashback_amount"`
	OrderID        int64             `json:"order_id,omitempty"`
}

// NewTransaction creates an empty transaction of the given kind.
func NewTransaction(kind TransactionKind) *Transaction {
	return &Transaction{Kind: kind, Source: TransactionSourceLocal}
}

// IsApproved returns true if the provider approved the transaction
func (t *Transaction) IsApproved() bool {
	return t.Status == TransactionStatusApproved
}

// SlotKind is the metadata slot the transaction is persisted under.
// Authorizations share the payment slot.
func (t *Transaction) SlotKind() TransactionKind {
	if t.Kind == TransactionKindAuthorization {
		return TransactionKindPayment
	}
	return t.Kind
}

// Marshal encodes the transaction for storage in order metadata.
func (t *Transaction) Marshal() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s transaction: %w", t.Kind, err)
	}
	return string(b), nil
}

// UnmarshalTransaction decodes a transaction stored in order metadata.
func UnmarshalTransaction(raw string) (*Transaction, error) {
	var t Transaction
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &t, nil
}
