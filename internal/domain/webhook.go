package domain

import "time"

// Webhook resources
const (
	WebhookResourceTransactions = "/transactions"
	WebhookResourceOrders       = "/orders"
)

// Webhook event types
const (
	EventTypeTransactionAuthorized = "TRANSACTION_AUTHORIZED"
	EventTypeTransactionCaptured   = "TRANSACTION_CAPTURED"
	EventTypeTransactionRefunded   = "TRANSACTION_REFUNDED"
	EventTypeTransactionVoided     = "TRANSACTION_VOIDED"
	EventTypeOrderCancelled        = "ORDER_CANCELLED"
	EventTypeOrderCompleted        = "ORDER_COMPLETED"
	EventTypeOrderUpdated          = "ORDER_UPDATED"
)

// WebhookEvent is one inbound delivery from the provider. It carries only a
// pointer (ResourceID) to the remote state.
type WebhookEvent struct {
	ReceivedAt time.Time              `json:"received_at"`
	Decoded    map[string]interface{} `json:"-"`
	DeliveryID string                 `json:"id"`
	EventType  string                 `json:"eventType"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resourceId"`
	BusinessID string                 `json:"businessId,omitempty"`
	StoreID    string                 `json:"storeId,omitempty"`
	Signature  string                 `json:"-"`
	Payload    []byte                 `json:"-"`
}

// DeliveryStatus tracks a delivery in the journal
type DeliveryStatus string

const (
	DeliveryStatusReceived  DeliveryStatus = "received"
	DeliveryStatusProcessed DeliveryStatus = "processed"
	DeliveryStatusIgnored   DeliveryStatus = "ignored"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// IsTerminal reports whether a redelivery with this status should be acknowledged without work.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusProcessed || s == DeliveryStatusIgnored
}

// WebhookDelivery is the journal row for a delivery
type WebhookDelivery struct {
	ReceivedAt  time.Time      `json:"received_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	ID          string         `json:"id"`
	DeliveryID  string         `json:"delivery_id"`
	EventType   string         `json:"event_type"`
	Resource    string         `json:"resource"`
	ResourceID  string         `json:"resource_id"`
	Status      DeliveryStatus `json:"status"`
	Signature   string         `json:"-"`
	LastError   string         `json:"last_error,omitempty"`
	Payload     []byte         `json:"payload"`
	Attempts    int            `json:"attempts"`
}

// SyncFailure journals an outbound sync that failed at the hook boundary
type SyncFailure struct {
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ID         string     `json:"id"`
	Operation  string     `json:"operation"`
	Error      string     `json:"error"`
	OrderID    int64      `json:"order_id"`
	RefundID   int64      `json:"refund_id,omitempty"`
	Attempts   int        `json:"attempts"`
}
