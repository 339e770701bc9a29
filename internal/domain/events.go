package domain

// Event names published on the internal bus.
const (
	EventCaptureTransaction = "capture_transaction"
	EventPaymentTransaction = "payment_transaction"
	EventVoidTransaction    = "void_transaction"
	EventBeforeCreateRefund = "before_create_refund"
	EventBeforeCreateVoid   = "before_create_void"
	EventOrderStatusChanged = "order_status_changed"
	EventRefundCreated      = "refund_created"
)

// Event is anything published on the internal bus
type Event interface {
	Name() string
	AggregateID() int64
}

// EventOrigin says whether a local change came from the host or from a webhook
type EventOrigin string

const (
	EventOriginLocal  EventOrigin = "local"
	EventOriginRemote EventOrigin = "remote"
)

// CaptureTransactionEvent fires after a capture was applied to an order.
type CaptureTransactionEvent struct {
	Transaction *Transaction `json:"transaction"`
	OrderID     int64        `json:"order_id"`
}

func (e CaptureTransactionEvent) Name() string       { return EventCaptureTransaction }
func (e CaptureTransactionEvent) AggregateID() int64 { return e.OrderID }

// PaymentTransactionEvent fires after an authorization or sale was applied.
type PaymentTransactionEvent struct {
	Transaction *Transaction `json:"transaction"`
	OrderID     int64        `json:"order_id"`
}

func (e PaymentTransactionEvent) Name() string       { return EventPaymentTransaction }
func (e PaymentTransactionEvent) AggregateID() int64 { return e.OrderID }

// VoidTransactionEvent fires after a void of a payment, capture or refund was applied.
type VoidTransactionEvent struct {
	Transaction *Transaction `json:"transaction"`
	OrderID     int64        `json:"order_id"`
}

func (e VoidTransactionEvent) Name() string       { return EventVoidTransaction }
func (e VoidTransactionEvent) AggregateID() int64 { return e.OrderID }

// BeforeCreateRefundEvent fires before a webhook-driven refund record is created.
type BeforeCreateRefundEvent struct {
	Transaction *Transaction `json:"transaction"`
	OrderID     int64        `json:"order_id"`
}

func (e BeforeCreateRefundEvent) Name() string       { return EventBeforeCreateRefund }
func (e BeforeCreateRefundEvent) AggregateID() int64 { return e.OrderID }

// BeforeCreateVoidEvent fires before a payment void is turned into a full refund.
type BeforeCreateVoidEvent struct {
	Transaction *Transaction `json:"transaction"`
	OrderID     int64        `json:"order_id"`
}

func (e BeforeCreateVoidEvent) Name() string       { return EventBeforeCreateVoid }
func (e BeforeCreateVoidEvent) AggregateID() int64 { return e.OrderID }

// OrderStatusChangedEvent is the local order lifecycle hook.
type OrderStatusChangedEvent struct {
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
	Origin  EventOrigin `json:"origin"`
	OrderID int64       `json:"order_id"`
}

func (e OrderStatusChangedEvent) Name() string       { return EventOrderStatusChanged }
func (e OrderStatusChangedEvent) AggregateID() int64 { return e.OrderID }

// RefundCreatedEvent is the local refund hook.
type RefundCreatedEvent struct {
	Origin   EventOrigin `json:"origin"`
	OrderID  int64       `json:"order_id"`
	RefundID int64       `json:"refund_id"`
}

func (e RefundCreatedEvent) Name() string       { return EventRefundCreated }
func (e RefundCreatedEvent) AggregateID() int64 { return e.OrderID }
