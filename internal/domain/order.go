package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the host commerce system's order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusOnHold, OrderStatusProcessing, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// NeedsPayment reports whether a payment-complete transition applies from this status.
func (s OrderStatus) NeedsPayment() bool {
	return s == OrderStatusPending || s == OrderStatusOnHold || s == OrderStatusFailed
}

// ObjectType distinguishes orders from refunds in the shared metadata index
type ObjectType string

const (
	ObjectTypeOrder  ObjectType = "order"
	ObjectTypeRefund ObjectType = "refund"
)

// LineItemType is the kind of order line
type LineItemType string

const (
	LineItemTypeProduct  LineItemType = "line_item"
	LineItemTypeFee      LineItemType = "fee"
	LineItemTypeShipping LineItemType = "shipping"
)

// LineItem is a product, fee or shipping line on an order
type LineItem struct {
	Name     string          `json:"name"`
	Type     LineItemType    `json:"type"`
	Total    decimal.Decimal `json:"total"`
	TaxTotal decimal.Decimal `json:"tax_total"`
	ID       int64           `json:"id"`
	OrderID  int64           `json:"order_id"`
	Quantity int             `json:"quantity"`
	Taxable  bool            `json:"taxable"`
}

// Order is the local order aggregate
type Order struct {
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	Meta           map[string]string `json:"meta"`
	RemoteID       string            `json:"remote_id,omitempty"`
	Status         OrderStatus       `json:"status"`
	Currency       string            `json:"currency"`
	PaymentMethod  string            `json:"payment_method"`
	TransactionRef string            `json:"transaction_ref,omitempty"`
	Total          decimal.Decimal   `json:"total"`
	Items          []LineItem        `json:"items"`
	ID             int64             `json:"id"`
}

// GetMeta returns a metadata value, or "" when absent.
func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

// HasMeta reports whether a non-empty metadata value is stored under key.
func (o *Order) HasMeta(key string) bool {
	return o.GetMeta(key) != ""
}

// SetMeta updates the in-memory metadata copy.
func (o *Order) SetMeta(key, value string) {
	if o.Meta == nil {
		o.Meta = make(map[string]string)
	}
	o.Meta[key] = value
}

// IsCaptured is true once a capture or sale has been recorded.
func (o *Order) IsCaptured() bool {
	return o.GetMeta(MetaIsCaptured) == metaYes
}

// TotalMoney returns the order total in minor units.
func (o *Order) TotalMoney() Money {
	return MoneyFromDecimal(o.Total, o.Currency)
}

// HasFee reports whether a fee line with exactly this label exists.
func (o *Order) HasFee(name string) bool {
	for _, item := range o.Items {
		if item.Type == LineItemTypeFee && item.Name == name {
			return true
		}
	}
	return false
}

// RecalculateTotals recomputes Total from the line items.
func (o *Order) RecalculateTotals() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total).Add(item.TaxTotal)
	}
	o.Total = total
	return total
}

// RefundItem marks a quantity and amount of an order line as refunded
type RefundItem struct {
	RefundTotal decimal.Decimal `json:"refund_total"`
	RefundTax   decimal.Decimal `json:"refund_tax"`
	ItemID      int64           `json:"item_id"`
	Quantity    int             `json:"quantity"`
}

// Refund is a local refund record belonging to an order
type Refund struct {
	CreatedAt     time.Time         `json:"created_at"`
	Meta          map[string]string `json:"meta"`
	Reason        string            `json:"reason,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Amount        decimal.Decimal   `json:"amount"`
	Items         []RefundItem      `json:"items,omitempty"`
	ID            int64             `json:"id"`
	OrderID       int64             `json:"order_id"`
	Restock       bool              `json:"restock"`
}

// GetMeta returns a refund metadata value, or "" when absent.
func (r *Refund) GetMeta(key string) string {
	if r.Meta == nil {
		return ""
	}
	return r.Meta[key]
}

// SetMeta updates the in-memory metadata copy.
func (r *Refund) SetMeta(key, value string) {
	if r.Meta == nil {
		r.Meta = make(map[string]string)
	}
	r.Meta[key] = value
}

// OrderNote is a private note attached to an order
type OrderNote struct {
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note"`
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
}
