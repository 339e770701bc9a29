package ports

import (
	"context"
	"encoding/json"
	"time"
)

// Link is a relation from one remote transaction to another
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Remote link relations
const (
	LinkRelCapture = "CAPTURE"
	LinkRelRefund  = "REFUND"
	LinkRelVoid    = "VOID"
)

// Remote transaction actions
const (
	RemoteActionAuthorize = "AUTHORIZE"
	RemoteActionCapture   = "CAPTURE"
	RemoteActionSale      = "SALE"
	RemoteActionRefund    = "REFUND"
	RemoteActionVoid      = "VOID"
)

// RemoteTransaction is the decoded provider view of a transaction.
// It is still provider-shaped; the adapter layer turns it into a domain.Transaction.
type RemoteTransaction struct {
	CreatedAt             time.Time
	ID                    string
	ParentID              string
	OrderID               string
	Action                string
	Status                string
	Currency              string
	ProcessorStatus       string
	ProcessorStatusCode   string
	ProcessorMessage      string
	FundingSourceProvider string
	Notes                 string
	Links                 []Link
	TransactionAmount     int64
	TipAmount             int64
	CashbackAmount        int64
	Voided                bool
}

// LinksWithRel returns the links carrying rel, in response order.
func (t *RemoteTransaction) LinksWithRel(rel string) []Link {
	var out []Link
	for _, l := range t.Links {
		if l.Rel == rel {
			out = append(out, l)
		}
	}
	return out
}

// HasLink reports whether any link carries rel.
func (t *RemoteTransaction) HasLink(rel string) bool {
	return len(t.LinksWithRel(rel)) > 0
}

// RemoteOrder is the provider view of an order
type RemoteOrder struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

// Remote order statuses
const (
	RemoteOrderStatusOpened    = "OPENED"
	RemoteOrderStatusCancelled = "CANCELLED"
	RemoteOrderStatusCompleted = "COMPLETED"
)

// RefundRequest describes a manual refund pushed to the provider
type RefundRequest struct {
	ID                    string
	ParentID              string
	Currency              string
	FundingSourceProvider string
	Notes                 string
	Amount                int64
}

// TransactionGateway reads and mutates remote transactions.
type TransactionGateway interface {
	GetTransaction(ctx context.Context, id string) (*RemoteTransaction, error)
	RefundTransaction(ctx context.Context, req *RefundRequest) (*RemoteTransaction, error)
	VoidTransaction(ctx context.Context, id string) (*RemoteTransaction, error)
}

// OrderGateway reads and mutates remote orders.
type OrderGateway interface {
	GetOrder(ctx context.Context, id string) (*RemoteOrder, error)
	CompleteOrder(ctx context.Context, id string) error
	ForceCompleteOrder(ctx context.Context, id string) error
	CancelOrder(ctx context.Context, id string) error
}

// PoyntGateway is the full remote surface used by the service.
type PoyntGateway interface {
	TransactionGateway
	OrderGateway
}

// RemoteCodeItemsNotFulfilled is returned by complete-order when line items
// are still open; force-complete skips that check.
const RemoteCodeItemsNotFulfilled = "ITEMS_NOT_FULFILLED"
