// Package txadapter turns Poynt transaction responses into typed domain transactions.
package txadapter

import (
	"strings"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
)

// remote statuses that mean the processor did not approve
var declinedStatuses = map[string]bool{
	"DECLINED": true,
	"FAILED":   true,
}

const processorStatusFailure = "Failure"

// Adapt builds a transaction of the given kind from a fetched remote transaction.
// Voids get their parent type and parent id from the link relations.
func Adapt(kind domain.TransactionKind, rt *ports.RemoteTransaction) *domain.Transaction {
	txn := domain.NewTransaction(kind)
	txn.CreatedAt = rt.CreatedAt
	txn.RemoteID = rt.ID
	txn.RemoteParentID = rt.ParentID
	txn.RemoteOrderID = rt.OrderID
	txn.Action = rt.Action
	txn.Status = DeriveStatus(rt)
	txn.ResultCode = rt.ProcessorStatusCode
	txn.ResultMessage = rt.ProcessorMessage
	txn.ProviderName = rt.FundingSourceProvider
	txn.Reason = rt.Notes
	txn.TotalAmount = domain.NewMoney(rt.TransactionAmount, rt.Currency)
	txn.TipAmount = domain.NewMoney(rt.TipAmount, rt.Currency)
	txn.CashbackAmount = domain.NewMoney(rt.CashbackAmount, rt.Currency)

	if kind == domain.TransactionKindVoid {
		txn.ParentType = VoidParentType(rt)
		if href := voidParentHref(rt, txn.ParentType); href != "" {
			txn.RemoteParentID = href
		}
	}
	return txn
}

// Payment adapts an authorization or sale response
func Payment(rt *ports.RemoteTransaction) *domain.Transaction {
	return Adapt(domain.TransactionKindPayment, rt)
}

// Authorization adapts an authorization leg that is not persisted as the order's payment
func Authorization(rt *ports.RemoteTransaction) *domain.Transaction {
	return Adapt(domain.TransactionKindAuthorization, rt)
}

// Capture adapts a capture response
func Capture(rt *ports.RemoteTransaction) *domain.Transaction {
	return Adapt(domain.TransactionKindCapture, rt)
}

// Refund adapts a refund response
func Refund(rt *ports.RemoteTransaction) *domain.Transaction {
	return Adapt(domain.TransactionKindRefund, rt)
}

// Void adapts a void response
func Void(rt *ports.RemoteTransaction) *domain.Transaction {
	return Adapt(domain.TransactionKindVoid, rt)
}

// VoidParentType classifies what a void reverses: a CAPTURE link wins over
// a REFUND link, and with neither the void reverses the payment.
func VoidParentType(rt *ports.RemoteTransaction) domain.ParentType {
	switch {
	case rt.HasLink(ports.LinkRelCapture):
		return domain.ParentTypeCapture
	case rt.HasLink(ports.LinkRelRefund):
		return domain.ParentTypeRefund
	default:
		return domain.ParentTypePayment
	}
}

func voidParentHref(rt *ports.RemoteTransaction, parent domain.ParentType) string {
	var rel string
	switch parent {
	case domain.ParentTypeCapture:
		rel = ports.LinkRelCapture
	case domain.ParentTypeRefund:
		rel = ports.LinkRelRefund
	default:
		return ""
	}
	links := rt.LinksWithRel(rel)
	if len(links) == 0 {
		return ""
	}
	return links[len(links)-1].Href
}

// DeriveStatus maps remote and processor status onto Approved or Declined
func DeriveStatus(rt *ports.RemoteTransaction) domain.TransactionStatus {
	if declinedStatuses[strings.ToUpper(rt.Status)] || strings.EqualFold(rt.ProcessorStatus, processorStatusFailure) {
		return domain.TransactionStatusDeclined
	}
	return domain.TransactionStatusApproved
}

// LastCaptureLink returns the id of the most recent capture linked from an authorization
func LastCaptureLink(rt *ports.RemoteTransaction) (string, bool) {
	links := rt.LinksWithRel(ports.LinkRelCapture)
	if len(links) == 0 {
		return "", false
	}
	return links[len(links)-1].Href, true
}
