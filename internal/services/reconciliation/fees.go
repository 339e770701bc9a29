package reconciliation

import (
	"context"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"github.com/shopspring/decimal"
)

// Fee line labels. A fee with the same label is never added twice.
const (
	FeeLabelTip      = "Tip"
	FeeLabelCashback = "Cashback"
)

// addFees adds tip and cashback as non-taxable fee lines and recalculates
// the order total once if anything was added.
func (e *Engine) addFees(ctx context.Context, db ports.DBTX, order *domain.Order, txn *domain.Transaction) error {
	candidates := []struct {
		label  string
		amount domain.Money
	}{
		{FeeLabelTip, txn.TipAmount},
		{FeeLabelCashback, txn.CashbackAmount},
	}

	added := false
	for _, c := range candidates {
		if c.amount.IsZero() || order.HasFee(c.label) {
			continue
		}

		item := domain.LineItem{
			OrderID:  order.ID,
			Name:     c.label,
			Type:     domain.LineItemTypeFee,
			Total:    c.amount.Decimal(),
			TaxTotal: decimal.Zero,
			Quantity: 1,
			Taxable:  false,
		}
		if err := e.orders.AddLineItem(ctx, db, &item); err != nil {
			return fmt.Errorf("add %s fee to order %d: %w", c.label, order.ID, err)
		}
		order.Items = append(order.Items, item)

		note := fmt.Sprintf("%s of %s added by Poynt transaction %s.", c.label, c.amount, txn.RemoteID)
		if err := e.orders.AddNote(ctx, db, order.ID, note); err != nil {
			return fmt.Errorf("add %s fee note to order %d: %w", c.label, order.ID, err)
		}

		observability.RecordFeeLineAdded(c.label)
		added = true
	}

	if !added {
		return nil
	}
	if err := e.orders.UpdateTotal(ctx, db, order.ID, order.RecalculateTotals()); err != nil {
		return fmt.Errorf("update total of order %d: %w", order.ID, err)
	}
	return nil
}
