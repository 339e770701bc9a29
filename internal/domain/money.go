package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in the currency's minor unit (cents for USD).
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// zero-decimal currencies the provider reports without a minor unit
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
}

// NewMoney creates a Money value, normalizing the currency code.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

// MoneyFromDecimal converts a major-unit decimal (e.g. 12.34) into minor units.
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	currency = strings.ToUpper(currency)
	return Money{
		Amount:   d.Shift(exponent(currency)).Round(0).IntPart(),
		Currency: currency,
	}
}

func exponent(currency string) int32 {
	if zeroDecimalCurrencies[currency] {
		return 0
	}
	return 2
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -exponent(m.Currency))
}

// String renders the amount for order notes, e.g. "5.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(exponent(m.Currency)), m.Currency)
}
