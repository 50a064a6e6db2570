// Package pricing computes order totals from a subtotal: a flat tax rate plus a shipping fee
// that is waived above a subtotal threshold.
package pricing

import "github.com/shopspring/decimal"

var (
	// TaxRate is applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
)

const (
	// FreeShippingThresholdCents is the subtotal that must be exceeded for free shipping.
	FreeShippingThresholdCents int64 = 5000
	// ShippingFeeCents is charged when the subtotal does not exceed the threshold.
	ShippingFeeCents int64 = 1000
)

// Quote holds every money component of an order, in cents.
type Quote struct {
	SubtotalCents int64 `json:"subtotalCents"`
	TaxCents      int64 `json:"taxCents"`
	ShippingCents int64 `json:"shippingCents"`
	TotalCents    int64 `json:"totalCents"`
}

// QuoteSubtotal prices an order with the given subtotal. Tax is rounded half away from zero to
// whole cents.
func QuoteSubtotal(subtotalCents int64) Quote {
	tax := decimal.NewFromInt(subtotalCents).Mul(TaxRate).Round(0).IntPart()
	shipping := ShippingFeeCents
	if subtotalCents > FreeShippingThresholdCents {
		shipping = 0
	}
	return Quote{
		SubtotalCents: subtotalCents,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    subtotalCents + tax + shipping,
	}
}

// Amount converts cents to a decimal currency amount.
func Amount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Cents converts a currency amount to cents, rounding to the nearest cent.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
