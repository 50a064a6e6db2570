package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQuoteSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		want     Quote
	}{
		{
			name:     "free shipping above threshold",
			subtotal: 10000,
			want:     Quote{SubtotalCents: 10000, TaxCents: 800, ShippingCents: 0, TotalCents: 10800},
		},
		{
			name:     "flat shipping below threshold",
			subtotal: 2000,
			want:     Quote{SubtotalCents: 2000, TaxCents: 160, ShippingCents: 1000, TotalCents: 3160},
		},
		{
			name:     "threshold itself is not free",
			subtotal: 5000,
			want:     Quote{SubtotalCents: 5000, TaxCents: 400, ShippingCents: 1000, TotalCents: 6400},
		},
		{
			name:     "tax rounds half away from zero",
			subtotal: 1999 * 3,
			want:     Quote{SubtotalCents: 5997, TaxCents: 480, ShippingCents: 0, TotalCents: 6477},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteSubtotal(tt.subtotal))
		})
	}
}

func TestAmountAndCents(t *testing.T) {
	assert.Equal(t, "31.6", Amount(3160).String())
	assert.Equal(t, int64(2999), Cents(decimal.RequireFromString("29.99")))
	assert.Equal(t, int64(1000), Cents(decimal.RequireFromString("9.995")))
}
