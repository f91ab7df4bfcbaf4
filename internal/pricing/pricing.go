// Package pricing computes cart and order totals in minor currency units.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Policy holds the shipping constants.
type Policy struct {
	FreeShippingThresholdCents int64
	FlatShippingCents          int64
}

// Line is a priced quantity already resolved against live stock.
type Line struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

// Total returns unit price times quantity.
func (l Line) Total() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

type Totals struct {
	SubtotalCents   int64
	ShippingCents   int64
	GrandTotalCents int64
}

// Compute sums the lines and applies shipping. Lines with zero quantity do not count
// towards charging shipping.
func (p Policy) Compute(lines []Line) Totals {
	var (
		subtotal  int64
		surviving bool
	)
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		surviving = true
		subtotal += l.Total()
	}

	var shipping int64
	if surviving && subtotal < p.FreeShippingThresholdCents {
		shipping = p.FlatShippingCents
	}
	return Totals{
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		GrandTotalCents: subtotal + shipping,
	}
}

// FormatCents renders minor units as a two-decimal amount followed by the currency code.
// It is for display only.
func FormatCents(cents int64, currency string) string {
	return decimal.New(cents, -2).StringFixed(2) + " " + strings.ToUpper(currency)
}
