package domain

import "strings"

// CartLine is a client-held cart entry. Quantity is coerced to at least 1 on merge.
type CartLine struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// ValidatedCartLine is a cart line resolved against current product state.
type ValidatedCartLine struct {
	ProductID      string `json:"id"`
	Name           string `json:"name"`
	Image          string `json:"image,omitempty"`
	PriceCents     int64  `json:"priceCents"`
	Stock          int    `json:"stock"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

// CartLineError describes why a requested line could not be fully honoured.
type CartLineError struct {
	Code      StockErrorCode `json:"code"`
	ProductID string         `json:"productId"`
	Message   string         `json:"message"`
	Available *int           `json:"available,omitempty"`
	Requested *int           `json:"requested,omitempty"`
}

// CartSummary is the authoritative view of a submitted cart.
type CartSummary struct {
	Lines           []ValidatedCartLine `json:"items"`
	SubtotalCents   int64               `json:"subtotalCents"`
	ShippingCents   int64               `json:"shippingCents"`
	GrandTotalCents int64               `json:"grandTotalCents"`
	Errors          []CartLineError     `json:"errors"`
}

// Blocking reports whether the summary must prevent checkout.
func (s CartSummary) Blocking() bool {
	return len(s.Errors) > 0
}

// MergeCartLines sums quantities per product id, keeping first-appearance order.
// Blank ids are dropped and quantities below 1 count as 1.
func MergeCartLines(lines []CartLine) []CartLine {
	merged := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		id := strings.TrimSpace(l.ProductID)
		if id == "" {
			continue
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		if pos, ok := index[id]; ok {
			merged[pos].Quantity += qty
			continue
		}
		index[id] = len(merged)
		merged = append(merged, CartLine{ProductID: id, Quantity: qty})
	}
	return merged
}

// StockLines converts merged cart lines to inventory movements.
func StockLines(lines []CartLine) []StockLine {
	out := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, StockLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
