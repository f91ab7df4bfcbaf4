package domain

import "time"

type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	PriceCents  int64      `json:"priceCents"`
	Stock       int        `json:"stock"`
	Image       string     `json:"image,omitempty"`
	Category    string     `json:"category"`
	Featured    bool       `json:"featured"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Purchasable reports whether the product can be added to carts and orders.
func (p Product) Purchasable() bool {
	return p.DeletedAt == nil
}

// StockLine is a quantity of one product moved in or out of inventory.
type StockLine struct {
	ProductID string
	Quantity  int
}
