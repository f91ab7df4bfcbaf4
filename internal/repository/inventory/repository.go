package inventory

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/domain"
)

// Repository moves product stock. Every method runs on the caller's transaction q so that
// a failure rolls back the whole batch.
type Repository interface {
	// Check locks the product rows and returns a *domain.StockError for the first line
	// whose product is missing, soft-deleted or short of stock.
	Check(ctx context.Context, q db.Querier, lines []domain.StockLine) error
	// Decrement subtracts quantities, re-checking stock >= quantity in the same statement.
	Decrement(ctx context.Context, q db.Querier, lines []domain.StockLine) error
	// Reserve is Check followed by Decrement.
	Reserve(ctx context.Context, q db.Querier, lines []domain.StockLine) error
	Restock(ctx context.Context, q db.Querier, lines []domain.StockLine) error
}
