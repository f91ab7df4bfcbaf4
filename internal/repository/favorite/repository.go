package favorite

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// List returns the user's favorite products that are not soft-deleted, newest first.
	List(ctx context.Context, userID string) ([]domain.Product, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}
