package product

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/domain"
)

// Filter narrows catalog listings. Zero values mean no filtering.
type Filter struct {
	Featured bool
	Category string
	Search   string
}

// Patch holds optional product updates; nil fields are left untouched.
type Patch struct {
	Name        *string
	Slug        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	Image       *string
	Category    *string
	Featured    *bool
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// FindActive returns non-deleted products among ids. When q is a transaction and lock
	// is set, the rows stay locked until it ends. A nil q uses the pool.
	FindActive(ctx context.Context, q db.Querier, ids []string, lock bool) ([]domain.Product, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, patch Patch) (*domain.Product, error)
	SoftDelete(ctx context.Context, id string) (*domain.Product, error)
	UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error)
}
