package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/repository/product"
)

type productRepo struct {
	s *Store
}

// Products exposes the store as a product repository.
func (s *Store) Products() product.Repository {
	return productRepo{s: s}
}

func (r productRepo) List(_ context.Context, f product.Filter) ([]domain.Product, error) {
	defer r.s.lock(nil)()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.Product
	for _, p := range r.s.products {
		if !p.Purchasable() {
			continue
		}
		if f.Featured && !p.Featured {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r productRepo) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	defer r.s.lock(nil)()
	for _, p := range r.s.products {
		if p.Slug == slug && p.Purchasable() {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	defer r.s.lock(nil)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) FindActive(_ context.Context, q db.Querier, ids []string, _ bool) ([]domain.Product, error) {
	defer r.s.lock(q)()
	var out []domain.Product
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, ok := r.s.products[id]
		if !ok || !p.Purchasable() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	defer r.s.lock(nil)()
	for _, p := range r.s.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepo) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	defer r.s.lock(nil)()
	for _, existing := range r.s.products {
		if existing.Slug == p.Slug {
			return nil, domain.ErrAlreadyExists
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = p
	return &p, nil
}

func (r productRepo) Update(_ context.Context, id string, patch product.Patch) (*domain.Product, error) {
	defer r.s.lock(nil)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Slug != nil {
		for _, existing := range r.s.products {
			if existing.Slug == *patch.Slug && existing.ID != id {
				return nil, domain.ErrAlreadyExists
			}
		}
		p.Slug = *patch.Slug
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.PriceCents != nil {
		p.PriceCents = *patch.PriceCents
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return &p, nil
}

func (r productRepo) SoftDelete(_ context.Context, id string) (*domain.Product, error) {
	defer r.s.lock(nil)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.DeletedAt == nil {
		now := r.s.now()
		p.DeletedAt = &now
	}
	r.s.products[id] = p
	return &p, nil
}

func (r productRepo) UpsertBySlug(_ context.Context, p domain.Product) (*domain.Product, error) {
	defer r.s.lock(nil)()
	for id, existing := range r.s.products {
		if existing.Slug == p.Slug {
			p.ID = id
			p.CreatedAt = existing.CreatedAt
			p.UpdatedAt = r.s.now()
			r.s.products[id] = p
			return &p, nil
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = p
	return &p, nil
}
