package favorite

import (
	"context"

	"storefront/internal/domain"
	favoriterepo "storefront/internal/repository/favorite"
)

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo     favoriterepo.Repository
	products productReader
}

func New(repo favoriterepo.Repository, products productReader) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Product, error) {
	return s.repo.List(ctx, userID)
}

// Add marks a live product as favorite. Adding twice is not an error.
func (s *Service) Add(ctx context.Context, userID, productID string) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Purchasable() {
		return domain.ErrNotFound
	}
	return s.repo.Add(ctx, userID, productID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	return s.repo.Remove(ctx, userID, productID)
}
