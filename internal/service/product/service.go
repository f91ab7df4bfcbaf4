package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"
)

const maxSlugAttempts = 100

type Service struct {
	repo   productrepo.Repository
	logger *zap.Logger
}

func New(repo productrepo.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger.OrNop(log).Named("products")}
}

func (s *Service) List(ctx context.Context, f productrepo.Filter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.Invalid("Missing slug")
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Get returns a product by id, soft-deleted ones included.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

type CreateInput struct {
	Name        string
	Slug        string
	Description string
	PriceCents  int64
	Stock       int
	Image       string
	Category    string
	Featured    bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, domain.Invalid("Name must be at least 2 characters")
	}
	if in.PriceCents < 0 || in.Stock < 0 {
		return nil, domain.Invalid("Price and stock must not be negative")
	}
	base := in.Slug
	if strings.TrimSpace(base) == "" {
		base = name
	}
	slug, err := s.uniqueSlug(ctx, base, "")
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, domain.Product{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Image:       strings.TrimSpace(in.Image),
		Category:    strings.TrimSpace(in.Category),
		Featured:    in.Featured,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: slug %q is taken", domain.ErrConflict, slug)
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, id string, patch productrepo.Patch) (*domain.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if len(name) < 2 {
			return nil, domain.Invalid("Name must be at least 2 characters")
		}
		patch.Name = &name
	}
	if (patch.PriceCents != nil && *patch.PriceCents < 0) || (patch.Stock != nil && *patch.Stock < 0) {
		return nil, domain.Invalid("Price and stock must not be negative")
	}
	if patch.Slug != nil {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		slug, err := s.uniqueSlug(ctx, *patch.Slug, id)
		if err != nil {
			return nil, err
		}
		patch.Slug = &slug
	}

	p, err := s.repo.Update(ctx, id, patch)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: slug is taken", domain.ErrConflict)
	}
	return p, err
}

// Delete soft-deletes the product so past orders keep their references.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return p, nil
}

// uniqueSlug slugifies base and appends -2, -3 ... until no other product holds it.
func (s *Service) uniqueSlug(ctx context.Context, base, excludeID string) (string, error) {
	clean := Slugify(base)
	if clean == "" {
		clean = "product"
	}
	slug := clean
	for i := 2; i < maxSlugAttempts; i++ {
		taken, err := s.repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", clean, i)
	}
	return "", fmt.Errorf("%w: no free slug for %q", domain.ErrConflict, clean)
}
