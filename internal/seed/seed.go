// Package seed loads a small party-supplies catalog for local development.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const defaultStock = 100

type productStore interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Catalog is the demo product set. The first entry is featured.
var Catalog = []domain.Product{
	{Name: "Balon latex rosu", Slug: "balon-latex-rosu", PriceCents: 300, Category: "baloane", Image: "/images/products/Balon-latex-rosu.jpg", Featured: true},
	{Name: "Balon cifra 5", Slug: "balon-cifra-5", PriceCents: 1500, Category: "baloane", Image: "/images/products/Balon-latex-5.jpg"},
	{Name: "Ghirlanda aniversara", Slug: "ghirlanda-aniversara", PriceCents: 2500, Category: "decoratiuni", Image: "/images/products/Ghirlanda-aniversara.jpg"},
	{Name: "Set pahare petrecere", Slug: "set-pahare-petrecere", PriceCents: 1200, Category: "tacamuri", Image: "/images/products/set-pahare-petrecere.jpg"},
	{Name: "Balon folie", Slug: "balon-folie", PriceCents: 1500, Category: "baloane", Image: "/images/products/baloane-folie.png"},
	{Name: "Confetti colorat", Slug: "confetti-colorat", PriceCents: 1500, Category: "decoratiuni", Image: "/images/products/confetti-pop.jpg"},
	{Name: "Banner Happy New Year", Slug: "banner-happy-new-year", PriceCents: 1500, Category: "decoratiuni", Image: "/images/products/happynewyear.jpg"},
}

// Apply creates catalog products whose slug is not taken yet and returns how many it added.
// Existing rows, stock included, are left alone so it is safe to run repeatedly.
func Apply(ctx context.Context, store productStore, log *zap.Logger) (int, error) {
	log = logger.OrNop(log).Named("seed")
	created := 0
	for _, p := range Catalog {
		exists, err := store.SlugExists(ctx, p.Slug, "")
		if err != nil {
			return created, fmt.Errorf("check slug %s: %w", p.Slug, err)
		}
		if exists {
			log.Debug("skip existing", zap.String("slug", p.Slug))
			continue
		}
		p.Stock = defaultStock
		if _, err := store.Create(ctx, p); err != nil {
			return created, fmt.Errorf("create %s: %w", p.Slug, err)
		}
		created++
	}
	log.Info("seed applied", zap.Int("created", created), zap.Int("catalog", len(Catalog)))
	return created, nil
}
