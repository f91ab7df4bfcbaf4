package cart

import (
	"context"

	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/pricing"
)

type productReader interface {
	FindActive(ctx context.Context, q db.Querier, ids []string, lock bool) ([]domain.Product, error)
}

// Service reconciles client carts against current product state. It never writes.
type Service struct {
	products productReader
	policy   pricing.Policy
	logger   *zap.Logger
}

func New(products productReader, policy pricing.Policy, log *zap.Logger) *Service {
	return &Service{products: products, policy: policy, logger: logger.OrNop(log).Named("cart")}
}

// Validate merges duplicate lines, clamps quantities to available stock and prices the
// surviving lines. Missing or short products are reported in Errors, never returned as err.
func (s *Service) Validate(ctx context.Context, items []domain.CartLine) (*domain.CartSummary, error) {
	merged := domain.MergeCartLines(items)
	if len(merged) == 0 {
		summary := Summarize(nil, nil, s.policy)
		return &summary, nil
	}

	ids := make([]string, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindActive(ctx, nil, ids, false)
	if err != nil {
		s.logger.Error("load products", zap.Int("ids", len(ids)), zap.Error(err))
		return nil, err
	}

	summary := Summarize(merged, products, s.policy)
	if summary.Blocking() {
		s.logger.Debug("cart has blocking errors", zap.Int("errors", len(summary.Errors)))
	}
	return &summary, nil
}

// Summarize is the pure part of Validate. lines must already be merged.
func Summarize(lines []domain.CartLine, products []domain.Product, policy pricing.Policy) domain.CartSummary {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	summary := domain.CartSummary{
		Lines:  []domain.ValidatedCartLine{},
		Errors: []domain.CartLineError{},
	}
	priced := make([]pricing.Line, 0, len(lines))

	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			summary.Errors = append(summary.Errors, lineError(domain.NotFoundStock(l.ProductID)))
			continue
		}

		qty := l.Quantity
		if qty > p.Stock {
			summary.Errors = append(summary.Errors, lineError(domain.OutOfStock(p.ID, p.Stock, l.Quantity)))
			qty = max(p.Stock, 0)
		}
		if qty == 0 {
			continue
		}

		line := pricing.Line{ProductID: p.ID, Quantity: qty, UnitPriceCents: p.PriceCents}
		priced = append(priced, line)
		summary.Lines = append(summary.Lines, domain.ValidatedCartLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Image:          p.Image,
			PriceCents:     p.PriceCents,
			Stock:          p.Stock,
			Quantity:       qty,
			LineTotalCents: line.Total(),
		})
	}

	totals := policy.Compute(priced)
	summary.SubtotalCents = totals.SubtotalCents
	summary.ShippingCents = totals.ShippingCents
	summary.GrandTotalCents = totals.GrandTotalCents
	return summary
}

func lineError(e *domain.StockError) domain.CartLineError {
	out := domain.CartLineError{
		Code:      e.Code,
		ProductID: e.ProductID,
		Message:   e.Message(),
	}
	if e.Code == domain.StockOutOfStock {
		available, requested := e.Available, e.Requested
		out.Available = &available
		out.Requested = &requested
	}
	return out
}
