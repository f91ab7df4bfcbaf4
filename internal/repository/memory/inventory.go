package memory

import (
	"context"
	"sort"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/repository/inventory"
)

type inventoryRepo struct {
	s *Store
}

// Inventory exposes the store as an inventory ledger.
func (s *Store) Inventory() inventory.Repository {
	return inventoryRepo{s: s}
}

func (r inventoryRepo) Check(_ context.Context, q db.Querier, lines []domain.StockLine) error {
	defer r.s.lock(q)()
	return r.check(lines)
}

func (r inventoryRepo) check(lines []domain.StockLine) error {
	for _, l := range sorted(lines) {
		p, ok := r.s.products[l.ProductID]
		if !ok || !p.Purchasable() {
			return domain.NotFoundStock(l.ProductID)
		}
		if l.Quantity > p.Stock {
			return domain.OutOfStock(l.ProductID, p.Stock, l.Quantity)
		}
	}
	return nil
}

func (r inventoryRepo) Decrement(_ context.Context, q db.Querier, lines []domain.StockLine) error {
	defer r.s.lock(q)()
	return r.decrement(lines)
}

// decrement applies every line or none.
func (r inventoryRepo) decrement(lines []domain.StockLine) error {
	if err := r.check(lines); err != nil {
		return err
	}
	for _, l := range lines {
		p := r.s.products[l.ProductID]
		p.Stock -= l.Quantity
		r.s.products[l.ProductID] = p
	}
	return nil
}

func (r inventoryRepo) Reserve(_ context.Context, q db.Querier, lines []domain.StockLine) error {
	defer r.s.lock(q)()
	return r.decrement(lines)
}

func (r inventoryRepo) Restock(_ context.Context, q db.Querier, lines []domain.StockLine) error {
	defer r.s.lock(q)()
	for _, l := range lines {
		p, ok := r.s.products[l.ProductID]
		if !ok {
			continue
		}
		p.Stock += l.Quantity
		r.s.products[l.ProductID] = p
	}
	return nil
}

func sorted(lines []domain.StockLine) []domain.StockLine {
	out := append([]domain.StockLine(nil), lines...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
