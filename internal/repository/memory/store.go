// Package memory is an in-memory implementation of the product, inventory and order
// repositories. Transactions are serialized and rolled back by snapshot on error.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"storefront/internal/db"
	"storefront/internal/domain"
)

var errRawSQL = errors.New("memory store: raw SQL is not supported")

// Store holds all state behind a single mutex.
type Store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	seq      int
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// tx marks calls made inside WithTx, where the store mutex is already held.
type tx struct{}

func (tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errRawSQL
}

func (tx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errRawSQL }

func (tx) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return errRawSQL }

// WithTx runs fn with the store locked and restores the previous state if fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(q db.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, orders := s.snapshot()
	if err := fn(tx{}); err != nil {
		s.products, s.orders = products, orders
		return err
	}
	return nil
}

// lock acquires the mutex unless the call runs inside WithTx.
func (s *Store) lock(q db.Querier) func() {
	if _, inTx := q.(tx); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() (map[string]domain.Product, map[string]domain.Order) {
	products := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := make(map[string]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = cloneOrder(v)
	}
	return products, orders
}

func (s *Store) nextSeq() int {
	s.seq++
	return s.seq
}

// AddProduct inserts p, assigning an id and slug when missing, and returns the id.
func (s *Store) AddProduct(p domain.Product) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = p.ID
	}
	now := s.now()
	p.CreatedAt = now.Add(time.Duration(s.nextSeq()) * time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = p
	return p.ID
}

// Stock returns the current stock of a product, or -1 when it does not exist.
func (s *Store) Stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return -1
	}
	return p.Stock
}

// SetStock overwrites a product's stock.
func (s *Store) SetStock(id string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Stock = stock
		s.products[id] = p
	}
}

// OrderCount returns how many orders are stored.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
