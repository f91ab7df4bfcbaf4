package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/repository/order"
)

type orderRepo struct {
	s *Store
}

// Orders exposes the store as an order repository.
func (s *Store) Orders() order.Repository {
	return orderRepo{s: s}
}

func (r orderRepo) Create(_ context.Context, q db.Querier, o domain.Order) (*domain.Order, error) {
	defer r.s.lock(q)()
	o.ID = uuid.NewString()
	o.CreatedAt = r.s.now().Add(time.Duration(r.s.nextSeq()) * time.Millisecond)
	o.UpdatedAt = o.CreatedAt
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	for i := range o.Items {
		o.Items[i].ID = uuid.NewString()
	}
	r.s.orders[o.ID] = o
	out := cloneOrder(o)
	return &out, nil
}

func (r orderRepo) Get(_ context.Context, q db.Querier, id string, _ bool) (*domain.Order, error) {
	defer r.s.lock(q)()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r orderRepo) GetBySessionID(_ context.Context, q db.Querier, sessionID string, _ bool) (*domain.Order, error) {
	defer r.s.lock(q)()
	if sessionID == "" {
		return nil, domain.ErrNotFound
	}
	for _, o := range r.s.orders {
		if o.PaymentSessionID == sessionID {
			out := cloneOrder(o)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r orderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	defer r.s.lock(nil)()
	return r.list(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r orderRepo) ListAll(_ context.Context) ([]domain.Order, error) {
	defer r.s.lock(nil)()
	return r.list(func(domain.Order) bool { return true }), nil
}

func (r orderRepo) list(keep func(domain.Order) bool) []domain.Order {
	var out []domain.Order
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r orderRepo) update(id string, fn func(*domain.Order)) error {
	o, ok := r.s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&o)
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r orderRepo) UpdateStatus(_ context.Context, q db.Querier, id string, status domain.OrderStatus) error {
	defer r.s.lock(q)()
	return r.update(id, func(o *domain.Order) { o.Status = status })
}

func (r orderRepo) LinkSession(_ context.Context, q db.Querier, id, sessionID string) error {
	defer r.s.lock(q)()
	return r.update(id, func(o *domain.Order) {
		if o.PaymentSessionID == "" {
			o.PaymentSessionID = sessionID
		}
	})
}

func (r orderRepo) MarkPaid(_ context.Context, q db.Querier, id, sessionID, paymentRef string) error {
	defer r.s.lock(q)()
	return r.update(id, func(o *domain.Order) {
		o.Status = domain.OrderConfirmed
		o.PaymentStatus = domain.PaymentPaid
		if o.PaymentSessionID == "" {
			o.PaymentSessionID = sessionID
		}
		o.PaymentRef = paymentRef
	})
}

func (r orderRepo) MarkPaymentFailed(_ context.Context, q db.Querier, id string) (bool, error) {
	defer r.s.lock(q)()
	o, ok := r.s.orders[id]
	if !ok || o.PaymentStatus != domain.PaymentUnpaid {
		return false, nil
	}
	return true, r.update(id, func(o *domain.Order) { o.PaymentStatus = domain.PaymentFailed })
}

func (r orderRepo) DeleteUnlinked(_ context.Context, q db.Querier, id string) error {
	defer r.s.lock(q)()
	o, ok := r.s.orders[id]
	if !ok || o.PaymentStatus != domain.PaymentUnpaid || o.PaymentSessionID != "" {
		return domain.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}
