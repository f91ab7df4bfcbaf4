package order

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/domain"
)

// Repository persists orders with their item snapshots. Methods taking q run on the
// caller's transaction; a nil q uses the pool.
type Repository interface {
	Create(ctx context.Context, q db.Querier, o domain.Order) (*domain.Order, error)
	// Get loads an order with its items. lock takes a row lock for the rest of the transaction.
	Get(ctx context.Context, q db.Querier, id string, lock bool) (*domain.Order, error)
	GetBySessionID(ctx context.Context, q db.Querier, sessionID string, lock bool) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, q db.Querier, id string, status domain.OrderStatus) error
	// LinkSession stores the provider session id unless one is already linked.
	LinkSession(ctx context.Context, q db.Querier, id, sessionID string) error
	MarkPaid(ctx context.Context, q db.Querier, id, sessionID, paymentRef string) error
	// MarkPaymentFailed flips an unpaid order to failed and reports whether it did.
	MarkPaymentFailed(ctx context.Context, q db.Querier, id string) (bool, error)
	// DeleteUnlinked removes an unpaid order that never got a payment session.
	DeleteUnlinked(ctx context.Context, q db.Querier, id string) error
}
