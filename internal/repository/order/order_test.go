package order

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

func newOrder(userID, productID string, method domain.PaymentMethod) domain.Order {
	return domain.Order{
		UserID:        userID,
		Status:        domain.OrderPending,
		PaymentMethod: method,
		PaymentStatus: domain.PaymentUnpaid,
		Customer: domain.Customer{
			Name: "Ana", Email: "ana@example.com", Phone: "0700", Address: "Str. Lunga 1", City: "Cluj", County: "Cluj",
		},
		ShippingCents: 1999,
		TotalCents:    2899,
		Items: []domain.OrderItem{
			{ProductID: productID, Name: "Balloons", PriceCents: 300, Quantity: 3},
		},
	}
}

func TestPostgres_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	userID := pgtest.InsertUser(ctx, t, pool, "ana@example.com")
	productID := pgtest.InsertProduct(ctx, t, pool, "balloons", 300, 10)

	created, err := repo.Create(ctx, nil, newOrder(userID, productID, domain.PaymentCOD))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Items) != 1 || created.Items[0].ID == "" {
		t.Fatalf("expected item ids to be assigned, got %+v", created.Items)
	}

	got, err := repo.Get(ctx, nil, created.ID, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalCents != 2899 || got.Customer.PostalCode != "" || got.Items[0].Quantity != 3 {
		t.Fatalf("unexpected order %+v", got)
	}
	if got.ItemsTotalCents()+got.ShippingCents != got.TotalCents {
		t.Fatalf("stored totals are inconsistent: %+v", got)
	}

	mine, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 1 || len(mine[0].Items) != 1 {
		t.Fatalf("unexpected list %+v", mine)
	}

	if _, err := repo.Get(ctx, nil, "nope", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_PaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	userID := pgtest.InsertUser(ctx, t, pool, "ana@example.com")
	productID := pgtest.InsertProduct(ctx, t, pool, "balloons", 300, 10)

	o, err := repo.Create(ctx, nil, newOrder(userID, productID, domain.PaymentCard))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.LinkSession(ctx, nil, o.ID, "cs_1"); err != nil {
		t.Fatalf("LinkSession: %v", err)
	}
	if err := repo.LinkSession(ctx, nil, o.ID, "cs_2"); err != nil {
		t.Fatalf("LinkSession again: %v", err)
	}
	bySession, err := repo.GetBySessionID(ctx, nil, "cs_1", false)
	if err != nil || bySession.ID != o.ID {
		t.Fatalf("first linked session must stick: %v %+v", err, bySession)
	}

	if err := repo.DeleteUnlinked(ctx, nil, o.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("linked order must not be deleted, got %v", err)
	}

	if err := repo.MarkPaid(ctx, nil, o.ID, "cs_1", "pi_1"); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	failed, err := repo.MarkPaymentFailed(ctx, nil, o.ID)
	if err != nil || failed {
		t.Fatalf("paid order must not flip to failed: failed=%v err=%v", failed, err)
	}

	got, err := repo.Get(ctx, nil, o.ID, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.OrderConfirmed || got.PaymentStatus != domain.PaymentPaid || got.PaymentRef != "pi_1" {
		t.Fatalf("unexpected paid order %+v", got)
	}
}

func TestPostgres_DeleteUnlinked(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	userID := pgtest.InsertUser(ctx, t, pool, "ana@example.com")
	productID := pgtest.InsertProduct(ctx, t, pool, "balloons", 300, 10)

	o, err := repo.Create(ctx, nil, newOrder(userID, productID, domain.PaymentCard))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.DeleteUnlinked(ctx, nil, o.ID); err != nil {
		t.Fatalf("DeleteUnlinked: %v", err)
	}
	if _, err := repo.Get(ctx, nil, o.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected order to be gone, got %v", err)
	}
}
