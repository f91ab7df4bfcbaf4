package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repository/memory"
)

var policy = pricing.Policy{FreeShippingThresholdCents: 19900, FlatShippingCents: 1999}

func newService(t *testing.T, products ...domain.Product) (*Service, *memory.Store, []string) {
	t.Helper()
	store := memory.NewStore()
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, store.AddProduct(p))
	}
	return New(store.Products(), policy, nil), store, ids
}

func TestValidateWithinStock(t *testing.T) {
	svc, _, ids := newService(t, domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	got, err := svc.Validate(context.Background(), []domain.CartLine{{ProductID: ids[0], Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, int64(900), got.Lines[0].LineTotalCents)
	assert.Empty(t, got.Errors)
	assert.Equal(t, int64(900), got.SubtotalCents)
	assert.Equal(t, int64(1999), got.ShippingCents)
	assert.Equal(t, int64(2899), got.GrandTotalCents)
	assert.False(t, got.Blocking())
}

func TestValidateClampsToAvailableStock(t *testing.T) {
	svc, _, ids := newService(t, domain.Product{Name: "Balloons", PriceCents: 300, Stock: 2})

	got, err := svc.Validate(context.Background(), []domain.CartLine{{ProductID: ids[0], Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, got.Errors, 1)
	e := got.Errors[0]
	assert.Equal(t, domain.StockOutOfStock, e.Code)
	assert.Equal(t, ids[0], e.ProductID)
	require.NotNil(t, e.Available)
	require.NotNil(t, e.Requested)
	assert.Equal(t, 2, *e.Available)
	assert.Equal(t, 3, *e.Requested)

	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, int64(600), got.SubtotalCents)
	assert.Equal(t, int64(2599), got.GrandTotalCents)
	assert.True(t, got.Blocking())
}

func TestValidateDropsZeroStockLineButKeepsError(t *testing.T) {
	svc, _, ids := newService(t, domain.Product{Name: "Sold out", PriceCents: 300, Stock: 0})

	got, err := svc.Validate(context.Background(), []domain.CartLine{{ProductID: ids[0], Quantity: 1}})
	require.NoError(t, err)

	assert.Empty(t, got.Lines)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, domain.StockOutOfStock, got.Errors[0].Code)
	assert.Zero(t, got.ShippingCents)
	assert.Zero(t, got.GrandTotalCents)
}

func TestValidateMergesDuplicatesAndCoercesQuantity(t *testing.T) {
	svc, _, ids := newService(t, domain.Product{Name: "Cups", PriceCents: 100, Stock: 10})

	got, err := svc.Validate(context.Background(), []domain.CartLine{
		{ProductID: ids[0], Quantity: 2},
		{ProductID: ids[0], Quantity: -4},
		{ProductID: "", Quantity: 7},
	})
	require.NoError(t, err)

	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, int64(300), got.SubtotalCents)
}

func TestValidateReportsMissingAndDeletedProducts(t *testing.T) {
	svc, store, ids := newService(t,
		domain.Product{Name: "Hats", PriceCents: 500, Stock: 3},
		domain.Product{Name: "Gone", PriceCents: 500, Stock: 3},
	)
	_, err := store.Products().SoftDelete(context.Background(), ids[1])
	require.NoError(t, err)

	got, err := svc.Validate(context.Background(), []domain.CartLine{
		{ProductID: "does-not-exist", Quantity: 1},
		{ProductID: ids[0], Quantity: 1},
		{ProductID: ids[1], Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, got.Errors, 2)
	assert.Equal(t, domain.StockNotFound, got.Errors[0].Code)
	assert.Equal(t, "does-not-exist", got.Errors[0].ProductID)
	assert.Nil(t, got.Errors[0].Available)
	assert.Equal(t, domain.StockNotFound, got.Errors[1].Code)
	assert.Equal(t, ids[1], got.Errors[1].ProductID)

	require.Len(t, got.Lines, 1)
	assert.Equal(t, ids[0], got.Lines[0].ProductID)
}

func TestValidateEmptyCart(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.Validate(context.Background(), nil)
	require.NoError(t, err)

	assert.NotNil(t, got.Lines)
	assert.NotNil(t, got.Errors)
	assert.Zero(t, got.GrandTotalCents)
}

func TestValidateIsRepeatable(t *testing.T) {
	svc, store, ids := newService(t,
		domain.Product{Name: "Plates", PriceCents: 250, Stock: 4},
		domain.Product{Name: "Forks", PriceCents: 50, Stock: 1},
	)
	cart := []domain.CartLine{{ProductID: ids[0], Quantity: 2}, {ProductID: ids[1], Quantity: 3}}

	first, err := svc.Validate(context.Background(), cart)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Validate(context.Background(), cart)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 4, store.Stock(ids[0]))
	assert.Equal(t, 1, store.Stock(ids[1]))
}

type failingReader struct{}

func (failingReader) FindActive(context.Context, db.Querier, []string, bool) ([]domain.Product, error) {
	return nil, errors.New("db down")
}

func TestValidatePropagatesStoreErrors(t *testing.T) {
	svc := New(failingReader{}, policy, nil)

	_, err := svc.Validate(context.Background(), []domain.CartLine{{ProductID: "p", Quantity: 1}})
	require.Error(t, err)
}
