package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository/memory"
)

type stubUsers map[string]domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type stubProvider struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
}

func (p *stubProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &payment.Session{ID: "cs_" + req.OrderID, URL: "https://pay.example.com/" + req.OrderID}, nil
}

func (p *stubProvider) ParseEvent([]byte, string) (*payment.Event, error) {
	return nil, errors.New("not used")
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (n *recordingNotifier) OrderConfirmation(o domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	provider *stubProvider
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	provider := &stubProvider{}
	notifier := &recordingNotifier{}
	svc := New(Deps{
		Tx:        store,
		Products:  store.Products(),
		Inventory: store.Inventory(),
		Orders:    store.Orders(),
		Users:     stubUsers{"u1": {ID: "u1", Email: "ana@example.com"}, "u2": {ID: "u2", Email: "bob@example.com"}},
		Payments:  provider,
		Notifier:  notifier,
	}, Options{
		Policy:      pricing.Policy{FreeShippingThresholdCents: 19900, FlatShippingCents: 1999},
		Currency:    "ron",
		FrontendURL: "https://shop.example.com",
	}, nil)
	return &fixture{svc: svc, store: store, provider: provider, notifier: notifier}
}

func shipping() CustomerInput {
	return CustomerInput{Name: "Ana", Address: "Str. Lunga 1", Phone: "0700000000", City: "Cluj", County: "Cluj"}
}

func TestCheckoutCODDecrementsStock(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	res, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer:      shipping(),
		Items:         []domain.CartLine{{ProductID: id, Quantity: 3}},
		PaymentMethod: domain.PaymentCOD,
	})
	require.NoError(t, err)

	o := res.Order
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, domain.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, domain.PaymentCOD, o.PaymentMethod)
	assert.Equal(t, int64(1999), o.ShippingCents)
	assert.Equal(t, int64(2899), o.TotalCents)
	assert.Equal(t, o.ItemsTotalCents()+o.ShippingCents, o.TotalCents)
	assert.Equal(t, "ana@example.com", o.Customer.Email)
	assert.Empty(t, res.CheckoutURL)
	assert.Equal(t, 2, f.store.Stock(id))

	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, o.ID, f.notifier.orders[0].ID)
	assert.Empty(t, f.provider.requests)
}

func TestCheckoutDefaultsToCOD(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	res, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer: shipping(),
		Items:    []domain.CartLine{{ProductID: id, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCOD, res.Order.PaymentMethod)
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	res, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer: shipping(),
		Items:    []domain.CartLine{{ProductID: id, Quantity: 1}, {ProductID: id, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 3, res.Order.Items[0].Quantity)
	assert.Equal(t, 2, f.store.Stock(id))
}

func TestCheckoutOutOfStockLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	plenty := f.store.AddProduct(domain.Product{Name: "Cups", PriceCents: 100, Stock: 10})
	scarce := f.store.AddProduct(domain.Product{Name: "Candles", PriceCents: 500, Stock: 1})

	_, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer: shipping(),
		Items:    []domain.CartLine{{ProductID: plenty, Quantity: 4}, {ProductID: scarce, Quantity: 2}},
	})

	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.StockOutOfStock, se.Code)
	assert.Equal(t, scarce, se.ProductID)
	assert.Equal(t, 1, se.Available)
	assert.Equal(t, 2, se.Requested)
	assert.Equal(t, 10, f.store.Stock(plenty))
	assert.Equal(t, 1, f.store.Stock(scarce))
	assert.Zero(t, f.store.OrderCount())
	assert.Empty(t, f.notifier.orders)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer: shipping(),
		Items:    []domain.CartLine{{ProductID: "missing", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.store.OrderCount())
}

func TestCheckoutRejectsInput(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	items := []domain.CartLine{{ProductID: id, Quantity: 1}}

	noCity := shipping()
	noCity.City = "  "

	cases := []struct {
		name string
		in   CheckoutInput
	}{
		{"missing field", CheckoutInput{Customer: noCity, Items: items}},
		{"empty cart", CheckoutInput{Customer: shipping()}},
		{"unknown method", CheckoutInput{Customer: shipping(), Items: items, PaymentMethod: "barter"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(context.Background(), "u1", tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Equal(t, 5, f.store.Stock(id))
}

func TestCheckoutUnknownUser(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	_, err := f.svc.Checkout(context.Background(), "ghost", CheckoutInput{
		Customer: shipping(),
		Items:    []domain.CartLine{{ProductID: id, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCheckoutCardKeepsStock(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	res, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer:      shipping(),
		Items:         []domain.CartLine{{ProductID: id, Quantity: 3}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	o := res.Order
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, domain.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, domain.PaymentCard, o.PaymentMethod)
	assert.Equal(t, "cs_"+o.ID, o.PaymentSessionID)
	assert.Equal(t, "https://pay.example.com/"+o.ID, res.CheckoutURL)
	assert.Equal(t, 5, f.store.Stock(id))
	assert.Empty(t, f.notifier.orders)

	require.Len(t, f.provider.requests, 1)
	req := f.provider.requests[0]
	assert.Equal(t, o.ID, req.OrderID)
	assert.Equal(t, o.TotalCents, req.TotalCents())
	assert.Equal(t, "ron", req.Currency)
	assert.Equal(t, "ana@example.com", req.CustomerEmail)
	assert.Equal(t, "https://shop.example.com/order-success?orderId="+o.ID, req.SuccessURL)

	stored, err := f.svc.Get(context.Background(), o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cs_"+o.ID, stored.PaymentSessionID)
}

func TestCheckoutCardProviderFailureRemovesOrder(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("connection reset")
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	_, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
		Customer:      shipping(),
		Items:         []domain.CartLine{{ProductID: id, Quantity: 3}},
		PaymentMethod: domain.PaymentCard,
	})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Zero(t, f.store.OrderCount())
	assert.Equal(t, 5, f.store.Stock(id))
}

func TestCancelRestocksCODOrder(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, "u1", CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 3}}})
	require.NoError(t, err)
	require.Equal(t, 2, f.store.Stock(id))

	cancelled, err := f.svc.Cancel(ctx, res.Order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	assert.Equal(t, 5, f.store.Stock(id))

	_, err = f.svc.Cancel(ctx, res.Order.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 5, f.store.Stock(id))

	// Stock taken again by a new order round-trips.
	_, err = f.svc.Checkout(ctx, "u1", CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 3}}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Stock(id))
}

func TestCancelUnpaidCardOrderDoesNotRestock(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, "u1", CheckoutInput{
		Customer:      shipping(),
		Items:         []domain.CartLine{{ProductID: id, Quantity: 3}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, res.Order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, f.store.Stock(id))
}

func TestCancelForeignOrder(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, "u1", CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, res.Order.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Get(ctx, res.Order.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 4, f.store.Stock(id))
}

func TestCancelNonPending(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, "u1", CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 1}}})
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, res.Order.ID, "shipped")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, res.Order.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 4, f.store.Stock(id))
}

func TestSetStatusIsFreeForm(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, "u1", CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 1}}})
	require.NoError(t, err)

	for _, st := range []string{"delivered", "pending", "cancelled", "confirmed"} {
		o, err := f.svc.SetStatus(ctx, res.Order.ID, st)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatus(st), o.Status)
	}
	assert.Equal(t, 4, f.store.Stock(id))

	_, err = f.svc.SetStatus(ctx, res.Order.ID, "lost")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.SetStatus(ctx, "missing", "shipped")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMineOnlyReturnsOwnOrders(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 50})
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "u1"} {
		_, err := f.svc.Checkout(ctx, user, CheckoutInput{Customer: shipping(), Items: []domain.CartLine{{ProductID: id, Quantity: 1}}})
		require.NoError(t, err)
	}

	mine, err := f.svc.ListMine(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestConcurrentCODCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	id := f.store.AddProduct(domain.Product{Name: "Balloons", PriceCents: 300, Stock: 5})

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(context.Background(), "u1", CheckoutInput{
				Customer: shipping(),
				Items:    []domain.CartLine{{ProductID: id, Quantity: 2}},
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, f.store.Stock(id))
}
