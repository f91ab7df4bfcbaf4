package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(q db.Querier) error) error
}

type productReader interface {
	FindActive(ctx context.Context, q db.Querier, ids []string, lock bool) ([]domain.Product, error)
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Notifier receives orders whose confirmation mail should go out.
type Notifier interface {
	OrderConfirmation(o domain.Order)
}

type Options struct {
	Policy         pricing.Policy
	Currency       string
	FrontendURL    string
	PaymentTimeout time.Duration
}

// Service owns order creation, cancellation and admin status changes.
type Service struct {
	tx        txRunner
	products  productReader
	inventory inventory.Repository
	orders    orderrepo.Repository
	users     userReader
	payments  payment.Provider
	notifier  Notifier
	opts      Options
	logger    *zap.Logger
}

type Deps struct {
	Tx        txRunner
	Products  productReader
	Inventory inventory.Repository
	Orders    orderrepo.Repository
	Users     userReader
	Payments  payment.Provider
	Notifier  Notifier
}

func New(deps Deps, opts Options, log *zap.Logger) *Service {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 15 * time.Second
	}
	if deps.Payments == nil {
		deps.Payments = payment.Disabled{}
	}
	return &Service{
		tx:        deps.Tx,
		products:  deps.Products,
		inventory: deps.Inventory,
		orders:    deps.Orders,
		users:     deps.Users,
		payments:  deps.Payments,
		notifier:  deps.Notifier,
		opts:      opts,
		logger:    logger.OrNop(log).Named("orders"),
	}
}

// CustomerInput is the shipping block submitted at checkout.
type CustomerInput struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postalCode"`
}

type CheckoutInput struct {
	Customer      CustomerInput
	Items         []domain.CartLine
	PaymentMethod domain.PaymentMethod
}

type CheckoutResult struct {
	Order *domain.Order
	// CheckoutURL is the hosted payment page for card orders.
	CheckoutURL string
}

// Checkout creates an order for userID. Cash orders take stock immediately; card orders
// only validate stock and open a payment session, leaving the decrement to the webhook.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutResult, error) {
	customer, err := s.customer(ctx, userID, in.Customer)
	if err != nil {
		return nil, err
	}
	lines := domain.MergeCartLines(in.Items)
	if len(lines) == 0 {
		return nil, domain.Invalid("Cart is empty")
	}

	switch in.PaymentMethod {
	case "", domain.PaymentCOD:
		return s.checkoutCOD(ctx, userID, customer, lines)
	case domain.PaymentCard:
		return s.checkoutCard(ctx, userID, customer, lines)
	default:
		return nil, domain.Invalid("Invalid payment method")
	}
}

func (s *Service) checkoutCOD(ctx context.Context, userID string, customer domain.Customer, lines []domain.CartLine) (*CheckoutResult, error) {
	var created *domain.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		draft, err := s.draft(ctx, q, lines, true)
		if err != nil {
			return err
		}
		if err := s.inventory.Decrement(ctx, q, draft.StockLines()); err != nil {
			return err
		}
		draft.UserID = userID
		draft.Customer = customer
		draft.PaymentMethod = domain.PaymentCOD
		created, err = s.orders.Create(ctx, q, *draft)
		return err
	})
	if err != nil {
		s.logFailure("cod checkout", userID, err)
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Int64("total_cents", created.TotalCents),
	)
	if s.notifier != nil {
		s.notifier.OrderConfirmation(*created)
	}
	return &CheckoutResult{Order: created}, nil
}

func (s *Service) checkoutCard(ctx context.Context, userID string, customer domain.Customer, lines []domain.CartLine) (*CheckoutResult, error) {
	var created *domain.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		draft, err := s.draft(ctx, q, lines, false)
		if err != nil {
			return err
		}
		draft.UserID = userID
		draft.Customer = customer
		draft.PaymentMethod = domain.PaymentCard
		created, err = s.orders.Create(ctx, q, *draft)
		return err
	})
	if err != nil {
		s.logFailure("card checkout", userID, err)
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	sess, err := s.payments.CreateSession(callCtx, s.sessionRequest(*created))
	cancel()
	if err != nil {
		s.logger.Error("create payment session", zap.String("order_id", created.ID), zap.Error(err))
		// The order never reached the provider, so it is removed rather than left dangling.
		if derr := s.orders.DeleteUnlinked(context.WithoutCancel(ctx), nil, created.ID); derr != nil {
			s.logger.Warn("remove order after session failure", zap.String("order_id", created.ID), zap.Error(derr))
		}
		if errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if err := s.orders.LinkSession(ctx, nil, created.ID, sess.ID); err != nil {
		// The webhook can still find the order through the session metadata.
		s.logger.Warn("link payment session", zap.String("order_id", created.ID), zap.String("session_id", sess.ID), zap.Error(err))
	} else {
		created.PaymentSessionID = sess.ID
	}

	s.logger.Info("card order awaiting payment",
		zap.String("order_id", created.ID),
		zap.String("session_id", sess.ID),
		zap.Int64("total_cents", created.TotalCents),
	)
	return &CheckoutResult{Order: created, CheckoutURL: sess.URL}, nil
}

// draft loads the products, rejects the whole cart on the first missing or short line
// and prices what remains. lock keeps the rows locked for the enclosing transaction.
func (s *Service) draft(ctx context.Context, q db.Querier, lines []domain.CartLine, lock bool) (*domain.Order, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindActive(ctx, q, ids, lock)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]domain.OrderItem, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, domain.NotFoundStock(l.ProductID)
		}
		if l.Quantity > p.Stock {
			return nil, domain.OutOfStock(p.ID, p.Stock, l.Quantity)
		}
		items = append(items, domain.OrderItem{ProductID: p.ID, Name: p.Name, PriceCents: p.PriceCents, Quantity: l.Quantity})
		priced = append(priced, pricing.Line{ProductID: p.ID, Quantity: l.Quantity, UnitPriceCents: p.PriceCents})
	}

	totals := s.opts.Policy.Compute(priced)
	return &domain.Order{
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentUnpaid,
		ShippingCents: totals.ShippingCents,
		TotalCents:    totals.GrandTotalCents,
		Items:         items,
	}, nil
}

func (s *Service) sessionRequest(o domain.Order) payment.SessionRequest {
	req := payment.SessionRequest{
		OrderID:       o.ID,
		UserID:        o.UserID,
		CustomerEmail: o.Customer.Email,
		Currency:      s.opts.Currency,
		SuccessURL:    s.opts.FrontendURL + "/order-success?orderId=" + url.QueryEscape(o.ID),
		CancelURL:     s.opts.FrontendURL + "/checkout?canceled=1&orderId=" + url.QueryEscape(o.ID),
	}
	for _, it := range o.Items {
		req.Lines = append(req.Lines, payment.SessionLine{Name: it.Name, UnitAmountCents: it.PriceCents, Quantity: it.Quantity})
	}
	if o.ShippingCents > 0 {
		req.Lines = append(req.Lines, payment.SessionLine{Name: "Shipping", UnitAmountCents: o.ShippingCents, Quantity: 1})
	}
	return req
}

func (s *Service) customer(ctx context.Context, userID string, in CustomerInput) (domain.Customer, error) {
	c := domain.Customer{
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		County:     strings.TrimSpace(in.County),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}
	if c.Name == "" || c.Phone == "" || c.Address == "" || c.City == "" || c.County == "" {
		return domain.Customer{}, domain.Invalid("Missing required fields")
	}
	if userID == "" {
		return domain.Customer{}, domain.ErrUnauthorized
	}
	if s.users != nil {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Customer{}, domain.ErrUnauthorized
			}
			return domain.Customer{}, err
		}
		c.Email = u.Email
	}
	return c, nil
}

// Cancel lets the owner cancel a pending order, returning any stock it took.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	var cancelled *domain.Order
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		o, err := s.orders.Get(ctx, q, orderID, true)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrNotFound
		}
		if o.Status != domain.OrderPending {
			return domain.ErrInvalidState
		}
		if o.StockCommitted() {
			if err := s.inventory.Restock(ctx, q, o.StockLines()); err != nil {
				return err
			}
		}
		if err := s.orders.UpdateStatus(ctx, q, o.ID, domain.OrderCancelled); err != nil {
			return err
		}
		cancelled, err = s.orders.Get(ctx, q, o.ID, false)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidState) {
			s.logger.Error("cancel", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("order cancelled", zap.String("order_id", orderID), zap.Bool("restocked", cancelled.StockCommitted()))
	return cancelled, nil
}

// Get returns an order owned by userID. Orders of other users are reported as missing.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, nil, orderID, false)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// SetStatus is the admin override. Any known status may follow any other and stock is
// left untouched.
func (s *Service) SetStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	st, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.Invalid("Invalid status")
	}
	if err := s.orders.UpdateStatus(ctx, nil, orderID, st); err != nil {
		return nil, err
	}
	s.logger.Info("order status set", zap.String("order_id", orderID), zap.String("status", string(st)))
	return s.orders.Get(ctx, nil, orderID, false)
}

func (s *Service) logFailure(op, userID string, err error) {
	var se *domain.StockError
	switch {
	case errors.As(err, &se):
		s.logger.Info(op+" rejected", zap.String("user_id", userID), zap.String("product_id", se.ProductID), zap.String("code", string(se.Code)))
	case errors.Is(err, domain.ErrInvalidInput):
	default:
		s.logger.Error(op, zap.String("user_id", userID), zap.Error(err))
	}
}
