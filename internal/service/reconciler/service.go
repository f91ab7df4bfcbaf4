// Package reconciler applies verified payment provider events to card orders.
package reconciler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/payment"
	"storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(q db.Querier) error) error
}

type Notifier interface {
	OrderConfirmation(o domain.Order)
}

// Outcome says what an event did to its order.
type Outcome string

const (
	OutcomePaid          Outcome = "paid"
	OutcomeFailed        Outcome = "failed"
	OutcomeStockShortage Outcome = "stock_shortage"
	OutcomeNoop          Outcome = "noop"
	OutcomeIgnored       Outcome = "ignored"
)

type Service struct {
	tx        txRunner
	inventory inventory.Repository
	orders    orderrepo.Repository
	provider  payment.Provider
	notifier  Notifier
	logger    *zap.Logger
}

func New(tx txRunner, inv inventory.Repository, orders orderrepo.Repository, provider payment.Provider, notifier Notifier, log *zap.Logger) *Service {
	if provider == nil {
		provider = payment.Disabled{}
	}
	return &Service{
		tx:        tx,
		inventory: inv,
		orders:    orders,
		provider:  provider,
		notifier:  notifier,
		logger:    logger.OrNop(log).Named("reconciler"),
	}
}

// HandleWebhook verifies payload and applies it. Errors wrapping domain.ErrInvalidSignature
// or domain.ErrInvalidInput mean the delivery was rejected without side effects.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	ev, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return "", err
	}
	return s.Apply(ctx, *ev)
}

// Apply is safe to call any number of times for the same event.
func (s *Service) Apply(ctx context.Context, ev payment.Event) (Outcome, error) {
	log := s.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("order_id", ev.OrderID),
		zap.String("session_id", ev.SessionID),
	)

	var (
		outcome Outcome
		err     error
	)
	switch ev.Kind {
	case payment.EventPaid:
		var confirmed *domain.Order
		outcome, confirmed, err = s.confirm(ctx, ev)
		if err == nil && confirmed != nil && s.notifier != nil {
			s.notifier.OrderConfirmation(*confirmed)
		}
	case payment.EventFailed:
		outcome, err = s.fail(ctx, ev)
	default:
		outcome = OutcomeIgnored
	}
	if err != nil {
		log.Error("apply event", zap.Error(err))
		return "", err
	}
	log.Info("event applied", zap.String("outcome", string(outcome)))
	return outcome, nil
}

// confirm takes stock and marks the order paid in one transaction. It returns the
// confirmed order only when this call made the unpaid to paid transition.
func (s *Service) confirm(ctx context.Context, ev payment.Event) (Outcome, *domain.Order, error) {
	var (
		outcome   = OutcomeNoop
		confirmed *domain.Order
	)
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		o, err := s.locate(ctx, q, ev)
		if err != nil || o == nil {
			return err
		}
		switch {
		case o.PaymentStatus == domain.PaymentPaid:
			return nil
		case o.Status == domain.OrderCancelled:
			s.logger.Warn("payment for cancelled order", zap.String("order_id", o.ID), zap.String("session_id", ev.SessionID))
			return nil
		}

		if err := s.inventory.Reserve(ctx, q, o.StockLines()); err != nil {
			var se *domain.StockError
			if !errors.As(err, &se) {
				return err
			}
			s.logger.Warn("stock gone at payment confirmation",
				zap.String("order_id", o.ID),
				zap.String("product_id", se.ProductID),
				zap.Int("available", se.Available),
				zap.Int("requested", se.Requested),
			)
			if _, err := s.orders.MarkPaymentFailed(ctx, q, o.ID); err != nil {
				return err
			}
			outcome = OutcomeStockShortage
			return nil
		}

		if err := s.orders.MarkPaid(ctx, q, o.ID, ev.SessionID, ev.PaymentRef); err != nil {
			return err
		}
		confirmed, err = s.orders.Get(ctx, q, o.ID, false)
		if err != nil {
			return err
		}
		outcome = OutcomePaid
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, confirmed, nil
}

func (s *Service) fail(ctx context.Context, ev payment.Event) (Outcome, error) {
	outcome := OutcomeNoop
	err := s.tx.WithTx(ctx, func(q db.Querier) error {
		o, err := s.locate(ctx, q, ev)
		if err != nil || o == nil {
			return err
		}
		changed, err := s.orders.MarkPaymentFailed(ctx, q, o.ID)
		if err != nil {
			return err
		}
		if changed {
			outcome = OutcomeFailed
		}
		return nil
	})
	return outcome, err
}

// locate finds and locks the order by metadata id, falling back to the session id.
// A nil order with nil error means there is nothing to reconcile.
func (s *Service) locate(ctx context.Context, q db.Querier, ev payment.Event) (*domain.Order, error) {
	if ev.OrderID != "" {
		o, err := s.orders.Get(ctx, q, ev.OrderID, true)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if ev.SessionID != "" {
		o, err := s.orders.GetBySessionID(ctx, q, ev.SessionID, true)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	s.logger.Info("no order for event", zap.String("order_id", ev.OrderID), zap.String("session_id", ev.SessionID))
	return nil, nil
}
