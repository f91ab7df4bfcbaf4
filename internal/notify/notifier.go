package notify

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

type Options struct {
	Timeout     time.Duration
	Currency    string
	FrontendURL string
	BackendURL  string
}

// Notifier sends mail in the background. Failures are logged and never returned.
type Notifier struct {
	mailer Mailer
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(mailer Mailer, opts Options, log *zap.Logger) *Notifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Notifier{mailer: mailer, opts: opts, logger: logger.OrNop(log).Named("notify")}
}

// OrderConfirmation queues the confirmation mail for o.
func (n *Notifier) OrderConfirmation(o domain.Order) {
	if o.Customer.Email == "" {
		n.logger.Warn("order confirmation skipped: no email", zap.String("order_id", o.ID))
		return
	}
	html, err := renderOrder(o, n.opts.Currency, n.opts.FrontendURL+"/orders")
	if err != nil {
		n.logger.Error("render order confirmation", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	n.dispatch("order_confirmation", Message{
		To:      o.Customer.Email,
		Subject: "Order confirmation #" + o.ID,
		HTML:    html,
	}, zap.String("order_id", o.ID))
}

// EmailVerification queues the account confirmation link.
func (n *Notifier) EmailVerification(to, token string) {
	link := n.opts.BackendURL + "/api/auth/confirm-email?token=" + url.QueryEscape(token)
	html, err := renderVerification(link)
	if err != nil {
		n.logger.Error("render verification", zap.Error(err))
		return
	}
	n.dispatch("email_verification", Message{To: to, Subject: "Confirm your email address", HTML: html})
}

func (n *Notifier) dispatch(kind string, msg Message, fields ...zap.Field) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.opts.Timeout)
		defer cancel()

		fields = append(fields, zap.String("kind", kind))
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Warn("email not sent", append(fields, zap.Error(err))...)
			return
		}
		n.logger.Info("email sent", fields...)
	}()
}

// Wait blocks until queued mail has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
