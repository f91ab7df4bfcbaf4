// Package stripepay implements payment.Provider with Stripe Checkout.
package stripepay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/payment"
)

const (
	metaOrderID = "orderId"
	metaUserID  = "userId"
)

type Provider struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// New builds a client with its own backends so the package-level stripe.Key is never used.
func New(secretKey, webhookSecret string, timeout time.Duration, log *zap.Logger) *Provider {
	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	return &Provider{
		api:           api,
		webhookSecret: webhookSecret,
		logger:        logger.OrNop(log).Named("stripe"),
	}
}

func (p *Provider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
				UnitAmount: stripe.Int64(l.UnitAmountCents),
			},
			Quantity: stripe.Int64(int64(l.Quantity)),
		})
	}
	params.AddMetadata(metaOrderID, req.OrderID)
	params.AddMetadata(metaUserID, req.UserID)
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		p.logger.Error("create checkout session", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("%w: create checkout session: %v", domain.ErrUpstream, err)
	}
	p.logger.Info("checkout session created",
		zap.String("order_id", req.OrderID),
		zap.String("session_id", sess.ID),
		zap.Int64("amount_cents", req.TotalCents()))
	return &payment.Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *Provider) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &payment.Event{ID: event.ID, Type: string(event.Type), Kind: payment.EventIgnored}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
	default:
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, domain.Invalid("malformed checkout session in event %s", event.ID)
	}
	out.SessionID = sess.ID
	out.OrderID = sess.Metadata[metaOrderID]
	if sess.PaymentIntent != nil {
		out.PaymentRef = sess.PaymentIntent.ID
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Delayed payment methods complete the session before the money arrives; the
		// async_payment_succeeded event follows.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return out, nil
		}
		out.Kind = payment.EventPaid
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Kind = payment.EventPaid
	default:
		out.Kind = payment.EventFailed
	}
	return out, nil
}
