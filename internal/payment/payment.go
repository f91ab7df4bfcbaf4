// Package payment defines what the shop needs from a hosted card payment provider.
package payment

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

// SessionLine is one priced row shown on the hosted checkout page.
type SessionLine struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

type SessionRequest struct {
	OrderID       string
	UserID        string
	CustomerEmail string
	Currency      string
	Lines         []SessionLine
	SuccessURL    string
	CancelURL     string
}

// TotalCents is what the provider will charge for the request.
func (r SessionRequest) TotalCents() int64 {
	var sum int64
	for _, l := range r.Lines {
		sum += l.UnitAmountCents * int64(l.Quantity)
	}
	return sum
}

type Session struct {
	ID  string
	URL string
}

type EventKind string

const (
	EventPaid    EventKind = "paid"
	EventFailed  EventKind = "failed"
	EventIgnored EventKind = "ignored"
)

// Event is a verified provider notification reduced to what reconciliation needs.
type Event struct {
	ID         string
	Type       string
	Kind       EventKind
	OrderID    string
	SessionID  string
	PaymentRef string
}

type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseEvent verifies the signature and decodes the payload. Verification failures
	// wrap domain.ErrInvalidSignature.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// Disabled is used when no provider credentials are configured.
type Disabled struct{}

func (Disabled) CreateSession(context.Context, SessionRequest) (*Session, error) {
	return nil, fmt.Errorf("%w: payment provider not configured", domain.ErrUpstream)
}

func (Disabled) ParseEvent([]byte, string) (*Event, error) {
	return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
}
