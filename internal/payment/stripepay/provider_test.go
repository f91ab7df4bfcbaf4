package stripepay

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"storefront/internal/domain"
	"storefront/internal/payment"
)

const secret = "whsec_test"

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func sessionEvent(eventType, paymentStatus string) string {
	return fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "api_version": "2024-06-20",
  "type": %q,
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "payment_status": %q,
      "payment_intent": "pi_123",
      "metadata": {"orderId": "order-1", "userId": "user-1"}
    }
  }
}`, eventType, paymentStatus)
}

func TestParseEventCompleted(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := sessionEvent("checkout.session.completed", "paid")

	ev, err := p.ParseEvent([]byte(payload), sign(t, payload))
	require.NoError(t, err)

	assert.Equal(t, payment.EventPaid, ev.Kind)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "order-1", ev.OrderID)
	assert.Equal(t, "cs_test_1", ev.SessionID)
	assert.Equal(t, "pi_123", ev.PaymentRef)
}

func TestParseEventCompletedButUnpaidWaitsForAsyncEvent(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := sessionEvent("checkout.session.completed", "unpaid")

	ev, err := p.ParseEvent([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventIgnored, ev.Kind)
}

func TestParseEventExpired(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := sessionEvent("checkout.session.expired", "unpaid")

	ev, err := p.ParseEvent([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventFailed, ev.Kind)
	assert.Equal(t, "order-1", ev.OrderID)
}

func TestParseEventOtherTypesAreIgnored(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`

	ev, err := p.ParseEvent([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventIgnored, ev.Kind)
	assert.Equal(t, "customer.created", ev.Type)
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := sessionEvent("checkout.session.completed", "paid")

	_, err := p.ParseEvent([]byte(payload), "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
}

func TestParseEventRejectsTamperedPayload(t *testing.T) {
	p := New("sk_test", secret, time.Second, nil)
	payload := sessionEvent("checkout.session.completed", "paid")
	header := sign(t, payload)

	_, err := p.ParseEvent([]byte(payload+" "), header)
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
}

func TestParseEventWithoutSecret(t *testing.T) {
	p := New("sk_test", "", time.Second, nil)

	_, err := p.ParseEvent([]byte(`{}`), "t=1,v1=x")
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
}
