package notify

import (
	"bytes"
	"html/template"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

var orderTmpl = template.Must(template.New("order").Parse(`<div style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto;">
  <h2>Your order has been placed</h2>
  <p>Order number: <strong>#{{.ID}}</strong></p>
  <p>Status: <strong>{{.Status}}</strong></p>
  <p>Payment: <strong>{{.Payment}}</strong></p>
  <h3>Items</h3>
  <table style="width:100%; border-collapse:collapse;">
  {{- range .Items}}
    <tr>
      <td style="padding:6px 0;">{{.Quantity}} &times; {{.Name}}</td>
      <td style="padding:6px 0; text-align:right;">{{.Total}}</td>
    </tr>
  {{- end}}
    <tr>
      <td style="padding:6px 0;">Shipping</td>
      <td style="padding:6px 0; text-align:right;">{{.Shipping}}</td>
    </tr>
    <tr>
      <td style="padding-top:10px; border-top:1px solid #eee;"><strong>Total</strong></td>
      <td style="padding-top:10px; border-top:1px solid #eee; text-align:right;"><strong>{{.Total}}</strong></td>
    </tr>
  </table>
  <p style="margin-top:16px;">See your orders: <a href="{{.OrdersURL}}">{{.OrdersURL}}</a></p>
</div>`))

var verifyTmpl = template.Must(template.New("verify").Parse(`<h2>Welcome!</h2>
<p>Please confirm your email address:</p>
<p><a href="{{.}}">Confirm email</a></p>`))

type orderView struct {
	ID        string
	Status    string
	Payment   string
	Items     []itemView
	Shipping  string
	Total     string
	OrdersURL string
}

type itemView struct {
	Quantity int
	Name     string
	Total    string
}

func renderOrder(o domain.Order, currency, ordersURL string) (string, error) {
	view := orderView{
		ID:        o.ID,
		Status:    string(o.Status),
		Payment:   paymentLabel(o),
		Shipping:  pricing.FormatCents(o.ShippingCents, currency),
		Total:     pricing.FormatCents(o.TotalCents, currency),
		OrdersURL: ordersURL,
	}
	for _, it := range o.Items {
		view.Items = append(view.Items, itemView{
			Quantity: it.Quantity,
			Name:     it.Name,
			Total:    pricing.FormatCents(it.PriceCents*int64(it.Quantity), currency),
		})
	}
	var buf bytes.Buffer
	if err := orderTmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderVerification(confirmURL string) (string, error) {
	var buf bytes.Buffer
	if err := verifyTmpl.Execute(&buf, confirmURL); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func paymentLabel(o domain.Order) string {
	if o.PaymentMethod == domain.PaymentCard {
		if o.PaymentStatus == domain.PaymentPaid {
			return "card (paid)"
		}
		return "card"
	}
	return "cash on delivery"
}
