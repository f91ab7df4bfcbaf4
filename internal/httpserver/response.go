package httpserver

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type orderResponse struct {
	ID            string               `json:"id"`
	CreatedAt     time.Time            `json:"createdAt"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	ShippingCents int64                `json:"shippingCents"`
	TotalCents    int64                `json:"totalCents"`
	TotalDisplay  string               `json:"totalDisplay"`
	Customer      domain.Customer      `json:"customer"`
	Items         []orderItemResponse  `json:"items"`
	CheckoutURL   string               `json:"checkoutUrl,omitempty"`
}

type orderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

func (h *handler) toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}
	return orderResponse{
		ID:            o.ID,
		CreatedAt:     o.CreatedAt,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		ShippingCents: o.ShippingCents,
		TotalCents:    o.TotalCents,
		TotalDisplay:  pricing.FormatCents(o.TotalCents, h.opts.Currency),
		Customer:      o.Customer,
		Items:         items,
	}
}

func (h *handler) toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, h.toOrderResponse(o))
	}
	return out
}

// adminOrderResponse adds the fields only the back office sees.
type adminOrderResponse struct {
	orderResponse
	UserID           string `json:"userId"`
	PaymentSessionID string `json:"paymentSessionId,omitempty"`
	PaymentRef       string `json:"paymentRef,omitempty"`
}

func (h *handler) toAdminOrderResponse(o domain.Order) adminOrderResponse {
	return adminOrderResponse{
		orderResponse:    h.toOrderResponse(o),
		UserID:           o.UserID,
		PaymentSessionID: o.PaymentSessionID,
		PaymentRef:       o.PaymentRef,
	}
}

func productList(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
