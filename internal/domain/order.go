package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus accepts only the known lifecycle states.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return st, true
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// Customer is the shipping and contact snapshot stored on an order.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postalCode,omitempty"`
}

type Order struct {
	ID               string
	UserID           string
	Status           OrderStatus
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Customer         Customer
	ShippingCents    int64
	TotalCents       int64
	PaymentSessionID string
	PaymentRef       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []OrderItem
}

// OrderItem is a frozen snapshot of a product at order time.
type OrderItem struct {
	ID         string
	ProductID  string
	Name       string
	PriceCents int64
	Quantity   int
}

// ItemsTotalCents sums the item snapshots.
func (o Order) ItemsTotalCents() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.PriceCents * int64(it.Quantity)
	}
	return sum
}

// StockLines lists the quantities this order moves out of inventory.
func (o Order) StockLines() []StockLine {
	out := make([]StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// StockCommitted reports whether inventory was decremented for this order.
func (o Order) StockCommitted() bool {
	return o.PaymentMethod == PaymentCOD || o.PaymentStatus == PaymentPaid
}
