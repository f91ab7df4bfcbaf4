package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

type checkoutRequest struct {
	Customer      ordersvc.CustomerInput `json:"customer"`
	Items         []cartItemRequest      `json:"items"`
	PaymentMethod string                 `json:"paymentMethod" binding:"omitempty,oneof=cod card"`
}

func (r checkoutRequest) input(method domain.PaymentMethod) ordersvc.CheckoutInput {
	return ordersvc.CheckoutInput{Customer: r.Customer, Items: toCartLines(r.Items), PaymentMethod: method}
}

func (h *handler) createOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	res, err := h.deps.Orders.Checkout(c.Request.Context(), currentUserID(c), req.input(domain.PaymentMethod(req.PaymentMethod)))
	if err != nil {
		h.writeError(c, err)
		return
	}
	body := h.toOrderResponse(*res.Order)
	body.CheckoutURL = res.CheckoutURL
	c.JSON(http.StatusCreated, body)
}

// createSession is the card-only checkout used by the hosted payment flow.
func (h *handler) createSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	res, err := h.deps.Orders.Checkout(c.Request.Context(), currentUserID(c), req.input(domain.PaymentCard))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": res.CheckoutURL, "orderId": res.Order.ID})
}

func (h *handler) myOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toOrderResponses(orders))
}

func (h *handler) getOrder(c *gin.Context) {
	o, err := h.deps.Orders.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toOrderResponse(*o))
}

func (h *handler) cancelOrder(c *gin.Context) {
	o, err := h.deps.Orders.Cancel(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toOrderResponse(*o))
}

func (h *handler) adminListOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]adminOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, h.toAdminOrderResponse(o))
	}
	c.JSON(http.StatusOK, out)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed shipped delivered cancelled"`
}

func (h *handler) adminSetOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	o, err := h.deps.Orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toAdminOrderResponse(*o))
}
