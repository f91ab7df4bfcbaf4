package httpserver

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

// lenientQuantity accepts numbers and numeric strings. Anything else decodes as 0,
// which cart merging raises to 1.
type lenientQuantity int

func (q *lenientQuantity) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*q = clampQuantity(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*q = clampQuantity(n)
			return nil
		}
	}
	*q = 0
	return nil
}

func clampQuantity(n float64) lenientQuantity {
	switch {
	case math.IsNaN(n) || n < 0:
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return lenientQuantity(math.Floor(n))
}

type cartItemRequest struct {
	ID       string          `json:"id"`
	Quantity lenientQuantity `json:"quantity"`
}

func toCartLines(items []cartItemRequest) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		out = append(out, domain.CartLine{ProductID: it.ID, Quantity: int(it.Quantity)})
	}
	return out
}

type validateCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

func (h *handler) validateCart(c *gin.Context) {
	var req validateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	summary, err := h.deps.Cart.Validate(c.Request.Context(), toCartLines(req.Items))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
