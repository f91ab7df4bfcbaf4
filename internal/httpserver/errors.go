package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

// writeError maps service errors to status codes. Unexpected errors are logged and
// reported generically; upstream details are only shown outside production.
func (h *handler) writeError(c *gin.Context, err error) {
	var (
		stockErr *domain.StockError
		inputErr *domain.InputError
		valErrs  validator.ValidationErrors
	)
	switch {
	case errors.As(err, &stockErr):
		body := gin.H{"error": stockErr.Message(), "code": stockErr.Code, "productId": stockErr.ProductID}
		if stockErr.Code == domain.StockOutOfStock {
			body["available"] = stockErr.Available
			body["requested"] = stockErr.Requested
		}
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &valErrs):
		fields := make([]gin.H, 0, len(valErrs))
		for _, fe := range valErrs {
			fields = append(fields, gin.H{"field": fe.Field(), "rule": fe.Tag()})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": fields})
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Message})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, usersvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, usersvc.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Email not confirmed"})
	case errors.Is(err, usersvc.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		body := gin.H{"error": "Conflict"}
		if !h.opts.Production {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order cannot be changed in its current state"})
	case errors.Is(err, domain.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
	case errors.Is(err, domain.ErrUpstream):
		h.logger.Error("upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
		body := gin.H{"error": "Payment provider error"}
		if !h.opts.Production {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	default:
		h.logger.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// writeBindError reports a request body that failed to decode or validate.
func (h *handler) writeBindError(c *gin.Context, err error) {
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
}
