package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	usersvc "storefront/internal/service/user"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	u, err := h.deps.Users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"ok":      true,
		"message": "Account created. Check your email to confirm it.",
		"user":    u,
	})
}

func (h *handler) confirmEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "Missing token")
		return
	}
	if err := h.deps.Users.ConfirmEmail(c.Request.Context(), token); err != nil {
		if errors.Is(err, usersvc.ErrInvalidToken) {
			c.String(http.StatusBadRequest, "Invalid or expired token")
			return
		}
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.opts.FrontendURL+"/login?confirmed=1")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	u, token, err := h.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

func (h *handler) me(c *gin.Context) {
	u, err := h.deps.Users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	token, err := h.deps.Users.AdminLogin(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
