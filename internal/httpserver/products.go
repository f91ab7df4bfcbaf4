package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productrepo "storefront/internal/repository/product"
	productsvc "storefront/internal/service/product"
)

func (h *handler) listProducts(c *gin.Context) {
	featured := strings.ToLower(c.Query("featured"))
	products, err := h.deps.Products.List(c.Request.Context(), productrepo.Filter{
		Featured: featured == "1" || featured == "true",
		Category: strings.TrimSpace(c.Query("category")),
		Search:   c.DefaultQuery("search", c.Query("q")),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productList(products))
}

func (h *handler) productBySlug(c *gin.Context) {
	p, err := h.deps.Products.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) adminGetProduct(c *gin.Context) {
	p, err := h.deps.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createProductRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Slug        string `json:"slug" binding:"omitempty,max=160"`
	Description string `json:"description"`
	PriceCents  *int64 `json:"priceCents" binding:"required,gte=0"`
	Stock       int    `json:"stock" binding:"gte=0"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	Featured    bool   `json:"featured"`
}

func (h *handler) adminCreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	p, err := h.deps.Products.Create(c.Request.Context(), productsvc.CreateInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  *req.PriceCents,
		Stock:       req.Stock,
		Image:       req.Image,
		Category:    req.Category,
		Featured:    req.Featured,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type updateProductRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=200"`
	Slug        *string `json:"slug" binding:"omitempty,min=2,max=160"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"priceCents" binding:"omitempty,gte=0"`
	Stock       *int    `json:"stock" binding:"omitempty,gte=0"`
	Image       *string `json:"image"`
	Category    *string `json:"category"`
	Featured    *bool   `json:"featured"`
}

func (h *handler) adminUpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	p, err := h.deps.Products.Update(c.Request.Context(), c.Param("id"), productrepo.Patch{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Image:       req.Image,
		Category:    req.Category,
		Featured:    req.Featured,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) adminDeleteProduct(c *gin.Context) {
	p, err := h.deps.Products.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": p.ID, "deletedAt": p.DeletedAt})
}
