package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) listFavorites(c *gin.Context) {
	products, err := h.deps.Favorites.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productList(products))
}

func (h *handler) addFavorite(c *gin.Context) {
	if err := h.deps.Favorites.Add(c.Request.Context(), currentUserID(c), c.Param("productId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handler) removeFavorite(c *gin.Context) {
	if err := h.deps.Favorites.Remove(c.Request.Context(), currentUserID(c), c.Param("productId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
