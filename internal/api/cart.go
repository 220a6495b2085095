package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  *int  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (s *Server) handleListCart(c *gin.Context) {
	items, err := s.store.ListCart(c.Request.Context(), optionalCaller(c))
	if err != nil {
		s.fail(c, "cart_list_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, mapSlice(items, toCartItemResponse))
}

func (s *Server) handleAddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := s.store.AddToCart(c.Request.Context(), optionalCaller(c), req.ProductID, quantity)
	if err != nil {
		s.fail(c, "cart_add_failed", err, map[string]any{
			"product_id": req.ProductID,
			"quantity":   quantity,
		})
		return
	}
	c.JSON(http.StatusCreated, toCartItemResponse(item))
}

func (s *Server) handleUpdateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	item, err := s.store.UpdateCartItem(c.Request.Context(), id, optionalCaller(c), *req.Quantity)
	if err != nil {
		s.fail(c, "cart_update_failed", err, map[string]any{"cart_item_id": id})
		return
	}
	c.JSON(http.StatusOK, toCartItemResponse(item))
}

func (s *Server) handleRemoveCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.RemoveCartItem(c.Request.Context(), id, optionalCaller(c)); err != nil {
		s.fail(c, "cart_remove_failed", err, map[string]any{"cart_item_id": id})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearCart(c *gin.Context) {
	removed, err := s.store.ClearCart(c.Request.Context(), optionalCaller(c))
	if err != nil {
		s.fail(c, "cart_clear_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
