package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vintique.shop/internal/catalog"
	"vintique.shop/internal/idempotency"
	"vintique.shop/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, code string) {
	c.JSON(status, errorResponse{Error: code})
}

// errorStatus maps domain errors onto an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, store.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, store.ErrCartItemNotFound):
		return http.StatusNotFound, "cart_item_not_found"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, store.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, store.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, store.ErrInvalidProduct):
		return http.StatusBadRequest, "invalid_product"
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusBadRequest, "insufficient_stock"
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, idempotency.ErrDuplicate):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, catalog.ErrImagesDisabled):
		return http.StatusServiceUnavailable, "images_unavailable"
	case errors.Is(err, catalog.ErrImageUpload):
		return http.StatusBadGateway, "image_upload_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail logs event with the failure reason and writes the mapped error.
func (s *Server) fail(c *gin.Context, event string, err error, fields map[string]any) {
	status, code := errorStatus(err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["reason"] = code
	if status >= http.StatusInternalServerError {
		fields["error"] = err.Error()
	}
	s.logEvent(c, event, fields)
	writeError(c, status, code)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return id, true
}
