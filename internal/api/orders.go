package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vintique.shop/internal/store"
)

const idempotencyHeader = "Idempotency-Key"

type checkoutRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  *int  `json:"quantity"`
}

type updateOrderStatusRequest struct {
	OrderStatus string `json:"order_status" binding:"required"`
}

type createTransactionRequest struct {
	PaymentID *string `json:"payment_id"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	userID, _ := callerID(c)
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.checkout(c.Request.Context(), "invalid_request")
		s.logEvent(c, "checkout_failed", map[string]any{"reason": "invalid_request"})
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ctx, span := s.tracer.Start(c.Request.Context(), "checkout")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("product_id", req.ProductID),
		attribute.Int("quantity", quantity),
	)

	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	claimed := false
	if key != "" && s.guard != nil {
		if err := s.guard.Acquire(ctx, userID, key); err != nil {
			s.checkoutFailed(ctx, c, err, req.ProductID, quantity)
			return
		}
		claimed = true
	}

	order, err := s.store.CreateOrder(ctx, userID, req.ProductID, quantity)
	if err != nil {
		if claimed {
			// Release even if the client already disconnected.
			if relErr := s.guard.Release(context.WithoutCancel(ctx), userID, key); relErr != nil {
				s.logEvent(c, "idempotency_release_failed", map[string]any{"reason": relErr.Error()})
			}
		}
		s.checkoutFailed(ctx, c, err, req.ProductID, quantity)
		return
	}

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.String("amount", order.Amount.String()),
	)
	s.metrics.checkout(ctx, "ok")
	s.logEvent(c, "order_created", map[string]any{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"quantity":   order.Quantity,
		"amount":     order.Amount.String(),
	})
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (s *Server) checkoutFailed(ctx context.Context, c *gin.Context, err error, productID int64, quantity int) {
	_, code := errorStatus(err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	s.metrics.checkout(ctx, code)
	s.fail(c, "checkout_failed", err, map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
}

func (s *Server) handleListMyOrders(c *gin.Context) {
	userID, _ := callerID(c)
	orders, err := s.store.ListOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "order_list_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, mapSlice(orders, toOrderResponse))
}

// handleGetOrder serves the owner or an admin.
func (s *Server) handleGetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := s.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "order_get_failed", err, map[string]any{"order_id": id})
		return
	}

	userID, _ := callerID(c)
	if order.UserID != userID {
		isAdmin, err := s.isAdmin(c)
		if err != nil {
			s.fail(c, "order_get_failed", err, map[string]any{"order_id": id})
			return
		}
		if !isAdmin {
			s.fail(c, "order_get_failed", store.ErrForbidden, map[string]any{"order_id": id})
			return
		}
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleListAllOrders(c *gin.Context) {
	orders, err := s.store.ListOrders(c.Request.Context())
	if err != nil {
		s.fail(c, "order_list_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, mapSlice(orders, toOrderResponse))
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	order, err := s.store.UpdateOrderStatus(c.Request.Context(), id, req.OrderStatus)
	if err != nil {
		s.fail(c, "order_status_update_failed", err, map[string]any{"order_id": id})
		return
	}

	s.logEvent(c, "order_status_updated", map[string]any{
		"order_id":     id,
		"order_status": order.OrderStatus,
	})
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	tx, err := s.store.CreateTransaction(c.Request.Context(), id, req.PaymentID)
	if err != nil {
		s.fail(c, "transaction_create_failed", err, map[string]any{"order_id": id})
		return
	}

	s.logEvent(c, "transaction_created", map[string]any{
		"order_id":       id,
		"transaction_id": tx.ID,
	})
	c.JSON(http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	txs, err := s.store.ListTransactions(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "transaction_list_failed", err, map[string]any{"order_id": id})
		return
	}
	c.JSON(http.StatusOK, mapSlice(txs, toTransactionResponse))
}
