package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vintique.shop/internal/store"
)

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (s *Server) handleGetAccount(c *gin.Context) {
	userID, _ := callerID(c)
	acct, err := s.store.GetAccount(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "account_get_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (s *Server) handleFund(c *gin.Context) {
	s.ledgerOperation(c, "fund", "account_funded", s.store.Fund)
}

func (s *Server) handleWithdraw(c *gin.Context) {
	s.ledgerOperation(c, "withdraw", "account_withdrawn", s.store.Withdraw)
}

type ledgerFunc func(ctx context.Context, userID int64, amount decimal.Decimal) (store.Account, error)

func (s *Server) ledgerOperation(c *gin.Context, op, okEvent string, apply ledgerFunc) {
	userID, _ := callerID(c)
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		s.metrics.ledgerOp(c.Request.Context(), op, "invalid_request")
		s.logEvent(c, "account_"+op+"_failed", map[string]any{"reason": "invalid_request"})
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	ctx, span := s.tracer.Start(c.Request.Context(), "ledger."+op)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.String("amount", req.Amount.String()),
	)

	acct, err := apply(ctx, userID, *req.Amount)
	if err != nil {
		_, code := errorStatus(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.metrics.ledgerOp(ctx, op, code)
		s.fail(c, "account_"+op+"_failed", err, map[string]any{"amount": req.Amount.String()})
		return
	}

	s.metrics.ledgerOp(ctx, op, "ok")
	s.logEvent(c, okEvent, map[string]any{
		"amount":  req.Amount.String(),
		"balance": acct.Balance.String(),
	})
	c.JSON(http.StatusOK, toAccountResponse(acct))
}
