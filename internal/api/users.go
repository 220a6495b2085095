package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"vintique.shop/internal/store"
)

// Passwords are capped at 72 bytes, the most bcrypt hashes.
type createUserRequest struct {
	Email           string  `json:"email" binding:"required,email,max=255"`
	Username        string  `json:"username" binding:"required,min=3,max=50,username"`
	Password        string  `json:"password" binding:"required,min=8,max=72,strongpassword"`
	ShippingAddress *string `json:"shipping_address" binding:"omitempty,max=500"`
}

type setBalanceRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logEvent(c, "user_create_failed", map[string]any{"reason": "invalid_request"})
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.ToLower(req.Email)
	if req.ShippingAddress != nil {
		addr := strings.TrimSpace(*req.ShippingAddress)
		if addr == "" {
			s.logEvent(c, "user_create_failed", map[string]any{"reason": "invalid_request"})
			writeError(c, http.StatusBadRequest, "invalid_request")
			return
		}
		req.ShippingAddress = &addr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.fail(c, "user_create_failed", err, nil)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), store.CreateUserInput{
		Email:           req.Email,
		Username:        req.Username,
		PasswordHash:    string(hash),
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		s.fail(c, "user_create_failed", err, map[string]any{"username": req.Username})
		return
	}

	s.logEvent(c, "user_created", map[string]any{"user_id": user.ID})
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, "user_list_failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, mapSlice(users, toUserResponse))
}

func (s *Server) handleSetBalance(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	var req setBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Balance == nil {
		writeError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	acct, err := s.store.SetBalance(c.Request.Context(), userID, *req.Balance)
	if err != nil {
		s.fail(c, "balance_set_failed", err, map[string]any{"target_user_id": userID})
		return
	}

	s.logEvent(c, "balance_set", map[string]any{
		"target_user_id": userID,
		"balance":        acct.Balance.String(),
	})
	c.JSON(http.StatusOK, toAccountResponse(acct))
}
