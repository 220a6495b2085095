package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vintique.shop/internal/store"
)

const (
	requestIDHeader = "X-Request-ID"
	userIDHeader    = "X-User-ID"

	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxIsAdmin   = "is_admin"
)

// requestID reuses an incoming X-Request-ID or mints a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// identify reads the acting user from X-User-ID. A missing header leaves the
// request anonymous; a malformed one is rejected.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(userIDHeader))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, http.StatusUnauthorized, "invalid_user_id")
			c.Abort()
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := callerID(c); !ok {
			writeError(c, http.StatusUnauthorized, "user_required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, err := s.isAdmin(c)
		if err != nil {
			s.fail(c, "admin_check_failed", err, nil)
			c.Abort()
			return
		}
		if !isAdmin {
			writeError(c, http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// isAdmin looks the caller up once per request.
func (s *Server) isAdmin(c *gin.Context) (bool, error) {
	if v, ok := c.Get(ctxIsAdmin); ok {
		return v.(bool), nil
	}
	id, ok := callerID(c)
	if !ok {
		return false, nil
	}
	u, err := s.store.GetUser(c.Request.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		c.Set(ctxIsAdmin, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.Set(ctxIsAdmin, u.IsAdmin)
	return u.IsAdmin, nil
}

func callerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// optionalCaller is nil for guests.
func optionalCaller(c *gin.Context) *int64 {
	if id, ok := callerID(c); ok {
		return &id
	}
	return nil
}
