package api

import (
	"github.com/gin-gonic/gin"

	"vintique.shop/internal/logging"
)

func (s *Server) logEvent(c *gin.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	if id, ok := c.Get(ctxRequestID); ok {
		fields["request_id"] = id
	}
	if id, ok := callerID(c); ok {
		if _, set := fields["user_id"]; !set {
			fields["user_id"] = id
		}
	}
	logging.Event(s.logger, event, fields)
}
