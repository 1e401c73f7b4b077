package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by RequestIDMiddleware.
const (
	ContextKeyRequestID = "request_id"
	ContextKeyStartedAt = "request_started_at"
)

const maxRequestIDLength = 64

// RequestIDMiddleware tags every request with an ID and its start time. A
// client-supplied X-Request-ID is kept when it is short and printable.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Set(ContextKeyStartedAt, time.Now().UTC())
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// RequestID returns the ID assigned to the current request, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < '!' || r > '~' {
			return false
		}
	}
	return true
}
