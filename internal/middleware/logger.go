package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/response"
)

// RequestLogger writes one structured log line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	httpLog := log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := httpLog.Info()
		switch {
		case status >= 500:
			evt = httpLog.Error()
		case status >= 400:
			evt = httpLog.Warn()
		}

		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("request_id", response.RequestID(c)).
			Msg("Request handled")
	}
}
