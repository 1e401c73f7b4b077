package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/survey-backend/internal/metrics"
)

// Metrics records request count and latency per route template.
// Unmatched routes are grouped under "unmatched" to bound label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
