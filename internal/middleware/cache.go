package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl lets clients cache a public response for maxAgeSeconds.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}

// NoStore marks responses that must never be cached, such as admin analytics.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
