package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// tokenSource pulls a raw token out of a request, returning "" when absent.
type tokenSource func(c *gin.Context) string

// RequireAdminJWT validates an admin JWT from the Authorization header.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireAdmin(authService, bearerToken)
}

// RequireAdminWSAuth validates an admin JWT from the query param ?token=...
// Browsers cannot set headers on WebSocket upgrades.
func RequireAdminWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireAdmin(authService, queryToken)
}

func requireAdmin(authService *service.AuthService, source tokenSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := source(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.TokenType != service.TokenTypeAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	claims, _ := c.Value(ContextKeyClaims).(*service.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func queryToken(c *gin.Context) string {
	return c.Query("token")
}
