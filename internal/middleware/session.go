package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
)

// CheckAdminSession rejects tokens whose JTI is no longer registered in
// Redis, i.e. tokens that were logged out.
func CheckAdminSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateAdminSession(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, service.ErrSessionInvalidated) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}
