package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/survey-backend/internal/middleware"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
	"github.com/stemsi/survey-backend/internal/validator"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Checks the admin password and returns a JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, claims, err := h.authService.Login(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"session": claims.Session(),
	})
}

// AdminLogout godoc
// POST /api/v1/auth/admin/logout
// Revokes the current admin token.
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.ID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the session of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": claims.Session(),
	})
}
