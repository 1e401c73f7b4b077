package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/survey-backend/internal/analytics"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
)

// AnalyticsHandler serves survey statistics to admins.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetStatistics godoc
// GET /api/v1/admin/analytics?source=embedded|flattened
// Computes statistics over a fresh (or briefly cached) store snapshot.
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	source, err := analytics.ParseSource(c.Query("source"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSource)
		return
	}

	stats, err := h.analyticsService.Statistics(c.Request.Context(), source)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// ListResponses godoc
// GET /api/v1/admin/responses?page=1&per_page=50
// Lists flattened response records, oldest first.
func (h *AnalyticsHandler) ListResponses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	responses, pagination, err := h.analyticsService.ListResponses(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"responses": responses}, pagination)
}
