package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Page size bounds for list endpoints.
const (
	DefaultPerPage = 50
	MaxPerPage     = 500
)

// Response is the standardized API response envelope.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Paginate clamps page and perPage to valid values and computes page counts
// for total items.
func Paginate(page, perPage, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return &Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}

// Bounds returns the [start, end) slice indices of the page. Pages past the
// end are empty.
func (p *Pagination) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > p.TotalItems {
		start = p.TotalItems
	}
	end = start + p.PerPage
	if end > p.TotalItems {
		end = p.TotalItems
	}
	return start, end
}

// Metadata includes request tracing and timing.
type Metadata struct {
	RequestID  string `json:"request_id"`
	Timestamp  string `json:"timestamp"`
	DurationMs int64  `json:"duration_ms"`
}

// ────────────────────────────────────────────────────────────────────────────
// Helper builders
// ────────────────────────────────────────────────────────────────────────────

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Data:     data,
		Metadata: buildMetadata(c),
	})
}

// SuccessWithPagination sends a successful response with pagination metadata.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	c.JSON(statusCode, Response{
		Data:       data,
		Pagination: pagination,
		Metadata:   buildMetadata(c),
	})
}

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, failure(c, code, nil))
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, failure(c, code, fields))
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, failure(c, code, nil))
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func failure(c *gin.Context, code ErrCode, fields map[string]string) Response {
	return Response{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: buildMetadata(c),
	}
}

func buildMetadata(c *gin.Context) Metadata {
	now := time.Now().UTC()
	meta := Metadata{
		RequestID: RequestID(c),
		Timestamp: now.Format(time.RFC3339),
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}
	if started, ok := c.Get(ContextKeyStartedAt); ok {
		if t, ok := started.(time.Time); ok {
			meta.DurationMs = now.Sub(t).Milliseconds()
		}
	}
	return meta
}
