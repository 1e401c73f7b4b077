package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
	"github.com/stemsi/survey-backend/internal/validator"
)

// QuestionHandler handles survey builder endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/admin/questions?level=&category=&group=level
// Lists questions in survey order, optionally grouped by level.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	if c.Query("group") == "level" {
		groups, err := h.questionService.ListGrouped(c.Request.Context())
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"levels": groups})
		return
	}

	questions, err := h.questionService.List(c.Request.Context(), repository.QuestionFilter{
		Level:    c.Query("level"),
		Category: c.Query("category"),
	})
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetQuestion godoc
// GET /api/v1/admin/questions/:id
// Returns one question with its answer stats.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questionService.GetByID(c.Request.Context(), id.String())
	if err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestions godoc
// POST /api/v1/admin/questions
// Creates a batch of questions.
func (h *QuestionHandler) CreateQuestions(c *gin.Context) {
	var req model.CreateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	created, err := h.questionService.CreateQuestions(c.Request.Context(), req.Questions)
	if err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"questions": created})
}

// UpdateQuestions godoc
// PUT /api/v1/admin/questions
// Applies a batch of edits. IDs are immutable.
func (h *QuestionHandler) UpdateQuestions(c *gin.Context) {
	var req model.UpdateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	updated, err := h.questionService.UpdateQuestions(c.Request.Context(), req.Questions)
	if err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": updated})
}

// DeleteQuestions godoc
// DELETE /api/v1/admin/questions
// Deletes questions by ID.
func (h *QuestionHandler) DeleteQuestions(c *gin.Context) {
	var req model.DeleteQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	deleted, err := h.questionService.DeleteQuestions(c.Request.Context(), req.IDs)
	if err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// DeleteLevel godoc
// DELETE /api/v1/admin/levels/:level/questions
// Deletes every question of a level.
func (h *QuestionHandler) DeleteLevel(c *gin.Context) {
	deleted, err := h.questionService.DeleteLevel(c.Request.Context(), c.Param("level"))
	if err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// ReorderLevel godoc
// PUT /api/v1/admin/levels/:level/order
// Rewrites the order of a level's questions.
func (h *QuestionHandler) ReorderLevel(c *gin.Context) {
	var req model.ReorderQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.Reorder(c.Request.Context(), c.Param("level"), req.IDs); err != nil {
		writeBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ids": req.IDs})
}

func writeBuilderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrIncompleteQuestion):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrIncompleteQuestion,
			map[string]string{"detail": err.Error()})
	case errors.Is(err, service.ErrDuplicateID):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": err.Error()})
	case errors.Is(err, service.ErrInvalidLevel):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidLevel)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
