package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
	"github.com/stemsi/survey-backend/internal/validator"
)

// SurveyHandler handles the public survey-taking endpoints.
type SurveyHandler struct {
	surveyService *service.SurveyService
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(surveyService *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

// ListLevels godoc
// GET /api/v1/survey/levels
// Lists the levels with their question counts.
func (h *SurveyHandler) ListLevels(c *gin.Context) {
	levels, err := h.surveyService.Levels(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"levels": levels})
}

// GetQuestions godoc
// GET /api/v1/survey/questions?level=Beginner
// Returns a level's questions without correctness flags or counters.
func (h *SurveyHandler) GetQuestions(c *gin.Context) {
	questions, err := h.surveyService.FetchQuestionsForLevel(c.Request.Context(), c.Query("level"))
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SubmitAnswers godoc
// POST /api/v1/survey/answers
// Records an ordered batch of answers. A blank answer is a skip.
func (h *SurveyHandler) SubmitAnswers(c *gin.Context) {
	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.surveyService.SubmitAnswers(c.Request.Context(), req.Answers)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// StartSession godoc
// POST /api/v1/survey/sessions
// Opens a one-question-at-a-time session over a level.
func (h *SurveyHandler) StartSession(c *gin.Context) {
	var req model.StartSurveyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.surveyService.StartSession(c.Request.Context(), req.Level)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetSession godoc
// GET /api/v1/survey/sessions/:id
// Returns the session's position, current question and per-question state.
func (h *SurveyHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.surveyService.GetSession(c.Request.Context(), id)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// AnswerSession godoc
// POST /api/v1/survey/sessions/:id/answer
// Answers the current question and advances.
func (h *SurveyHandler) AnswerSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.SessionAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.surveyService.Answer(c.Request.Context(), id, req.Answer)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SkipSession godoc
// POST /api/v1/survey/sessions/:id/skip
// Skips the current question.
func (h *SurveyHandler) SkipSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.surveyService.Skip(c.Request.Context(), id)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// BackSession godoc
// POST /api/v1/survey/sessions/:id/back
// Returns to the previous question.
func (h *SurveyHandler) BackSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.surveyService.Back(c.Request.Context(), id)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// FinishSession godoc
// POST /api/v1/survey/sessions/:id/finish
// Submits the session. Questions never reached count as skips.
func (h *SurveyHandler) FinishSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.surveyService.Finish(c.Request.Context(), id)
	if err != nil {
		writeSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

func sessionID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id.String(), true
}

func writeSurveyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidLevel):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidLevel)
	case errors.Is(err, service.ErrEmptySubmission):
		response.Fail(c, http.StatusBadRequest, response.ErrEmptySubmission)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownQuestion)
	case errors.Is(err, model.ErrUnknownOption):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownOption)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSurveySessionGone)
	case errors.Is(err, model.ErrSessionComplete):
		response.Fail(c, http.StatusConflict, response.ErrSurveyComplete)
	case errors.Is(err, model.ErrSessionAtStart):
		response.Fail(c, http.StatusConflict, response.ErrSurveyAtStart)
	case errors.Is(err, service.ErrSessionsDisabled):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrSessionsUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
