package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/event"
	"github.com/stemsi/survey-backend/internal/metrics"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
)

// Survey errors.
var (
	ErrEmptySubmission = errors.New("submission has no answers")
	ErrUnknownQuestion = errors.New("submission references an unknown question")
	ErrNoQuestions     = errors.New("level has no questions")
	ErrSessionNotFound = errors.New("survey session not found")

	// ErrSessionsDisabled is returned by session operations when Redis is not configured.
	ErrSessionsDisabled = errors.New("survey sessions require redis")
)

// LevelSummary describes one level on the survey landing page.
type LevelSummary struct {
	Level         string `json:"level"`
	QuestionCount int    `json:"question_count"`
}

// SubmissionResult summarises a recorded batch.
type SubmissionResult struct {
	Answered int `json:"answered"`
	Skipped  int `json:"skipped"`
}

// SessionQuestion is one entry of a session's question list.
type SessionQuestion struct {
	QuestionID string              `json:"question_id"`
	State      model.QuestionState `json:"state"`
}

// SessionView is what a participant sees of their session.
type SessionView struct {
	ID        string            `json:"id"`
	Level     string            `json:"level"`
	Position  int               `json:"position"`
	Total     int               `json:"total"`
	Done      bool              `json:"done"`
	Current   *model.Question   `json:"current"`
	Answer    string            `json:"answer,omitempty"`
	Answered  int               `json:"answered"`
	Skipped   int               `json:"skipped"`
	Pending   int               `json:"pending"`
	Questions []SessionQuestion `json:"questions"`
	StartedAt time.Time         `json:"started_at"`
}

// SurveyService serves questions to participants and records their answers.
type SurveyService struct {
	store      repository.QuestionStore
	analytics  *AnalyticsService
	rdb        *redis.Client
	events     event.Publisher
	sessionTTL time.Duration
	log        zerolog.Logger
}

// NewSurveyService creates a new SurveyService.
func NewSurveyService(
	store repository.QuestionStore,
	analytics *AnalyticsService,
	rdb *redis.Client,
	events event.Publisher,
	sessionTTL time.Duration,
	log zerolog.Logger,
) *SurveyService {
	return &SurveyService{
		store:      store,
		analytics:  analytics,
		rdb:        rdb,
		events:     events,
		sessionTTL: sessionTTL,
		log:        log.With().Str("component", "survey_service").Logger(),
	}
}

// Levels lists the known levels with their question counts.
func (s *SurveyService) Levels(ctx context.Context) ([]LevelSummary, error) {
	questions, err := s.store.List(ctx, repository.QuestionFilter{})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(model.Levels))
	for _, q := range questions {
		counts[q.Level]++
	}

	summaries := make([]LevelSummary, 0, len(model.Levels))
	for _, level := range model.Levels {
		summaries = append(summaries, LevelSummary{Level: level, QuestionCount: counts[level]})
	}
	return summaries, nil
}

// FetchQuestionsForLevel returns a level's questions in survey order, with
// correctness flags and counters stripped.
func (s *SurveyService) FetchQuestionsForLevel(ctx context.Context, level string) ([]model.Question, error) {
	if model.LevelRank(level) == len(model.Levels) {
		return nil, ErrInvalidLevel
	}

	questions, err := s.store.List(ctx, repository.QuestionFilter{Level: level})
	if err != nil {
		return nil, err
	}

	views := make([]model.Question, len(questions))
	for i, q := range questions {
		views[i] = q.ParticipantView()
	}
	return views, nil
}

// SubmitAnswers records an ordered batch of answers. Blank answers are skips.
// The batch is all-or-nothing.
func (s *SurveyService) SubmitAnswers(ctx context.Context, answers []model.AnswerSubmission) (*SubmissionResult, error) {
	if len(answers) == 0 {
		metrics.Submissions.WithLabelValues("failure").Inc()
		return nil, ErrEmptySubmission
	}

	result := &SubmissionResult{}
	responses := make([]model.Response, 0, len(answers))
	for _, a := range answers {
		responses = append(responses, model.Response{QuestionID: a.QuestionID, Text: a.Answer})
		if model.IsSkipped(a.Answer) {
			result.Skipped++
		} else {
			result.Answered++
		}
	}

	if err := s.store.RecordResponses(ctx, responses); err != nil {
		metrics.Submissions.WithLabelValues("failure").Inc()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownQuestion
		}
		if errors.Is(err, model.ErrUnknownOption) {
			return nil, err
		}
		return nil, fmt.Errorf("record responses: %w", err)
	}

	metrics.Submissions.WithLabelValues("success").Inc()
	metrics.Responses.WithLabelValues("answered").Add(float64(result.Answered))
	metrics.Responses.WithLabelValues("skipped").Add(float64(result.Skipped))

	s.analytics.InvalidateSnapshots(ctx)
	s.notify(ctx, result)
	if err := s.events.Publish(ctx, event.TypeSurveySubmitted, result); err != nil {
		s.log.Warn().Err(err).Msg("Publish submission event failed")
	}

	s.log.Info().
		Int("answered", result.Answered).
		Int("skipped", result.Skipped).
		Msg("Answers submitted")
	return result, nil
}

// notify tells live analytics subscribers that new responses exist.
func (s *SurveyService) notify(ctx context.Context, result *SubmissionResult) {
	if s.rdb == nil {
		return
	}
	payload, _ := json.Marshal(result)
	if err := s.rdb.Publish(ctx, config.CacheKey.ResponsesChannel(), payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Publish submission notification failed")
	}
}

// ─── Server-held sessions ────────────────────────────────────────────

// StartSession opens a one-question-at-a-time session over a level.
func (s *SurveyService) StartSession(ctx context.Context, level string) (*SessionView, error) {
	if model.LevelRank(level) == len(model.Levels) {
		return nil, ErrInvalidLevel
	}

	questions, err := s.store.List(ctx, repository.QuestionFilter{Level: level})
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	session := model.NewSurveySession(uuid.New().String(), level, idsOf(questions), time.Now().UTC())
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	s.log.Debug().Str("session_id", session.ID).Str("level", level).Msg("Survey session started")
	return s.view(ctx, session)
}

// GetSession returns the current state of a session.
func (s *SurveyService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session)
}

// Answer records text for the current question and advances. Answers a
// multiple-choice question cannot take are rejected here rather than at Finish.
func (s *SurveyService) Answer(ctx context.Context, id, text string) (*SessionView, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	qid, ok := session.Current()
	if !ok {
		return nil, model.ErrSessionComplete
	}
	q, err := s.store.GetByID(ctx, qid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownQuestion
		}
		return nil, err
	}
	if !q.Accepts(text) {
		return nil, model.ErrUnknownOption
	}

	if err := session.Answer(text); err != nil {
		return nil, err
	}
	return s.update(ctx, session)
}

// Skip marks the current question as skipped and advances.
func (s *SurveyService) Skip(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Skip(); err != nil {
		return nil, err
	}
	return s.update(ctx, session)
}

// Back returns to the previous question.
func (s *SurveyService) Back(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Back(); err != nil {
		return nil, err
	}
	return s.update(ctx, session)
}

// Finish submits the session as one batch, with unvisited questions as
// skips, and discards it. The session is taken out of Redis before the
// batch is recorded, so an overlapping Finish gets ErrSessionNotFound; a
// failed submission puts it back. Questions deleted since the session
// started are left out of the batch.
func (s *SurveyService) Finish(ctx context.Context, id string) (*SubmissionResult, error) {
	session, err := s.readSession(ctx, id, true)
	if err != nil {
		return nil, err
	}

	batch, err := s.existingEntries(ctx, session.Batch())
	if err != nil {
		s.restoreSession(ctx, session)
		return nil, err
	}
	if len(batch) == 0 {
		s.log.Warn().Str("session_id", id).Msg("Every question of the session was deleted")
		return &SubmissionResult{}, nil
	}

	result, err := s.SubmitAnswers(ctx, batch)
	if err != nil {
		s.restoreSession(ctx, session)
		return nil, err
	}
	return result, nil
}

// existingEntries drops submissions for questions that no longer exist.
func (s *SurveyService) existingEntries(ctx context.Context, batch []model.AnswerSubmission) ([]model.AnswerSubmission, error) {
	kept := make([]model.AnswerSubmission, 0, len(batch))
	for _, entry := range batch {
		if _, err := s.store.GetByID(ctx, entry.QuestionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Debug().Str("question_id", entry.QuestionID).Msg("Dropping answer to deleted question")
				continue
			}
			return nil, err
		}
		kept = append(kept, entry)
	}
	return kept, nil
}

func (s *SurveyService) restoreSession(ctx context.Context, session *model.SurveySession) {
	if err := s.saveSession(ctx, session); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("Restore session after failed finish failed")
	}
}

func (s *SurveyService) update(ctx context.Context, session *model.SurveySession) (*SessionView, error) {
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return s.view(ctx, session)
}

func (s *SurveyService) view(ctx context.Context, session *model.SurveySession) (*SessionView, error) {
	answered, skipped, pending := session.Progress()
	v := &SessionView{
		ID:        session.ID,
		Level:     session.Level,
		Position:  session.Cursor,
		Total:     len(session.QuestionIDs),
		Done:      session.Done(),
		Answered:  answered,
		Skipped:   skipped,
		Pending:   pending,
		Questions: make([]SessionQuestion, len(session.QuestionIDs)),
		StartedAt: session.StartedAt,
	}
	for i, qid := range session.QuestionIDs {
		v.Questions[i] = SessionQuestion{QuestionID: qid, State: session.State(qid)}
	}

	if qid, ok := session.Current(); ok {
		q, err := s.store.GetByID(ctx, qid)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Deleted mid-session; the participant can still skip or finish.
		case err != nil:
			return nil, err
		default:
			current := q.ParticipantView()
			v.Current = &current
		}
		v.Answer = session.Answers[qid]
	}
	return v, nil
}

func (s *SurveyService) loadSession(ctx context.Context, id string) (*model.SurveySession, error) {
	return s.readSession(ctx, id, false)
}

// readSession fetches a session. With claim set the key is removed in the
// same command, so only one caller can claim a session.
func (s *SurveyService) readSession(ctx context.Context, id string, claim bool) (*model.SurveySession, error) {
	if s.rdb == nil {
		return nil, ErrSessionsDisabled
	}

	key := config.CacheKey.SurveySessionKey(id)
	var cmd *redis.StringCmd
	if claim {
		cmd = s.rdb.GetDel(ctx, key)
	} else {
		cmd = s.rdb.Get(ctx, key)
	}
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session model.SurveySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SurveyService) saveSession(ctx context.Context, session *model.SurveySession) error {
	if s.rdb == nil {
		return ErrSessionsDisabled
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.SurveySessionKey(session.ID), data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
