package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/event"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
)

// Builder errors.
var (
	ErrIncompleteQuestion = errors.New("multiple-choice question needs two options and a correct one")
	ErrInvalidLevel       = errors.New("unknown level")
	ErrDuplicateID        = errors.New("question listed twice")
)

// LevelGroup is the builder view of one level.
type LevelGroup struct {
	Level     string           `json:"level"`
	Questions []model.Question `json:"questions"`
}

// QuestionService handles survey builder operations.
type QuestionService struct {
	store     repository.QuestionStore
	analytics *AnalyticsService
	events    event.Publisher
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store repository.QuestionStore, analytics *AnalyticsService, events event.Publisher, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store:     store,
		analytics: analytics,
		events:    events,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// List retrieves questions matching the filter in survey order.
func (s *QuestionService) List(ctx context.Context, filter repository.QuestionFilter) ([]model.Question, error) {
	return s.store.List(ctx, filter)
}

// ListGrouped returns every question grouped by level. Known levels are
// always present, in survey order; unknown levels follow as found.
func (s *QuestionService) ListGrouped(ctx context.Context) ([]LevelGroup, error) {
	questions, err := s.store.List(ctx, repository.QuestionFilter{})
	if err != nil {
		return nil, err
	}
	return groupByLevel(questions), nil
}

// GetByID retrieves one question.
func (s *QuestionService) GetByID(ctx context.Context, id string) (*model.Question, error) {
	return s.store.GetByID(ctx, id)
}

// CreateQuestions validates and stores a batch of authored questions.
func (s *QuestionService) CreateQuestions(ctx context.Context, reqs []model.CreateQuestionRequest) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(reqs))
	for i, req := range reqs {
		q, err := buildQuestion(req)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, q)
	}

	created, err := s.store.CreateMany(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("create questions: %w", err)
	}

	s.afterWrite(ctx, event.TypeQuestionsCreated, idsOf(created))
	s.log.Info().Int("count", len(created)).Msg("Questions created")
	return created, nil
}

// UpdateQuestions validates and applies a batch of edits.
func (s *QuestionService) UpdateQuestions(ctx context.Context, reqs []model.UpdateQuestionRequest) ([]model.Question, error) {
	seen := make(map[string]bool, len(reqs))
	edits := make([]model.Question, 0, len(reqs))
	for i, req := range reqs {
		if seen[req.ID] {
			return nil, fmt.Errorf("question %d: %w", i, ErrDuplicateID)
		}
		seen[req.ID] = true

		q, err := buildQuestion(req.CreateQuestionRequest)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		q.ID = req.ID
		edits = append(edits, q)
	}

	updated, err := s.store.UpdateMany(ctx, edits)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, event.TypeQuestionsUpdated, idsOf(updated))
	s.log.Info().Int("count", len(updated)).Msg("Questions updated")
	return updated, nil
}

// DeleteQuestions removes questions by ID and reports how many existed.
func (s *QuestionService) DeleteQuestions(ctx context.Context, ids []string) (int64, error) {
	deleted, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}

	s.afterWrite(ctx, event.TypeQuestionsDeleted, ids)
	s.log.Info().Int64("count", deleted).Msg("Questions deleted")
	return deleted, nil
}

// DeleteLevel removes every question of a level.
func (s *QuestionService) DeleteLevel(ctx context.Context, level string) (int64, error) {
	if model.LevelRank(level) == len(model.Levels) {
		return 0, ErrInvalidLevel
	}

	deleted, err := s.store.DeleteByLevel(ctx, level)
	if err != nil {
		return 0, fmt.Errorf("delete level: %w", err)
	}

	s.afterWrite(ctx, event.TypeQuestionsDeleted, map[string]interface{}{"level": level, "count": deleted})
	s.log.Info().Str("level", level).Int64("count", deleted).Msg("Level cleared")
	return deleted, nil
}

// Reorder rewrites the order of a level's questions to match ids.
func (s *QuestionService) Reorder(ctx context.Context, level string, ids []string) error {
	if model.LevelRank(level) == len(model.Levels) {
		return ErrInvalidLevel
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return ErrDuplicateID
		}
		seen[id] = true
	}

	if err := s.store.Reorder(ctx, level, ids); err != nil {
		return err
	}

	s.afterWrite(ctx, event.TypeQuestionsOrdered, map[string]interface{}{"level": level, "ids": ids})
	return nil
}

func (s *QuestionService) afterWrite(ctx context.Context, eventType string, payload interface{}) {
	s.analytics.InvalidateSnapshots(ctx)
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("Publish event failed")
	}
}

// buildQuestion converts an authored question and checks it is complete.
// Blank options are dropped first.
func buildQuestion(req model.CreateQuestionRequest) (model.Question, error) {
	q := req.ToQuestion()

	kept := q.Answers[:0]
	for _, a := range q.Answers {
		if strings.TrimSpace(a.Text) != "" {
			kept = append(kept, a)
		}
	}
	q.Answers = kept

	if q.Type == model.QuestionTypeMultipleChoice {
		correct := 0
		for _, a := range q.Answers {
			if a.IsCorrect != nil && *a.IsCorrect {
				correct++
			}
		}
		if len(q.Answers) < 2 || correct == 0 {
			return model.Question{}, ErrIncompleteQuestion
		}
	}
	return q, nil
}

func groupByLevel(questions []model.Question) []LevelGroup {
	groups := make([]LevelGroup, 0, len(model.Levels))
	index := make(map[string]int, len(model.Levels))
	for _, level := range model.Levels {
		index[level] = len(groups)
		groups = append(groups, LevelGroup{Level: level, Questions: []model.Question{}})
	}

	for _, q := range questions {
		i, ok := index[q.Level]
		if !ok {
			i = len(groups)
			index[q.Level] = i
			groups = append(groups, LevelGroup{Level: q.Level, Questions: []model.Question{}})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	return groups
}

func idsOf(questions []model.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
