package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/survey-backend/internal/model"
)

// ErrNotFound is returned when a referenced question does not exist.
var ErrNotFound = errors.New("question not found")

// QuestionFilter narrows List. Empty fields match everything.
type QuestionFilter struct {
	Level    string
	Category string
}

// QuestionStore is the question/answer document store. Questions embed their
// answer entries; flattened response records are kept alongside.
type QuestionStore interface {
	// List returns questions ordered by level, then order_num, then creation time.
	List(ctx context.Context, filter QuestionFilter) ([]model.Question, error)
	GetByID(ctx context.Context, id string) (*model.Question, error)
	// CreateMany assigns IDs and creation times and returns the stored documents.
	CreateMany(ctx context.Context, questions []model.Question) ([]model.Question, error)
	// UpdateMany applies authored edits; IDs and counters are never overwritten.
	UpdateMany(ctx context.Context, questions []model.Question) ([]model.Question, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	DeleteByLevel(ctx context.Context, level string) (int64, error)
	// Reorder rewrites order_num of the given level's questions to match ids.
	Reorder(ctx context.Context, level string, ids []string) error
	// RecordResponses stores flattened records and folds them into the
	// embedded stats of their questions.
	RecordResponses(ctx context.Context, responses []model.Response) error
	ListResponses(ctx context.Context) ([]model.Response, error)
	// Snapshot reads all questions, and the response records when
	// withResponses is set, as one consistent view.
	Snapshot(ctx context.Context, withResponses bool) ([]model.Question, []model.Response, error)
}

// sortQuestions applies the store ordering in place.
func sortQuestions(questions []model.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if ra, rb := model.LevelRank(a.Level), model.LevelRank(b.Level); ra != rb {
			return ra < rb
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.OrderNum != b.OrderNum {
			return a.OrderNum < b.OrderNum
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// prepareNew stamps fresh documents with an ID and creation time.
func prepareNew(questions []model.Question, now time.Time) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		q.ID = uuid.NewString()
		q.CreatedAt = now
		if q.Answers == nil {
			q.Answers = []model.AnswerOption{}
		}
		out[i] = q
	}
	return out
}

// prepareResponses stamps response records with an ID and creation time.
func prepareResponses(responses []model.Response, now time.Time) []model.Response {
	out := make([]model.Response, len(responses))
	for i, r := range responses {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		out[i] = r
	}
	return out
}

// applyAll folds responses into their questions, loading each question once
// through load. Nothing is returned for writing unless every response applies.
func applyAll(responses []model.Response, load func(id string) (*model.Question, error)) ([]*model.Question, error) {
	touched := make(map[string]*model.Question)
	order := make([]*model.Question, 0)
	for _, r := range responses {
		q, ok := touched[r.QuestionID]
		if !ok {
			var err error
			q, err = load(r.QuestionID)
			if err != nil {
				return nil, err
			}
			touched[r.QuestionID] = q
			order = append(order, q)
		}
		if err := q.ApplyResponse(r.Text); err != nil {
			return nil, err
		}
	}
	return order, nil
}
