package repository

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/survey-backend/internal/model"
)

// MemoryQuestionRepository keeps questions and responses in process memory.
// It backs STORE_DRIVER=memory for local runs and tests; nothing survives a restart.
type MemoryQuestionRepository struct {
	mu        sync.RWMutex
	questions []model.Question
	responses []model.Response
}

// NewMemoryQuestionRepository creates a repository holding the given questions as-is.
func NewMemoryQuestionRepository(seed ...model.Question) *MemoryQuestionRepository {
	r := &MemoryQuestionRepository{}
	for _, q := range seed {
		r.questions = append(r.questions, cloneQuestion(q))
	}
	return r
}

var _ QuestionStore = (*MemoryQuestionRepository)(nil)

// List retrieves questions matching the filter.
func (r *MemoryQuestionRepository) List(_ context.Context, filter QuestionFilter) ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Question{}
	for _, q := range r.questions {
		if filter.Level != "" && q.Level != filter.Level {
			continue
		}
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	sortQuestions(out)
	return out, nil
}

// GetByID retrieves a question by ID.
func (r *MemoryQuestionRepository) GetByID(_ context.Context, id string) (*model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	q := cloneQuestion(r.questions[i])
	return &q, nil
}

// CreateMany stores a batch of new questions.
func (r *MemoryQuestionRepository) CreateMany(_ context.Context, questions []model.Question) ([]model.Question, error) {
	created := prepareNew(questions, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range created {
		r.questions = append(r.questions, cloneQuestion(q))
	}
	return created, nil
}

// UpdateMany applies edits; nothing changes unless every ID exists.
func (r *MemoryQuestionRepository) UpdateMany(_ context.Context, edits []model.Question) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := make([]model.Question, 0, len(edits))
	for _, edit := range edits {
		i := r.indexOf(edit.ID)
		if i < 0 {
			return nil, ErrNotFound
		}
		updated = append(updated, r.questions[i].WithEdits(edit))
	}
	for _, q := range updated {
		r.questions[r.indexOf(q.ID)] = cloneQuestion(q)
	}
	return updated, nil
}

// DeleteMany removes questions by ID together with their response records.
func (r *MemoryQuestionRepository) DeleteMany(_ context.Context, ids []string) (int64, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(func(q model.Question) bool { return drop[q.ID] }), nil
}

// DeleteByLevel removes every question of a level.
func (r *MemoryQuestionRepository) DeleteByLevel(_ context.Context, level string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(func(q model.Question) bool { return q.Level == level }), nil
}

// Reorder rewrites order_num for the listed questions of a level.
func (r *MemoryQuestionRepository) Reorder(_ context.Context, level string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	positions := make([]int, len(ids))
	for n, id := range ids {
		i := r.indexOf(id)
		if i < 0 || r.questions[i].Level != level {
			return ErrNotFound
		}
		positions[n] = i
	}
	for n, i := range positions {
		r.questions[i].OrderNum = n
	}
	return nil
}

// RecordResponses applies a batch atomically.
func (r *MemoryQuestionRepository) RecordResponses(_ context.Context, responses []model.Response) error {
	records := prepareResponses(responses, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()

	touched, err := applyAll(records, func(id string) (*model.Question, error) {
		i := r.indexOf(id)
		if i < 0 {
			return nil, ErrNotFound
		}
		q := cloneQuestion(r.questions[i])
		return &q, nil
	})
	if err != nil {
		return err
	}

	for _, q := range touched {
		r.questions[r.indexOf(q.ID)] = *q
	}
	r.responses = append(r.responses, records...)
	return nil
}

// ListResponses retrieves every response record in submission order.
func (r *MemoryQuestionRepository) ListResponses(_ context.Context) ([]model.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Response{}, r.responses...), nil
}

// Snapshot reads questions and optionally responses under one lock.
func (r *MemoryQuestionRepository) Snapshot(_ context.Context, withResponses bool) ([]model.Question, []model.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	questions := make([]model.Question, len(r.questions))
	for i, q := range r.questions {
		questions[i] = cloneQuestion(q)
	}
	sortQuestions(questions)

	var responses []model.Response
	if withResponses {
		responses = append([]model.Response{}, r.responses...)
	}
	return questions, responses, nil
}

func (r *MemoryQuestionRepository) indexOf(id string) int {
	for i, q := range r.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// remove drops matching questions and their responses, returning how many
// questions went. Callers hold the write lock.
func (r *MemoryQuestionRepository) remove(match func(model.Question) bool) int64 {
	gone := make(map[string]bool)
	kept := r.questions[:0]
	for _, q := range r.questions {
		if match(q) {
			gone[q.ID] = true
			continue
		}
		kept = append(kept, q)
	}
	r.questions = kept

	if len(gone) > 0 {
		responses := r.responses[:0]
		for _, rec := range r.responses {
			if !gone[rec.QuestionID] {
				responses = append(responses, rec)
			}
		}
		r.responses = responses
	}
	return int64(len(gone))
}

// cloneQuestion deep-copies the answers and counters so callers never share
// memory with the stored document.
func cloneQuestion(q model.Question) model.Question {
	out := q
	if q.Answers != nil {
		out.Answers = make([]model.AnswerOption, len(q.Answers))
		for i, a := range q.Answers {
			out.Answers[i] = model.AnswerOption{
				Text:          a.Text,
				IsCorrect:     copyBool(a.IsCorrect),
				ResponseCount: copyInt(a.ResponseCount),
			}
		}
	}
	out.TimesAnswered = copyInt(q.TimesAnswered)
	out.TimesSkipped = copyInt(q.TimesSkipped)
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
