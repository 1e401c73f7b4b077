package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
)

// newTestRedis starts an in-process Redis that lives as long as the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// countingStore counts snapshot reads and runs afterRead once, after the
// first read has returned its data.
type countingStore struct {
	*repository.MemoryQuestionRepository
	mu        sync.Mutex
	reads     int
	afterRead func()
}

func (s *countingStore) Snapshot(ctx context.Context, withResponses bool) ([]model.Question, []model.Response, error) {
	questions, responses, err := s.MemoryQuestionRepository.Snapshot(ctx, withResponses)

	s.mu.Lock()
	s.reads++
	hook := s.afterRead
	s.afterRead = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return questions, responses, err
}

func (s *countingStore) snapshotReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// recordingPublisher remembers published event types.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func mcRequest(level string, options ...model.AnswerOptionInput) model.CreateQuestionRequest {
	return model.CreateQuestionRequest{
		Question: "Pick one",
		Type:     string(model.QuestionTypeMultipleChoice),
		Category: "Grammar",
		Level:    level,
		Answers:  options,
	}
}

func freeRequest(level, text string) model.CreateQuestionRequest {
	return model.CreateQuestionRequest{
		Question: text,
		Type:     string(model.QuestionTypeFreeText),
		Category: "Culture",
		Level:    level,
	}
}
