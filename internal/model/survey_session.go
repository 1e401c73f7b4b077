package model

import (
	"errors"
	"time"
)

var (
	ErrSessionComplete = errors.New("every question has been visited")
	ErrSessionAtStart  = errors.New("already at the first question")
)

// SurveySession tracks one participant moving through a level one question
// at a time. Answers maps question ID to the given text; a blank text marks
// the question as skipped, absence marks it as not yet visited.
type SurveySession struct {
	ID          string            `json:"id"`
	Level       string            `json:"level"`
	QuestionIDs []string          `json:"question_ids"`
	Cursor      int               `json:"cursor"`
	Answers     map[string]string `json:"answers"`
	StartedAt   time.Time         `json:"started_at"`
}

// QuestionState is the per-question status inside a session.
type QuestionState string

const (
	QuestionStatePending  QuestionState = "pending"
	QuestionStateAnswered QuestionState = "answered"
	QuestionStateSkipped  QuestionState = "skipped"
)

// NewSurveySession starts a session positioned at the first question.
func NewSurveySession(id, level string, questionIDs []string, now time.Time) *SurveySession {
	ids := make([]string, len(questionIDs))
	copy(ids, questionIDs)
	return &SurveySession{
		ID:          id,
		Level:       level,
		QuestionIDs: ids,
		Answers:     make(map[string]string, len(ids)),
		StartedAt:   now,
	}
}

// Current returns the question ID under the cursor.
func (s *SurveySession) Current() (string, bool) {
	if s.Done() {
		return "", false
	}
	return s.QuestionIDs[s.Cursor], true
}

// Done reports whether the cursor has moved past the last question.
func (s *SurveySession) Done() bool {
	return s.Cursor >= len(s.QuestionIDs)
}

// Answer records text for the current question and advances.
func (s *SurveySession) Answer(text string) error {
	id, ok := s.Current()
	if !ok {
		return ErrSessionComplete
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[id] = text
	s.Cursor++
	return nil
}

// Skip records the current question as skipped and advances.
func (s *SurveySession) Skip() error {
	return s.Answer("")
}

// Back moves the cursor to the previous question, keeping its recorded answer.
func (s *SurveySession) Back() error {
	if s.Cursor == 0 {
		return ErrSessionAtStart
	}
	s.Cursor--
	return nil
}

// State returns the status of one question.
func (s *SurveySession) State(questionID string) QuestionState {
	text, ok := s.Answers[questionID]
	switch {
	case !ok:
		return QuestionStatePending
	case IsSkipped(text):
		return QuestionStateSkipped
	default:
		return QuestionStateAnswered
	}
}

// Progress counts answered, skipped and pending questions.
func (s *SurveySession) Progress() (answered, skipped, pending int) {
	for _, id := range s.QuestionIDs {
		switch s.State(id) {
		case QuestionStateAnswered:
			answered++
		case QuestionStateSkipped:
			skipped++
		default:
			pending++
		}
	}
	return answered, skipped, pending
}

// Batch converts the session into an ordered submission. Questions the
// participant never reached are submitted as skips.
func (s *SurveySession) Batch() []AnswerSubmission {
	batch := make([]AnswerSubmission, 0, len(s.QuestionIDs))
	for _, id := range s.QuestionIDs {
		batch = append(batch, AnswerSubmission{QuestionID: id, Answer: s.Answers[id]})
	}
	return batch
}

// StartSurveyRequest is the payload for starting a survey session.
type StartSurveyRequest struct {
	Level string `json:"level" binding:"required,level"`
}

// SessionAnswerRequest is the payload for answering the current question.
type SessionAnswerRequest struct {
	Answer string `json:"answer" binding:"max=2000"`
}
