package model

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownOption is returned when a multiple-choice response matches none of the options.
var ErrUnknownOption = errors.New("answer does not match any option")

// QuestionType is the answer format of a question.
type QuestionType string

const (
	QuestionTypeFreeText       QuestionType = "free-text"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
)

// Difficulty levels, in survey order.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// Levels lists the difficulty tiers in the order participants take them.
var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// KnownCategories are reported by analytics even when nobody answered them.
var KnownCategories = []string{"Vocabulary", "Grammar", "Culture"}

// LevelRank orders levels for listing. Unknown levels sort after the known ones.
func LevelRank(level string) int {
	for i, l := range Levels {
		if l == level {
			return i
		}
	}
	return len(Levels)
}

// AnswerOption is an answer entry embedded in a question document. For
// multiple-choice questions it is an option; for free-text questions it is an
// aggregated distinct response.
type AnswerOption struct {
	Text          string `json:"text" bson:"text"`
	IsCorrect     *bool  `json:"is_correct,omitempty" bson:"is_correct,omitempty"`
	ResponseCount *int   `json:"response_count,omitempty" bson:"response_count,omitempty"`
}

// Question is a survey question document with its embedded answer stats.
type Question struct {
	ID            string         `json:"id" bson:"_id"`
	Text          string         `json:"question" bson:"question"`
	Type          QuestionType   `json:"type" bson:"type"`
	Category      string         `json:"category" bson:"category"`
	Level         string         `json:"level" bson:"level"`
	Answers       []AnswerOption `json:"answers" bson:"answers"`
	TimesAnswered *int           `json:"times_answered,omitempty" bson:"times_answered,omitempty"`
	TimesSkipped  *int           `json:"times_skipped,omitempty" bson:"times_skipped,omitempty"`
	OrderNum      int            `json:"order_num" bson:"order_num"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	// Version is bumped by every document write in stores that update
	// optimistically. Zero means never written since creation.
	Version       int            `json:"-" bson:"version,omitempty"`
}

// ApplyResponse folds one submitted response into the embedded stats.
// A skip bumps TimesSkipped. An answer bumps TimesAnswered and the response
// count of the matching entry; free-text answers without a matching entry
// become a new entry. The question is left untouched on error.
func (q *Question) ApplyResponse(text string) error {
	if IsSkipped(text) {
		q.TimesSkipped = increment(q.TimesSkipped)
		return nil
	}

	trimmed := strings.TrimSpace(text)
	idx := q.findAnswer(trimmed)
	if idx < 0 {
		if q.Type == QuestionTypeMultipleChoice {
			return ErrUnknownOption
		}
		zero := 0
		q.Answers = append(q.Answers, AnswerOption{Text: trimmed, ResponseCount: &zero})
		idx = len(q.Answers) - 1
	}

	q.Answers[idx].ResponseCount = increment(q.Answers[idx].ResponseCount)
	q.TimesAnswered = increment(q.TimesAnswered)
	return nil
}

// Accepts reports whether ApplyResponse would take text without error.
func (q *Question) Accepts(text string) bool {
	if IsSkipped(text) || q.Type != QuestionTypeMultipleChoice {
		return true
	}
	return q.findAnswer(strings.TrimSpace(text)) >= 0
}

// ParticipantView strips correctness flags and counters so a question can be
// shown to someone taking the survey.
func (q Question) ParticipantView() Question {
	out := q
	out.TimesAnswered = nil
	out.TimesSkipped = nil
	out.Answers = nil
	if q.Type == QuestionTypeMultipleChoice {
		out.Answers = make([]AnswerOption, len(q.Answers))
		for i, a := range q.Answers {
			out.Answers[i] = AnswerOption{Text: a.Text}
		}
	}
	return out
}

func (q *Question) findAnswer(text string) int {
	for i, a := range q.Answers {
		if strings.EqualFold(strings.TrimSpace(a.Text), text) {
			return i
		}
	}
	return -1
}

func increment(p *int) *int {
	n := 1
	if p != nil {
		n = *p + 1
	}
	return &n
}

// AnswerOptionInput is an option as authored in the builder.
type AnswerOptionInput struct {
	Text      string `json:"text" binding:"max=500"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest is the payload for authoring one question.
type CreateQuestionRequest struct {
	Question string              `json:"question" binding:"required,min=1,max=2000"`
	Type     string              `json:"type" binding:"required,oneof=free-text multiple-choice"`
	Category string              `json:"category" binding:"required,max=100"`
	Level    string              `json:"level" binding:"required,level"`
	Answers  []AnswerOptionInput `json:"answers" binding:"omitempty,dive"`
	OrderNum int                 `json:"order_num" binding:"min=0"`
}

// CreateQuestionsRequest is the payload for a batch create.
type CreateQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateQuestionRequest is the payload for editing one question.
type UpdateQuestionRequest struct {
	ID string `json:"id" binding:"required,uuid"`
	CreateQuestionRequest
}

// UpdateQuestionsRequest is the payload for a batch update.
type UpdateQuestionsRequest struct {
	Questions []UpdateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// DeleteQuestionsRequest is the payload for a batch delete.
type DeleteQuestionsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}

// ReorderQuestionsRequest lists every question ID of a level in its new order.
type ReorderQuestionsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}

// ToQuestion converts an authored question into a store document.
func (r CreateQuestionRequest) ToQuestion() Question {
	q := Question{
		Text:     strings.TrimSpace(r.Question),
		Type:     QuestionType(r.Type),
		Category: strings.TrimSpace(r.Category),
		Level:    r.Level,
		OrderNum: r.OrderNum,
		Answers:  make([]AnswerOption, 0, len(r.Answers)),
	}
	for _, a := range r.Answers {
		correct := a.IsCorrect
		zero := 0
		q.Answers = append(q.Answers, AnswerOption{
			Text:          strings.TrimSpace(a.Text),
			IsCorrect:     &correct,
			ResponseCount: &zero,
		})
	}
	return q
}

// WithEdits returns q with the authored fields of edit applied. The ID,
// creation time and counters are kept, and options whose text survives the
// edit keep their response counts.
func (q Question) WithEdits(edit Question) Question {
	out := q
	out.Text = edit.Text
	out.Type = edit.Type
	out.Category = edit.Category
	out.Level = edit.Level
	out.OrderNum = edit.OrderNum

	out.Answers = make([]AnswerOption, 0, len(edit.Answers))
	for _, a := range edit.Answers {
		if i := q.findAnswer(strings.TrimSpace(a.Text)); i >= 0 && q.Answers[i].ResponseCount != nil {
			n := *q.Answers[i].ResponseCount
			a.ResponseCount = &n
		}
		out.Answers = append(out.Answers, a)
	}
	return out
}
