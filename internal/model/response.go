package model

import (
	"strings"
	"time"
)

// IsSkipped reports whether a submitted answer text counts as a skip.
// Every call site that classifies responses goes through this predicate.
func IsSkipped(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Response is one flattened response record tied to a question.
type Response struct {
	ID         string    `json:"id" bson:"_id"`
	QuestionID string    `json:"question_id" bson:"question_id"`
	Text       string    `json:"text" bson:"text"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// AnswerSubmission is one (question, answer) pair of a submitted batch.
// A blank Answer is the canonical skip encoding.
type AnswerSubmission struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer" binding:"max=2000"`
}

// SubmitAnswersRequest is the payload for submitting a finished survey.
type SubmitAnswersRequest struct {
	Answers []AnswerSubmission `json:"answers" binding:"required,min=1,dive"`
}
