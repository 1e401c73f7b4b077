package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortQuestions(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := []model.Question{
		{ID: "adv", Level: model.LevelAdvanced, OrderNum: 0, CreatedAt: base},
		{ID: "other", Level: "Expert", OrderNum: 0, CreatedAt: base},
		{ID: "beg-late", Level: model.LevelBeginner, OrderNum: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "beg-early", Level: model.LevelBeginner, OrderNum: 1, CreatedAt: base},
		{ID: "beg-first", Level: model.LevelBeginner, OrderNum: 0, CreatedAt: base.Add(time.Hour)},
		{ID: "int", Level: model.LevelIntermediate, OrderNum: 3, CreatedAt: base},
	}

	sortQuestions(questions)

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	assert.Equal(t, []string{"beg-first", "beg-early", "beg-late", "int", "adv", "other"}, ids)
}

func TestPrepareNew(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	in := []model.Question{{Text: "a"}, {Text: "b", Answers: []model.AnswerOption{{Text: "x"}}}}

	out := prepareNew(in, now)

	require.Len(t, out, 2)
	for _, q := range out {
		_, err := uuid.Parse(q.ID)
		assert.NoError(t, err)
		assert.Equal(t, now, q.CreatedAt)
		assert.NotNil(t, q.Answers)
	}
	assert.NotEqual(t, out[0].ID, out[1].ID)
	assert.Empty(t, in[0].ID, "input must not be mutated")
}

func TestPrepareResponses_KeepsExistingStamps(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)
	out := prepareResponses([]model.Response{
		{QuestionID: "q1", Text: "yes"},
		{ID: "fixed", QuestionID: "q2", CreatedAt: earlier},
	}, now)

	assert.NotEmpty(t, out[0].ID)
	assert.Equal(t, now, out[0].CreatedAt)
	assert.Equal(t, "fixed", out[1].ID)
	assert.Equal(t, earlier, out[1].CreatedAt)
}

func TestApplyAll(t *testing.T) {
	questions := map[string]*model.Question{
		"free": {ID: "free", Type: model.QuestionTypeFreeText},
		"mc": {ID: "mc", Type: model.QuestionTypeMultipleChoice, Answers: []model.AnswerOption{
			{Text: "Red"}, {Text: "Blue"},
		}},
	}
	loads := 0
	load := func(id string) (*model.Question, error) {
		loads++
		q, ok := questions[id]
		if !ok {
			return nil, ErrNotFound
		}
		return q, nil
	}

	t.Run("folds every response and loads each question once", func(t *testing.T) {
		touched, err := applyAll([]model.Response{
			{QuestionID: "free", Text: "hello"},
			{QuestionID: "mc", Text: "blue"},
			{QuestionID: "free", Text: "  "},
			{QuestionID: "free", Text: "Hello"},
		}, load)
		require.NoError(t, err)
		require.Len(t, touched, 2)
		assert.Equal(t, 2, loads)

		free := touched[0]
		assert.Equal(t, "free", free.ID)
		require.Len(t, free.Answers, 1)
		assert.Equal(t, 2, *free.Answers[0].ResponseCount)
		assert.Equal(t, 2, *free.TimesAnswered)
		assert.Equal(t, 1, *free.TimesSkipped)

		mc := touched[1]
		assert.Equal(t, 1, *mc.Answers[1].ResponseCount)
	})

	t.Run("unknown question aborts", func(t *testing.T) {
		_, err := applyAll([]model.Response{{QuestionID: "missing", Text: "x"}}, load)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("unknown option aborts", func(t *testing.T) {
		_, err := applyAll([]model.Response{{QuestionID: "mc", Text: "Green"}}, load)
		assert.ErrorIs(t, err, model.ErrUnknownOption)
	})
}
