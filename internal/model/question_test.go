package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSkipped(t *testing.T) {
	assert.True(t, IsSkipped(""))
	assert.True(t, IsSkipped("   "))
	assert.True(t, IsSkipped("\n\t"))
	assert.False(t, IsSkipped(" a "))
	assert.False(t, IsSkipped("0"))
}

func TestApplyResponseSkip(t *testing.T) {
	q := Question{Type: QuestionTypeFreeText}

	require.NoError(t, q.ApplyResponse("  "))
	require.NoError(t, q.ApplyResponse(""))

	require.NotNil(t, q.TimesSkipped)
	assert.Equal(t, 2, *q.TimesSkipped)
	assert.Nil(t, q.TimesAnswered)
	assert.Empty(t, q.Answers)
}

func TestApplyResponseFreeTextGroupsDistinctAnswers(t *testing.T) {
	q := Question{Type: QuestionTypeFreeText}

	require.NoError(t, q.ApplyResponse("Gracias"))
	require.NoError(t, q.ApplyResponse(" gracias "))
	require.NoError(t, q.ApplyResponse("de nada"))

	require.Len(t, q.Answers, 2)
	assert.Equal(t, "Gracias", q.Answers[0].Text)
	assert.Equal(t, 2, *q.Answers[0].ResponseCount)
	assert.Equal(t, 1, *q.Answers[1].ResponseCount)
	assert.Equal(t, 3, *q.TimesAnswered)
}

func TestApplyResponseMultipleChoice(t *testing.T) {
	yes, no := true, false
	q := Question{
		Type: QuestionTypeMultipleChoice,
		Answers: []AnswerOption{
			{Text: "el", IsCorrect: &yes},
			{Text: "la", IsCorrect: &no},
		},
	}

	require.NoError(t, q.ApplyResponse("la"))
	assert.Equal(t, 1, *q.Answers[1].ResponseCount)
	assert.Nil(t, q.Answers[0].ResponseCount)

	err := q.ApplyResponse("los")
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.Len(t, q.Answers, 2)
	assert.Equal(t, 1, *q.TimesAnswered)
}

func TestParticipantViewHidesStats(t *testing.T) {
	yes := true
	count := 4
	q := Question{
		ID:            "q1",
		Type:          QuestionTypeMultipleChoice,
		Answers:       []AnswerOption{{Text: "a", IsCorrect: &yes, ResponseCount: &count}},
		TimesAnswered: &count,
		TimesSkipped:  &count,
	}

	view := q.ParticipantView()

	assert.Nil(t, view.TimesAnswered)
	assert.Nil(t, view.TimesSkipped)
	require.Len(t, view.Answers, 1)
	assert.Equal(t, AnswerOption{Text: "a"}, view.Answers[0])
	// The source question keeps its stats.
	assert.NotNil(t, q.Answers[0].IsCorrect)

	free := Question{Type: QuestionTypeFreeText, Answers: []AnswerOption{{Text: "someone's answer"}}}
	assert.Empty(t, free.ParticipantView().Answers)
}

func TestLevelRank(t *testing.T) {
	assert.Less(t, LevelRank(LevelBeginner), LevelRank(LevelIntermediate))
	assert.Less(t, LevelRank(LevelIntermediate), LevelRank(LevelAdvanced))
	assert.Equal(t, len(Levels), LevelRank("Expert"))
}

func TestToQuestionSeedsCounters(t *testing.T) {
	req := CreateQuestionRequest{
		Question: "  Pick the article ",
		Type:     string(QuestionTypeMultipleChoice),
		Category: "Grammar",
		Level:    LevelBeginner,
		Answers:  []AnswerOptionInput{{Text: "el", IsCorrect: true}, {Text: "la"}},
	}

	q := req.ToQuestion()

	assert.Equal(t, "Pick the article", q.Text)
	require.Len(t, q.Answers, 2)
	assert.True(t, *q.Answers[0].IsCorrect)
	assert.False(t, *q.Answers[1].IsCorrect)
	assert.Equal(t, 0, *q.Answers[1].ResponseCount)
}

func TestWithEditsKeepsStats(t *testing.T) {
	seven, two := 7, 2
	yes := true
	existing := Question{
		ID:            "q1",
		Text:          "Old",
		Type:          QuestionTypeMultipleChoice,
		Answers:       []AnswerOption{{Text: "el", ResponseCount: &seven}, {Text: "la", ResponseCount: &two}},
		TimesAnswered: &seven,
	}
	edit := CreateQuestionRequest{
		Question: "New",
		Type:     string(QuestionTypeMultipleChoice),
		Category: "Grammar",
		Level:    LevelIntermediate,
		Answers:  []AnswerOptionInput{{Text: "EL", IsCorrect: yes}, {Text: "los"}},
	}.ToQuestion()

	merged := existing.WithEdits(edit)

	assert.Equal(t, "q1", merged.ID)
	assert.Equal(t, "New", merged.Text)
	assert.Equal(t, LevelIntermediate, merged.Level)
	assert.Equal(t, 7, *merged.TimesAnswered)
	require.Len(t, merged.Answers, 2)
	assert.Equal(t, 7, *merged.Answers[0].ResponseCount)
	assert.Equal(t, 0, *merged.Answers[1].ResponseCount)
}

func TestAccepts(t *testing.T) {
	mc := Question{Type: QuestionTypeMultipleChoice, Answers: []AnswerOption{{Text: "Yes"}, {Text: "No"}}}
	assert.True(t, mc.Accepts(" yes "))
	assert.True(t, mc.Accepts(""))
	assert.False(t, mc.Accepts("maybe"))

	free := Question{Type: QuestionTypeFreeText}
	assert.True(t, free.Accepts("anything at all"))
}
