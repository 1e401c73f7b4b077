package analytics

import (
	"fmt"
	"testing"

	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func question(id, text, category, level string, answers ...model.AnswerOption) model.Question {
	return model.Question{
		ID:       id,
		Text:     text,
		Type:     model.QuestionTypeFreeText,
		Category: category,
		Level:    level,
		Answers:  answers,
	}
}

func response(text string) model.AnswerOption {
	return model.AnswerOption{Text: text}
}

func counted(text string, n int) model.AnswerOption {
	return model.AnswerOption{Text: text, ResponseCount: intPtr(n)}
}

func TestComputeOneAnswerPerLevel(t *testing.T) {
	questions := []model.Question{
		question("q1", "Hola means?", "Vocabulary", model.LevelBeginner, response("hello")),
		question("q2", "Past tense of ir?", "Grammar", model.LevelIntermediate, response("fui")),
		question("q3", "Siesta is?", "Culture", model.LevelAdvanced, response("a nap")),
	}

	stats := Compute(Embedded(questions))

	assert.Equal(t, 3, stats.TotalAnswered)
	assert.Equal(t, 0, stats.TotalSkipped)
	assert.Equal(t, 3, stats.TotalResponses)
	assert.Equal(t, "0.0", stats.OverallSkipRate)
	assert.Equal(t, map[string]int{
		model.LevelBeginner:     1,
		model.LevelIntermediate: 1,
		model.LevelAdvanced:     1,
	}, stats.LevelTotals)
	assert.Equal(t, map[string]int{"Vocabulary": 1, "Grammar": 1, "Culture": 1}, stats.CategoryTotals)
}

func TestComputeHalfSkipped(t *testing.T) {
	questions := []model.Question{
		question("q1", "Favourite word?", "Vocabulary", model.LevelBeginner, response(""), response("gato")),
	}

	stats := Compute(Embedded(questions))

	assert.Equal(t, 1, stats.AnswerCounts["q1"])
	assert.Equal(t, 1, stats.SkipCounts["q1"])
	assert.Equal(t, "50.0", stats.SkipRates["q1"])
	assert.Equal(t, "50.0", stats.OverallSkipRate)
	require.Len(t, stats.Questions, 1)
	assert.Equal(t, "50.0", stats.Questions[0].SkipRate)
}

func TestComputeEmptySnapshot(t *testing.T) {
	for _, s := range []Snapshot{Embedded(nil), Flattened(nil, nil), {}} {
		stats := Compute(s)

		assert.Equal(t, 0, stats.TotalAnswered)
		assert.Equal(t, 0, stats.TotalSkipped)
		assert.Equal(t, 0, stats.TotalResponses)
		assert.Equal(t, "0.0", stats.OverallSkipRate)
		assert.NotNil(t, stats.Leaderboard)
		assert.Empty(t, stats.Leaderboard)
		assert.Nil(t, stats.MostAnswered)
		assert.Nil(t, stats.MostSkipped)
		assert.Equal(t, map[string]int{"Vocabulary": 0, "Grammar": 0, "Culture": 0}, stats.CategoryTotals)
		assert.Empty(t, stats.LevelTotals)
	}
}

func TestComputeTieKeepsInputOrder(t *testing.T) {
	questions := []model.Question{
		question("a", "A", "Grammar", model.LevelBeginner, counted("x", 5)),
		question("b", "B", "Grammar", model.LevelBeginner, counted("y", 5)),
	}

	stats := Compute(Embedded(questions))

	require.Len(t, stats.Leaderboard, 2)
	assert.Equal(t, "A", stats.Leaderboard[0].Question)
	assert.Equal(t, "B", stats.Leaderboard[1].Question)
	require.NotNil(t, stats.MostAnswered)
	assert.Equal(t, "a", stats.MostAnswered.ID)
	assert.Equal(t, 5, stats.MostAnswered.Count)
	assert.Nil(t, stats.MostSkipped)
}

func TestLeaderboardTopFiveStable(t *testing.T) {
	counts := []int{1, 7, 3, 7, 0, 3, 9, 3}
	questions := make([]model.Question, len(counts))
	for i, c := range counts {
		questions[i] = question(fmt.Sprintf("q%d", i), fmt.Sprintf("Q%d", i), "Grammar", model.LevelBeginner, counted("ok", c))
	}

	stats := Compute(Embedded(questions))

	got := make([]string, 0, len(stats.Leaderboard))
	for _, e := range stats.Leaderboard {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"q6", "q1", "q3", "q2", "q5"}, got)
	for i := 1; i < len(stats.Leaderboard); i++ {
		assert.GreaterOrEqual(t, stats.Leaderboard[i-1].Responses, stats.Leaderboard[i].Responses)
	}
}

func TestMostAnsweredIgnoresSkips(t *testing.T) {
	questions := []model.Question{
		question("busy", "Busy", "Culture", model.LevelBeginner, counted("", 10), counted("yes", 1)),
		question("real", "Real", "Culture", model.LevelBeginner, counted("yes", 3)),
	}

	stats := Compute(Embedded(questions))

	require.NotNil(t, stats.MostAnswered)
	assert.Equal(t, "real", stats.MostAnswered.ID)
	require.NotNil(t, stats.MostSkipped)
	assert.Equal(t, "busy", stats.MostSkipped.ID)
	assert.Equal(t, 10, stats.MostSkipped.Count)
}

func TestTimesSkippedCounterWins(t *testing.T) {
	q := question("q1", "Q", "Grammar", model.LevelBeginner, response(""), response("fine"))
	q.TimesSkipped = intPtr(4)

	stats := Compute(Embedded([]model.Question{q}))

	assert.Equal(t, 1, stats.AnswerCounts["q1"])
	assert.Equal(t, 4, stats.SkipCounts["q1"])
	assert.Equal(t, "80.0", stats.SkipRates["q1"])
}

func TestWhitespaceOnlyIsSkip(t *testing.T) {
	questions := []model.Question{
		question("q1", "Q", "Grammar", model.LevelBeginner, response("   "), response("\t\n"), response(" si ")),
	}

	stats := Compute(Embedded(questions))

	assert.Equal(t, 1, stats.AnswerCounts["q1"])
	assert.Equal(t, 2, stats.SkipCounts["q1"])
	assert.Equal(t, "66.7", stats.OverallSkipRate)
}

func TestUnknownCategoryAndLevelBucketedLiterally(t *testing.T) {
	questions := []model.Question{
		question("q1", "Q1", "", "", response("a")),
		question("q2", "Q2", "Idioms", "Expert", response("b"), response("c")),
	}

	stats := Compute(Embedded(questions))

	assert.Equal(t, 1, stats.CategoryTotals[""])
	assert.Equal(t, 2, stats.CategoryTotals["Idioms"])
	assert.Equal(t, 0, stats.CategoryTotals["Vocabulary"])
	assert.Equal(t, 1, stats.LevelTotals[""])
	assert.Equal(t, 2, stats.LevelTotals["Expert"])
}

func TestFlattenedMatchesEmbedded(t *testing.T) {
	questions := []model.Question{
		question("q1", "Q1", "Vocabulary", model.LevelBeginner),
		question("q2", "Q2", "Grammar", model.LevelAdvanced),
	}
	responses := []model.Response{
		{QuestionID: "q1", Text: "uno"},
		{QuestionID: "q1", Text: ""},
		{QuestionID: "q2", Text: "dos"},
		{QuestionID: "q2", Text: "tres"},
		{QuestionID: "missing", Text: "ignored"},
	}

	stats := Compute(Flattened(questions, responses))

	assert.Equal(t, SourceFlattened, stats.Source)
	assert.Equal(t, map[string]int{"q1": 1, "q2": 2}, stats.AnswerCounts)
	assert.Equal(t, map[string]int{"q1": 1, "q2": 0}, stats.SkipCounts)
	assert.Equal(t, 3, stats.TotalAnswered)
	assert.Equal(t, 1, stats.TotalSkipped)
	assert.Equal(t, "25.0", stats.OverallSkipRate)
	require.NotNil(t, stats.MostAnswered)
	assert.Equal(t, "q2", stats.MostAnswered.ID)
}

func TestTotalsAddUp(t *testing.T) {
	questions := []model.Question{
		question("q1", "Q1", "Vocabulary", model.LevelBeginner, counted("a", 3), counted("", 2)),
		question("q2", "Q2", "Grammar", model.LevelIntermediate, counted("b", 0), response("")),
		question("q3", "Q3", "Culture", model.LevelAdvanced),
	}

	stats := Compute(Embedded(questions))

	assert.Equal(t, stats.TotalResponses, stats.TotalAnswered+stats.TotalSkipped)
	assert.Equal(t, 5, stats.AnswerCounts["q1"]+stats.SkipCounts["q1"])
	assert.Equal(t, 1, stats.AnswerCounts["q2"]+stats.SkipCounts["q2"])
	assert.Equal(t, "0.0", stats.SkipRates["q3"])
}

func TestComputeIsIdempotent(t *testing.T) {
	questions := []model.Question{
		question("q1", "Q1", "Vocabulary", model.LevelBeginner, counted("a", 3), counted("", 2)),
		question("q2", "Q2", "Grammar", model.LevelIntermediate, counted("b", 3)),
	}
	s := Embedded(questions)

	assert.Equal(t, Compute(s), Compute(s))
}

func TestRate(t *testing.T) {
	tests := []struct {
		part, whole int
		want        string
	}{
		{0, 0, "0.0"},
		{0, 4, "0.0"},
		{1, 3, "33.3"},
		{2, 3, "66.7"},
		{1, 8, "12.5"},
		{5, 5, "100.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Rate(tt.part, tt.whole), "Rate(%d, %d)", tt.part, tt.whole)
	}
}

func TestParseSource(t *testing.T) {
	kind, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceEmbedded, kind)

	kind, err = ParseSource(" Flattened ")
	require.NoError(t, err)
	assert.Equal(t, SourceFlattened, kind)

	_, err = ParseSource("csv")
	assert.ErrorIs(t, err, ErrUnknownSource)
}
