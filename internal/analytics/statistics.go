package analytics

import (
	"math"
	"sort"
	"strconv"

	"github.com/stemsi/survey-backend/internal/model"
)

// LeaderboardSize is the number of questions kept in the leaderboard.
const LeaderboardSize = 5

// Statistics is the derived view of one snapshot.
type Statistics struct {
	Source          SourceKind         `json:"source"`
	QuestionCount   int                `json:"question_count"`
	CategoryTotals  map[string]int     `json:"category_totals"`
	LevelTotals     map[string]int     `json:"level_totals"`
	AnswerCounts    map[string]int     `json:"answer_counts"`
	SkipCounts      map[string]int     `json:"skip_counts"`
	SkipRates       map[string]string  `json:"skip_rates"`
	TotalAnswered   int                `json:"total_answered"`
	TotalSkipped    int                `json:"total_skipped"`
	TotalResponses  int                `json:"total_responses"`
	OverallSkipRate string             `json:"overall_skip_rate"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	MostAnswered    *Extreme           `json:"most_answered"`
	MostSkipped     *Extreme           `json:"most_skipped"`
	Questions       []QuestionStats    `json:"questions"`
}

// LeaderboardEntry is one ranked question.
type LeaderboardEntry struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Responses int    `json:"responses"`
}

// Extreme identifies the question holding a maximum. A nil *Extreme means none.
type Extreme struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// QuestionStats is one row of the per-question breakdown, in input order.
type QuestionStats struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Category string `json:"category"`
	Level    string `json:"level"`
	Answered int    `json:"answered"`
	Skipped  int    `json:"skipped"`
	SkipRate string `json:"skip_rate"`
}

// Compute aggregates a snapshot. It is a pure function: it never fails,
// performs no I/O and returns the same result for the same snapshot.
// Missing categories or levels are bucketed under their literal value.
func Compute(s Snapshot) *Statistics {
	kind := s.Kind
	if kind == "" {
		kind = SourceEmbedded
	}

	stats := &Statistics{
		Source:         kind,
		QuestionCount:  len(s.Questions),
		CategoryTotals: make(map[string]int, len(model.KnownCategories)),
		LevelTotals:    make(map[string]int),
		AnswerCounts:   make(map[string]int, len(s.Questions)),
		SkipCounts:     make(map[string]int, len(s.Questions)),
		SkipRates:      make(map[string]string, len(s.Questions)),
		Leaderboard:    []LeaderboardEntry{},
		Questions:      make([]QuestionStats, 0, len(s.Questions)),
	}
	for _, c := range model.KnownCategories {
		stats.CategoryTotals[c] = 0
	}

	entries := Normalize(s)
	answered := make([]int, len(s.Questions))
	skipped := make([]int, len(s.Questions))

	for i, q := range s.Questions {
		answered[i], skipped[i] = tally(q, entries[i])

		stats.CategoryTotals[q.Category] += answered[i]
		stats.LevelTotals[q.Level] += answered[i]
		stats.AnswerCounts[q.ID] += answered[i]
		stats.SkipCounts[q.ID] += skipped[i]
		stats.TotalAnswered += answered[i]
		stats.TotalSkipped += skipped[i]

		stats.Questions = append(stats.Questions, QuestionStats{
			ID:       q.ID,
			Question: q.Text,
			Category: q.Category,
			Level:    q.Level,
			Answered: answered[i],
			Skipped:  skipped[i],
			SkipRate: Rate(skipped[i], answered[i]+skipped[i]),
		})
	}

	stats.TotalResponses = stats.TotalAnswered + stats.TotalSkipped
	stats.OverallSkipRate = Rate(stats.TotalSkipped, stats.TotalResponses)
	for id, a := range stats.AnswerCounts {
		sk := stats.SkipCounts[id]
		stats.SkipRates[id] = Rate(sk, a+sk)
	}

	stats.Leaderboard = leaderboard(s.Questions, answered)
	stats.MostAnswered = extreme(s.Questions, answered)
	stats.MostSkipped = extreme(s.Questions, skipped)

	return stats
}

// tally splits a question's entries into answered and skipped counts.
// The question's own skip counter wins over counting blank entries.
func tally(q model.Question, entries []Entry) (answered, skipped int) {
	for _, e := range entries {
		if e.Skipped() {
			skipped += e.Count
			continue
		}
		answered += e.Count
	}
	if q.TimesSkipped != nil {
		skipped = *q.TimesSkipped
	}
	return answered, skipped
}

// Rate returns 100*part/whole rounded to one decimal place, "0.0" for an empty whole.
func Rate(part, whole int) string {
	if whole == 0 {
		return "0.0"
	}
	pct := math.Round(1000*float64(part)/float64(whole)) / 10
	return strconv.FormatFloat(pct, 'f', 1, 64)
}

func leaderboard(questions []model.Question, answered []int) []LeaderboardEntry {
	board := make([]LeaderboardEntry, len(questions))
	for i, q := range questions {
		board[i] = LeaderboardEntry{ID: q.ID, Question: q.Text, Responses: answered[i]}
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Responses > board[j].Responses
	})
	if len(board) > LeaderboardSize {
		board = board[:LeaderboardSize]
	}
	return board
}

// extreme returns the first question holding the maximum, or nil when no
// question has a positive count.
func extreme(questions []model.Question, counts []int) *Extreme {
	best, bestCount := -1, 0
	for i, c := range counts {
		if c > bestCount {
			best, bestCount = i, c
		}
	}
	if best < 0 {
		return nil
	}
	return &Extreme{ID: questions[best].ID, Question: questions[best].Text, Count: bestCount}
}
