package analytics

import (
	"errors"
	"strings"

	"github.com/stemsi/survey-backend/internal/model"
)

// ErrUnknownSource is returned by ParseSource for an unsupported snapshot kind.
var ErrUnknownSource = errors.New("unknown snapshot source")

// SourceKind tags which answer representation a snapshot carries.
type SourceKind string

const (
	// SourceEmbedded reads answer stats embedded in each question document.
	SourceEmbedded SourceKind = "embedded"
	// SourceFlattened reads individual response records keyed by question ID.
	SourceFlattened SourceKind = "flattened"
)

// ParseSource maps a query value onto a SourceKind. Empty means embedded.
func ParseSource(raw string) (SourceKind, error) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SourceEmbedded:
		return SourceEmbedded, nil
	case SourceFlattened:
		return SourceFlattened, nil
	default:
		return "", ErrUnknownSource
	}
}

// Snapshot is one atomic read of the store. Question order is significant:
// it breaks ties in the leaderboard and in the most-answered/skipped lookups.
type Snapshot struct {
	Kind      SourceKind       `json:"kind"`
	Questions []model.Question `json:"questions"`
	Responses []model.Response `json:"responses,omitempty"`
}

// Embedded builds a snapshot whose answers live inside the questions.
func Embedded(questions []model.Question) Snapshot {
	return Snapshot{Kind: SourceEmbedded, Questions: questions}
}

// Flattened builds a snapshot whose answers are separate response records.
func Flattened(questions []model.Question, responses []model.Response) Snapshot {
	return Snapshot{Kind: SourceFlattened, Questions: questions, Responses: responses}
}

// Entry is the canonical response record both representations normalize to.
type Entry struct {
	QuestionID string
	Text       string
	Count      int
}

// Skipped reports whether the entry is a skip.
func (e Entry) Skipped() bool {
	return model.IsSkipped(e.Text)
}

// Normalize returns the entries of every question, aligned with s.Questions.
//
// Embedded entries weigh their response count, or 1 when the count is absent.
// Flattened records weigh 1 each and belong to the first question carrying
// their ID; records for IDs outside the snapshot are dropped.
func Normalize(s Snapshot) [][]Entry {
	out := make([][]Entry, len(s.Questions))

	if s.Kind == SourceFlattened {
		index := make(map[string]int, len(s.Questions))
		for i, q := range s.Questions {
			if _, seen := index[q.ID]; !seen {
				index[q.ID] = i
			}
		}
		for _, r := range s.Responses {
			i, ok := index[r.QuestionID]
			if !ok {
				continue
			}
			out[i] = append(out[i], Entry{QuestionID: r.QuestionID, Text: r.Text, Count: 1})
		}
		return out
	}

	for i, q := range s.Questions {
		entries := make([]Entry, 0, len(q.Answers))
		for _, a := range q.Answers {
			count := 1
			if a.ResponseCount != nil {
				count = *a.ResponseCount
			}
			entries = append(entries, Entry{QuestionID: q.ID, Text: a.Text, Count: count})
		}
		out[i] = entries
	}
	return out
}
