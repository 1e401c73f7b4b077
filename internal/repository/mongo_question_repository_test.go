package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestVersionFilter(t *testing.T) {
	assert.Equal(t,
		bson.M{"_id": "q1", "version": bson.M{"$in": bson.A{0, nil}}},
		versionFilter("q1", 0),
	)
	assert.Equal(t, bson.M{"_id": "q1", "version": 3}, versionFilter("q1", 3))
}

func TestGroupResponses_KeepsFirstAppearanceOrder(t *testing.T) {
	ids, texts := groupResponses([]model.Response{
		{QuestionID: "b", Text: "x"},
		{QuestionID: "a", Text: ""},
		{QuestionID: "b", Text: "y"},
	})
	assert.Equal(t, []string{"b", "a"}, ids)
	assert.Equal(t, []string{"x", "y"}, texts["b"])
	assert.Equal(t, []string{""}, texts["a"])
}

func TestStatsSet(t *testing.T) {
	q := &model.Question{ID: "q", Type: model.QuestionTypeFreeText, Answers: []model.AnswerOption{}}
	require.NoError(t, q.ApplyResponse(""))

	set := statsSet(q)
	assert.Equal(t, 1, set["times_skipped"])
	assert.NotContains(t, set, "times_answered")

	require.NoError(t, q.ApplyResponse("hola"))
	set = statsSet(q)
	assert.Equal(t, 1, set["times_answered"])
	assert.Len(t, set["answers"], 1)
}

// Runs only when MONGO_TEST_URI points at a disposable server.
func TestMongoRepository_ConcurrentResponsesKeepEveryIncrement(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("survey_test_" + uuid.NewString()[:8])
	defer db.Drop(context.Background())

	repo := NewMongoQuestionRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	created, err := repo.CreateMany(ctx, []model.Question{
		{Text: "Favourite word?", Type: model.QuestionTypeFreeText, Level: model.LevelBeginner},
	})
	require.NoError(t, err)
	id := created[0].ID

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := ""
			if i%2 == 0 {
				text = "hola"
			}
			errs <- repo.RecordResponses(ctx, []model.Response{{QuestionID: id, Text: text}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	q, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, q.TimesAnswered)
	require.NotNil(t, q.TimesSkipped)
	assert.Equal(t, writers/2, *q.TimesAnswered)
	assert.Equal(t, writers/2, *q.TimesSkipped)
	require.Len(t, q.Answers, 1)
	assert.Equal(t, writers/2, *q.Answers[0].ResponseCount)

	records, err := repo.ListResponses(ctx)
	require.NoError(t, err)
	assert.Len(t, records, *q.TimesAnswered+*q.TimesSkipped)
}
