package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/analytics"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsStatistics_WithoutCache(t *testing.T) {
	store := repository.NewMemoryQuestionRepository(
		model.Question{ID: "q1", Text: "One", Category: "Vocabulary", Level: model.LevelBeginner},
	)
	svc := NewAnalyticsService(store, nil, 0, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.RecordResponses(ctx, []model.Response{
		{QuestionID: "q1", Text: "a"},
		{QuestionID: "q1", Text: ""},
	}))

	stats, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, analytics.SourceEmbedded, stats.Source)
	assert.Equal(t, 2, stats.TotalResponses)
	assert.Equal(t, "50.0", stats.OverallSkipRate)

	// Without Redis these are no-ops.
	svc.InvalidateSnapshots(ctx)
	assert.Nil(t, svc.Subscribe(ctx))
}

func TestAnalyticsListResponses_Paginates(t *testing.T) {
	store := repository.NewMemoryQuestionRepository(model.Question{ID: "q1", Type: model.QuestionTypeFreeText})
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResponses(context.Background(), []model.Response{{QuestionID: "q1", Text: "x"}}))
	}
	svc := NewAnalyticsService(store, nil, 0, zerolog.Nop())

	page, pagination, err := svc.ListResponses(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 5, pagination.TotalItems)
	assert.Equal(t, 3, pagination.TotalPages)

	past, _, err := svc.ListResponses(context.Background(), 9, 2)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestAnalyticsSnapshot_CachesUntilInvalidated(t *testing.T) {
	store := &countingStore{MemoryQuestionRepository: repository.NewMemoryQuestionRepository(
		model.Question{ID: "q1", Type: model.QuestionTypeFreeText, Category: "Vocabulary", Level: model.LevelBeginner},
	)}
	svc := NewAnalyticsService(store, newTestRedis(t), time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	_, err = svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, 1, store.snapshotReads())

	require.NoError(t, store.RecordResponses(ctx, []model.Response{{QuestionID: "q1", Text: "a"}}))
	svc.InvalidateSnapshots(ctx)

	stats, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAnswered)
	assert.Equal(t, 2, store.snapshotReads())
}

func TestAnalyticsSnapshot_ReadOverlappingWriteIsNotServedAfterIt(t *testing.T) {
	store := &countingStore{MemoryQuestionRepository: repository.NewMemoryQuestionRepository(
		model.Question{ID: "q1", Type: model.QuestionTypeFreeText, Category: "Vocabulary", Level: model.LevelBeginner},
	)}
	svc := NewAnalyticsService(store, newTestRedis(t), time.Minute, zerolog.Nop())
	ctx := context.Background()

	// A write and its invalidation land between the store read and the
	// cache fill of an in-flight reader.
	store.afterRead = func() {
		require.NoError(t, store.RecordResponses(ctx, []model.Response{{QuestionID: "q1", Text: ""}}))
		svc.InvalidateSnapshots(ctx)
	}

	stale, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, 0, stale.TotalSkipped)

	fresh, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.TotalSkipped)

	again, err := svc.Statistics(ctx, analytics.SourceEmbedded)
	require.NoError(t, err)
	assert.Equal(t, 1, again.TotalSkipped)
	assert.Equal(t, 2, store.snapshotReads())
}
