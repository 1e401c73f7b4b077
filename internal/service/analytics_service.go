package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/analytics"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/metrics"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
	"github.com/stemsi/survey-backend/internal/response"
)

// AnalyticsService fetches store snapshots and turns them into statistics.
// Raw snapshots are cached in Redis for a short TTL; statistics are always
// recomputed. A nil Redis client disables caching and notifications.
type AnalyticsService struct {
	store    repository.QuestionStore
	rdb      *redis.Client
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store repository.QuestionStore, rdb *redis.Client, cacheTTL time.Duration, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:    store,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "analytics_service").Logger(),
	}
}

// Statistics computes statistics over one snapshot of the given source.
func (s *AnalyticsService) Statistics(ctx context.Context, source analytics.SourceKind) (*analytics.Statistics, error) {
	snap, err := s.Snapshot(ctx, source)
	if err != nil {
		return nil, err
	}
	metrics.AnalyticsComputations.WithLabelValues(string(source)).Inc()
	return analytics.Compute(snap), nil
}

// Snapshot returns the cached raw snapshot for source, reading the store on a miss.
func (s *AnalyticsService) Snapshot(ctx context.Context, source analytics.SourceKind) (analytics.Snapshot, error) {
	// The generation is read before the store so a snapshot taken across a
	// concurrent write is filed under a generation that write retires.
	generation, cacheable := s.generation(ctx)
	if cacheable {
		if snap, ok := s.cachedSnapshot(ctx, source, generation); ok {
			metrics.SnapshotCache.WithLabelValues("hit").Inc()
			return snap, nil
		}
	}
	metrics.SnapshotCache.WithLabelValues("miss").Inc()

	questions, responses, err := s.store.Snapshot(ctx, source == analytics.SourceFlattened)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap analytics.Snapshot
	switch source {
	case analytics.SourceFlattened:
		snap = analytics.Flattened(questions, responses)
	default:
		snap = analytics.Embedded(questions)
	}

	if cacheable {
		s.storeSnapshot(ctx, source, generation, snap)
	}
	return snap, nil
}

// ListResponses returns one page of flattened response records, oldest first.
func (s *AnalyticsService) ListResponses(ctx context.Context, page, perPage int) ([]model.Response, *response.Pagination, error) {
	all, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list responses: %w", err)
	}

	pagination := response.Paginate(page, perPage, len(all))
	start, end := pagination.Bounds()
	return all[start:end], pagination, nil
}

// InvalidateSnapshots retires every cached snapshot by moving to a new cache
// generation. Called after each write; retired entries expire on their TTL.
func (s *AnalyticsService) InvalidateSnapshots(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, config.CacheKey.SnapshotGenerationKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Invalidate snapshots failed")
	}
}

// Subscribe returns a subscription to submission notifications, or nil when
// Redis is not configured.
func (s *AnalyticsService) Subscribe(ctx context.Context) *redis.PubSub {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Subscribe(ctx, config.CacheKey.ResponsesChannel())
}

// generation returns the current cache generation. Caching is skipped when
// Redis is absent or the generation cannot be read.
func (s *AnalyticsService) generation(ctx context.Context) (int64, bool) {
	if s.rdb == nil || s.cacheTTL <= 0 {
		return 0, false
	}

	generation, err := s.rdb.Get(ctx, config.CacheKey.SnapshotGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Read snapshot generation failed")
		return 0, false
	}
	return generation, true
}

func (s *AnalyticsService) cachedSnapshot(ctx context.Context, source analytics.SourceKind, generation int64) (analytics.Snapshot, bool) {
	data, err := s.rdb.Get(ctx, config.CacheKey.SnapshotKey(string(source), generation)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Read cached snapshot failed")
		}
		return analytics.Snapshot{}, false
	}

	var snap analytics.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn().Err(err).Msg("Decode cached snapshot failed")
		return analytics.Snapshot{}, false
	}
	return snap, true
}

func (s *AnalyticsService) storeSnapshot(ctx context.Context, source analytics.SourceKind, generation int64, snap analytics.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("Encode snapshot failed")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.SnapshotKey(string(source), generation), data, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Cache snapshot failed")
	}
}
