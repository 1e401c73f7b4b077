package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/analytics"
	"github.com/stemsi/survey-backend/internal/service"
)

// snapshotReader reads (and caches) an analytics snapshot.
type snapshotReader interface {
	Snapshot(ctx context.Context, source analytics.SourceKind) (analytics.Snapshot, error)
}

// SnapshotWarmer refills the analytics snapshot cache after submissions so
// dashboard reads hit Redis instead of the store.
type SnapshotWarmer struct {
	analytics *service.AnalyticsService
	reader    snapshotReader
	debounce  time.Duration
	log       zerolog.Logger
}

// NewSnapshotWarmer creates a new SnapshotWarmer. Bursts of notifications
// arriving within debounce of each other trigger a single refill.
func NewSnapshotWarmer(analyticsService *service.AnalyticsService, debounce time.Duration, log zerolog.Logger) *SnapshotWarmer {
	return &SnapshotWarmer{
		analytics: analyticsService,
		reader:    analyticsService,
		debounce:  debounce,
		log:       log.With().Str("component", "snapshot_warmer").Logger(),
	}
}

// Start warms the cache once, then again after every submission notification.
// It blocks until ctx is cancelled. Call in a goroutine.
func (w *SnapshotWarmer) Start(ctx context.Context) {
	pubsub := w.analytics.Subscribe(ctx)
	if pubsub == nil {
		w.log.Info().Msg("Redis not configured, warmer disabled")
		return
	}
	defer pubsub.Close()

	triggers := make(chan struct{}, 1)
	go func() {
		defer close(triggers)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case triggers <- struct{}{}:
				default:
				}
			}
		}
	}()

	w.Run(ctx, triggers)
}

// Run warms the cache once, then after each debounced burst on triggers.
// It returns when ctx is cancelled or triggers is closed.
func (w *SnapshotWarmer) Run(ctx context.Context, triggers <-chan struct{}) {
	w.log.Info().Msg("Worker started")
	w.warm(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Info().Msg("Worker stopped")
			return

		case _, ok := <-triggers:
			if !ok {
				w.log.Info().Msg("Worker stopped")
				return
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			w.warm(ctx)
		}
	}
}

func (w *SnapshotWarmer) warm(ctx context.Context) {
	for _, source := range []analytics.SourceKind{analytics.SourceEmbedded, analytics.SourceFlattened} {
		if _, err := w.reader.Snapshot(ctx, source); err != nil {
			if ctx.Err() == nil {
				w.log.Warn().Err(err).Str("source", string(source)).Msg("Warm snapshot failed")
			}
			continue
		}
		w.log.Debug().Str("source", string(source)).Msg("Snapshot warmed")
	}
}
