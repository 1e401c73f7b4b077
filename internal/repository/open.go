package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/database"
)

// Open connects the question store selected by cfg.StoreDriver. The
// returned func releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (QuestionStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresQuestionRepository(pool), pool.Close, nil

	case config.StoreDriverMongo:
		client, db, err := database.NewMongoClient(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		repo := NewMongoQuestionRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Error().Err(err).Msg("MongoDB disconnect error")
			}
		}
		return repo, closeFn, nil

	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory question store, data is lost on restart")
		return NewMemoryQuestionRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
