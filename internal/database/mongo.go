package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoClient connects to MongoDB and returns the client together with
// the configured database handle.
func NewMongoClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	err = withRetry(ctx, log, "mongo", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info().
		Str("database", cfg.MongoDatabase).
		Msg("MongoDB connected")

	return client, client.Database(cfg.MongoDatabase), nil
}
