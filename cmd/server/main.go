package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/database"
	"github.com/stemsi/survey-backend/internal/event"
	"github.com/stemsi/survey-backend/internal/handler"
	"github.com/stemsi/survey-backend/internal/logger"
	"github.com/stemsi/survey-backend/internal/repository"
	"github.com/stemsi/survey-backend/internal/router"
	"github.com/stemsi/survey-backend/internal/service"
	"github.com/stemsi/survey-backend/internal/validator"
	"github.com/stemsi/survey-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Survey Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Question Store ───────────────────────────────────────────
	store, closeStore, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open question store")
	}
	defer closeStore()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect Event Publisher ───────────────────────────────────────
	events, err := event.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer events.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize admin authentication")
	}
	analyticsService := service.NewAnalyticsService(store, rdb, cfg.AnalyticsCacheTTL, log)
	questionService := service.NewQuestionService(store, analyticsService, events, log)
	surveyService := service.NewSurveyService(store, analyticsService, rdb, events, cfg.SurveySessionTTL, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Survey:    handler.NewSurveyHandler(surveyService),
		Question:  handler.NewQuestionHandler(questionService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		WS:        handler.NewWSHandler(analyticsService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	warmer := worker.NewSnapshotWarmer(analyticsService, 500*time.Millisecond, log)
	go warmer.Start(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background goroutines.
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
