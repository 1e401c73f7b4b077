package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/database"
	"github.com/stemsi/survey-backend/internal/event"
	"github.com/stemsi/survey-backend/internal/logger"
	"github.com/stemsi/survey-backend/internal/model"
	"github.com/stemsi/survey-backend/internal/repository"
	"github.com/stemsi/survey-backend/internal/service"
)

func mc(text, category, level string, correct string, options ...string) model.CreateQuestionRequest {
	answers := make([]model.AnswerOptionInput, len(options))
	for i, o := range options {
		answers[i] = model.AnswerOptionInput{Text: o, IsCorrect: o == correct}
	}
	return model.CreateQuestionRequest{
		Question: text,
		Type:     string(model.QuestionTypeMultipleChoice),
		Category: category,
		Level:    level,
		Answers:  answers,
	}
}

func free(text, category, level string) model.CreateQuestionRequest {
	return model.CreateQuestionRequest{
		Question: text,
		Type:     string(model.QuestionTypeFreeText),
		Category: category,
		Level:    level,
	}
}

var starterSet = []model.CreateQuestionRequest{
	mc("Which word means \"big\"?", "Vocabulary", model.LevelBeginner, "large", "large", "tiny", "slow"),
	mc("Choose the correct form: She ___ a student.", "Grammar", model.LevelBeginner, "is", "is", "are", "am"),
	free("How do you greet someone in the morning?", "Culture", model.LevelBeginner),

	mc("Pick the synonym of \"reluctant\".", "Vocabulary", model.LevelIntermediate, "unwilling", "eager", "unwilling", "curious"),
	mc("If I ___ more time, I would travel.", "Grammar", model.LevelIntermediate, "had", "have", "had", "will have"),
	free("Describe a holiday tradition you know.", "Culture", model.LevelIntermediate),

	mc("What does \"ubiquitous\" mean?", "Vocabulary", model.LevelAdvanced, "found everywhere", "found everywhere", "very rare", "hard to see"),
	mc("Hardly ___ arrived when it started to rain.", "Grammar", model.LevelAdvanced, "had we", "we had", "had we", "we have"),
	free("Explain an idiom from your own language.", "Culture", model.LevelAdvanced),
}

func main() {
	force := flag.Bool("force", false, "Seed even when questions already exist")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, closeStore, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open question store")
	}
	defer closeStore()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached analytics expire on their own")
		rdb = nil
	} else {
		defer rdb.Close()
	}

	analyticsService := service.NewAnalyticsService(store, rdb, cfg.AnalyticsCacheTTL, log)
	questionService := service.NewQuestionService(store, analyticsService, event.Nop{}, log)

	existing, err := questionService.List(ctx, repository.QuestionFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list questions")
	}
	if len(existing) > 0 && !*force {
		fmt.Printf("Store already holds %d questions, nothing to do (use -force to seed anyway)\n", len(existing))
		return
	}

	fmt.Println("=== Seeding starter questions ===")

	next := make(map[string]int)
	for i := range starterSet {
		starterSet[i].OrderNum = next[starterSet[i].Level]
		next[starterSet[i].Level]++
	}

	created, err := questionService.CreateQuestions(ctx, starterSet)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed questions")
	}

	for _, q := range created {
		fmt.Printf("  [%s] %-12s %s\n", q.Level, q.Category, q.Text)
	}
	fmt.Printf("\nSeed completed! Added %d questions.\n", len(created))
}
