package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/handler"
	"github.com/stemsi/survey-backend/internal/middleware"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Survey    *handler.SurveyHandler
	Question  *handler.QuestionHandler
	Analytics *handler.AnalyticsHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router, such as rate limiter sweeps.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAdmin := []gin.HandlerFunc{
		middleware.RequireAdminJWT(authService),
		middleware.CheckAdminSession(authService),
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/admin/login", loginLimiter.Middleware(), handlers.Auth.AdminLogin)
		auth.POST("/admin/logout", append(requireAdmin, handlers.Auth.AdminLogout)...)
		auth.GET("/admin/me", append(requireAdmin, handlers.Auth.GetAdminProfile)...)
	}

	// ─── 2. Survey Group (Public, Rate Limited) ────────────────────────
	surveyLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)
	survey := router.Group("/api/v1/survey")
	survey.Use(surveyLimiter.Middleware())
	{
		survey.GET("/levels", middleware.CacheControl(30), handlers.Survey.ListLevels)
		survey.GET("/questions", handlers.Survey.GetQuestions)
		survey.POST("/answers", handlers.Survey.SubmitAnswers)

		survey.POST("/sessions", handlers.Survey.StartSession)
		survey.GET("/sessions/:id", handlers.Survey.GetSession)
		survey.POST("/sessions/:id/answer", handlers.Survey.AnswerSession)
		survey.POST("/sessions/:id/skip", handlers.Survey.SkipSession)
		survey.POST("/sessions/:id/back", handlers.Survey.BackSession)
		survey.POST("/sessions/:id/finish", handlers.Survey.FinishSession)
	}

	// ─── 3. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService), middleware.CheckAdminSession(authService))
	{
		ws.GET("/admin/analytics/stream", handlers.WS.AnalyticsStream)
	}

	// ─── 4. Admin Group (JWT + Session) ────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(requireAdmin...)
	adminAPI.Use(middleware.NoStore())
	{
		// Survey builder
		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.GET("/questions/:id", handlers.Question.GetQuestion)
		adminAPI.POST("/questions", handlers.Question.CreateQuestions)
		adminAPI.PUT("/questions", handlers.Question.UpdateQuestions)
		adminAPI.DELETE("/questions", handlers.Question.DeleteQuestions)
		adminAPI.DELETE("/levels/:level/questions", handlers.Question.DeleteLevel)
		adminAPI.PUT("/levels/:level/order", handlers.Question.ReorderLevel)

		// Analytics
		adminAPI.GET("/analytics", handlers.Analytics.GetStatistics)
		adminAPI.GET("/responses", handlers.Analytics.ListResponses)
	}

	return router
}
