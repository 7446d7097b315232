package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/handler"
	"github.com/stemsi/interview-backend/internal/metrics"
	"github.com/stemsi/interview-backend/internal/middleware"
	"github.com/stemsi/interview-backend/internal/response"
	"github.com/stemsi/interview-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Interview *handler.InterviewHandler
	Narration *handler.NarrationHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter is shared with the websocket handler so both surfaces draw from
// the same per-candidate budget.
func SetupRouter(
	authService *service.AuthService,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restricted to AllowedOrigins when set; all origins otherwise.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Narration-Cache"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())
	router.Use(middleware.Brotli())

	// ─── Health ────────────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/ready", handlers.System.Ready)
	router.GET("/metrics", metrics.Handler())

	// ─── 1. Interview Group (Candidate JWT, Rate Limited) ──────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireCandidateJWT(authService))
	if limiter != nil {
		api.Use(limiter.Middleware())
	}

	interviews := api.Group("/interviews")
	interviews.Use(middleware.NoStore())
	{
		interviews.POST("", handlers.Interview.StartSession)
		interviews.GET("", handlers.Interview.ListSessions)

		session := interviews.Group("/:id")
		session.Use(middleware.ParseSessionID())
		{
			session.GET("", handlers.Interview.GetSession)
			session.GET("/problem", handlers.Interview.GetProblem)
			session.POST("/messages", handlers.Interview.SubmitChatMessage)
			session.POST("/code", handlers.Interview.SubmitCode)
			session.POST("/hints", handlers.Interview.RequestHint)
			session.POST("/analysis", handlers.Interview.RequestCodeAnalysis)
			session.POST("/end", handlers.Interview.EndSession)
			session.POST("/cancel", handlers.Interview.CancelSession)
		}
	}

	// ─── 2. Narration Group ────────────────────────────────────────────
	narration := api.Group("/narration")
	{
		narration.POST("", handlers.Narration.Synthesize)
		narration.GET("/voices", middleware.CacheControl(3600), handlers.Narration.ListVoices)
		narration.GET("/status", middleware.NoStore(), handlers.Narration.Status)
		narration.DELETE("/cache", handlers.Narration.ClearCache)
	}

	// ─── 3. WebSocket Group (token in query or header) ─────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/interviews/:id/stream", middleware.ParseSessionID(), handlers.WS.InterviewStream)
	}

	return router
}
