package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/database"
	"github.com/stemsi/interview-backend/internal/enrichment"
	"github.com/stemsi/interview-backend/internal/guidance"
	"github.com/stemsi/interview-backend/internal/handler"
	"github.com/stemsi/interview-backend/internal/interview"
	"github.com/stemsi/interview-backend/internal/llm"
	"github.com/stemsi/interview-backend/internal/logger"
	"github.com/stemsi/interview-backend/internal/middleware"
	"github.com/stemsi/interview-backend/internal/narration"
	"github.com/stemsi/interview-backend/internal/repository"
	"github.com/stemsi/interview-backend/internal/router"
	"github.com/stemsi/interview-backend/internal/service"
	"github.com/stemsi/interview-backend/internal/transport"
	"github.com/stemsi/interview-backend/internal/validator"
	"github.com/stemsi/interview-backend/internal/worker"
)

const hubBuffer = 64

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Interview Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	transcriptRepo := repository.NewTranscriptRepository(pool)
	problemRepo := repository.NewProblemRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)

	// ─── Collaborators ─────────────────────────────────────────────────
	var source catalog.Catalog = catalog.NewGraphQLClient(cfg.CatalogURL, cfg.CatalogTimeout, log)
	source = catalog.NewCachedCatalog(source, rdb, cfg.CatalogCacheTTL, log)
	resolver := catalog.NewResolver(source, cfg.CatalogListLimit, cfg.CatalogSearchMax, cfg.CatalogTimeout, log)
	enricher := enrichment.NewEnricher(source, problemRepo, cfg.TargetLanguage, cfg.CatalogTimeout, log)

	completer := llm.Unconfigured()
	if cfg.LLMAPIKey != "" {
		completer = llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, log)
	} else {
		log.Warn().Msg("LLM_API_KEY not set, guidance falls back to canned replies")
	}
	engine := guidance.NewEngine(completer, log)

	// A nil *ElevenLabs stored in the interface would not compare equal to
	// nil, so the synthesizer is only set when a key is present.
	var synth narration.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		synth = narration.NewElevenLabs(cfg.ElevenLabsURL, cfg.ElevenLabsAPIKey, cfg.TTSTimeout)
	} else {
		log.Warn().Msg("ELEVENLABS_API_KEY not set, narration disabled")
	}
	narrator := narration.NewCache(synth, cfg.DefaultVoiceID, cfg.TTSTimeout, log)

	// ─── Session Event Transport ───────────────────────────────────────
	hub := transport.NewHub(hubBuffer, log)
	bridge := transport.NewRedisBridge(rdb, hub, log)
	if err := bridge.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start session event forwarder")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg.JWTSecret)
	interviews := interview.NewService(interview.Deps{
		Sessions:    sessionRepo,
		Transcripts: transcriptRepo,
		Assignments: assignmentRepo,
		Problems:    problemRepo,
		Resolver:    resolver,
		Enricher:    enricher,
		Guide:       engine,
		Feedback:    worker.NewFeedbackQueue(rdb),
		Events:      bridge,
	}, cfg.SessionIdleTimeout, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	handlers := &router.Handlers{
		Interview: handler.NewInterviewHandler(interviews, log),
		Narration: handler.NewNarrationHandler(narrator, log),
		WS:        handler.NewWSHandler(interviews, hub, limiter, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	feedbackWorker := worker.NewFeedbackWorker(
		rdb, sessionRepo, transcriptRepo, problemRepo, engine, bridge, cfg.FeedbackTimeout, log,
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		feedbackWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg)

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

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Let queued session commands finish so their turns are persisted.
	if err := interviews.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Session workers did not drain in time")
	}

	// 3. Stop the feedback worker; a job in progress runs to completion.
	workerCancel()
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Feedback worker did not stop in time")
	}

	cancel()
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
