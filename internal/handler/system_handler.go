package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/response"
)

const dependencyPingTimeout = 2 * time.Second

// SystemHandler reports liveness and dependency readiness.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

type dependencyStatus struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

type systemStatus struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	Dependencies  dependencyStatus `json:"dependencies"`
	FeedbackQueue int64            `json:"feedback_queue_length"`
	Goroutines    int              `json:"goroutines"`
	HeapAlloc     uint64           `json:"heap_alloc"`
	GoVersion     string           `json:"go_version"`
}

// Ready godoc
// GET /ready
// Pings PostgreSQL and Redis; 503 when either is unreachable.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dependencyPingTimeout)
	defer cancel()

	st := systemStatus{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Dependencies: dependencyStatus{Postgres: "ok", Redis: "ok"},
		Goroutines:   runtime.NumGoroutine(),
		GoVersion:    runtime.Version(),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	st.HeapAlloc = mem.HeapAlloc

	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("PostgreSQL ping failed")
		st.Status, st.Dependencies.Postgres = "degraded", "unreachable"
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis ping failed")
		st.Status, st.Dependencies.Redis = "degraded", "unreachable"
	} else {
		st.FeedbackQueue, _ = h.rdb.LLen(ctx, config.WorkerKey.GenerateFeedbackQueue).Result()
	}

	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, st)
}
