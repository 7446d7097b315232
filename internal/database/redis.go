package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/config"
)

// NewRedisClient creates and validates a Redis client connection.
// Redis carries the catalog listing cache, the cross-instance session
// event bus and the feedback queue.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	// BLPop in the feedback worker blocks for up to a second per poll.
	opt.ReadTimeout = 5 * time.Second

	rdb := redis.NewClient(opt)

	err = retry(ctx, log, "ping redis", connectAttempts, connectBackoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}
