package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/interview-backend/internal/config"
)

// CachedCatalog is a read-through Redis cache over catalog listings.
// Failed listings are never cached; details pass straight through since
// the enrichment store already persists them.
type CachedCatalog struct {
	next Catalog
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedCatalog wraps next with a listing cache.
func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "catalog_cache").Logger(),
	}
}

// ListProblems serves from Redis when possible.
func (c *CachedCatalog) ListProblems(ctx context.Context, f ListFilter) ([]ProblemSummary, error) {
	key := config.CacheKey.CatalogListKey(f.Difficulty, f.Topic, f.Limit)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []ProblemSummary
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding corrupt catalog cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("Catalog cache read failed")
	}

	problems, err := c.next.ListProblems(ctx, f)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(problems); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("Catalog cache write failed")
		}
	}
	return problems, nil
}

// FetchDetail is not cached.
func (c *CachedCatalog) FetchDetail(ctx context.Context, slug string) (*RawDetail, error) {
	return c.next.FetchDetail(ctx, slug)
}
