package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CATALOG_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "python3", cfg.TargetLanguage)
}

func TestParseOriginsEmptyAllowsAll(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
}

func TestSessionEventsChannelRoundTrip(t *testing.T) {
	ch := CacheKey.SessionEventsChannel("5d1c")
	assert.Equal(t, "interview:session:5d1c:events", ch)

	id, ok := CacheKey.SessionIDFromChannel(ch)
	assert.True(t, ok)
	assert.Equal(t, "5d1c", id)

	_, ok = CacheKey.SessionIDFromChannel("interview:session::events")
	assert.False(t, ok)
	_, ok = CacheKey.SessionIDFromChannel("other:5d1c:events")
	assert.False(t, ok)
}

func TestCatalogListKeyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, CacheKey.CatalogListKey("Easy", "Arrays", 100), CacheKey.CatalogListKey("easy", "arrays", 100))
}
