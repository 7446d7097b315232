package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CatalogListKey returns the cache key for a filtered catalog listing.
func (r *CacheKeyStruct) CatalogListKey(difficulty, topic string, limit int) string {
	return fmt.Sprintf("catalog:list:%s:%s:%d",
		strings.ToLower(difficulty), strings.ToLower(topic), limit)
}

// SessionEventsChannel returns the Redis PubSub channel carrying one session's events.
func (r *CacheKeyStruct) SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf("interview:session:%s:events", sessionID)
}

// SessionEventsPattern matches every session events channel.
func (r *CacheKeyStruct) SessionEventsPattern() string {
	return "interview:session:*:events"
}

// SessionIDFromChannel extracts the session id from a SessionEventsChannel name.
func (r *CacheKeyStruct) SessionIDFromChannel(channel string) (string, bool) {
	const prefix, suffix = "interview:session:", ":events"
	if !strings.HasPrefix(channel, prefix) || !strings.HasSuffix(channel, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(channel, prefix), suffix)
	return id, id != ""
}

var CacheKey = NewCacheKeyStruct()
