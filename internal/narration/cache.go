package narration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/metrics"
)

// ErrUnavailable is returned when no synthesizer is configured.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Voice describes one synthesizer voice.
type Voice struct {
	ID       string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Synthesizer is the external speech service.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	Voices(ctx context.Context) ([]Voice, error)
}

// Stats summarises the cache contents.
type Stats struct {
	Entries    int      `json:"cache_size"`
	Bytes      int      `json:"cache_bytes"`
	SampleKeys []string `json:"cache_keys"`
}

const sampleKeys = 5

// Cache stores synthesized audio in memory keyed by normalized text and
// voice. It grows until cleared. Concurrent misses on the same key may
// synthesize twice; the last write wins.
type Cache struct {
	synth        Synthesizer
	defaultVoice string
	timeout      time.Duration
	log          zerolog.Logger

	mu      sync.RWMutex
	entries map[string][]byte
}

// NewCache creates a Cache. A nil synth makes every synthesis report
// ErrUnavailable.
func NewCache(synth Synthesizer, defaultVoice string, timeout time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		synth:        synth,
		defaultVoice: defaultVoice,
		timeout:      timeout,
		log:          log.With().Str("component", "narration").Logger(),
		entries:      make(map[string][]byte),
	}
}

// Available reports whether a synthesizer is configured.
func (c *Cache) Available() bool {
	return c.synth != nil
}

// Synthesize returns audio for text, from the cache when possible. hit
// reports whether the synthesizer was skipped.
func (c *Cache) Synthesize(ctx context.Context, text, voiceID string) (audio []byte, hit bool, err error) {
	if c.synth == nil {
		return nil, false, ErrUnavailable
	}
	if voiceID == "" {
		voiceID = c.defaultVoice
	}

	normalized := Normalize(text)
	key := Key(normalized, voiceID)

	c.mu.RLock()
	audio, ok := c.entries[key]
	c.mu.RUnlock()
	metrics.NarrationHit(ok)
	if ok {
		c.log.Debug().Str("key", key).Msg("Narration cache hit")
		return audio, true, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	audio, err = c.synth.Synthesize(callCtx, normalized, voiceID)
	metrics.ObserveUpstream(metrics.Synthesis, started, err)
	if err != nil {
		return nil, false, fmt.Errorf("synthesize narration: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug().Str("key", key).Int("entries", size).Msg("Narration cached")
	return audio, false, nil
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
	c.log.Info().Msg("Narration cache cleared")
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Entries: len(c.entries), SampleKeys: []string{}}
	keys := make([]string, 0, len(c.entries))
	for k, v := range c.entries {
		s.Bytes += len(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > sampleKeys {
		keys = keys[:sampleKeys]
	}
	s.SampleKeys = append(s.SampleKeys, keys...)
	return s
}

// Voices lists the synthesizer's voices. Failures yield an empty list.
func (c *Cache) Voices(ctx context.Context) []Voice {
	if c.synth == nil {
		return []Voice{}
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	voices, err := c.synth.Voices(callCtx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to list voices")
		return []Voice{}
	}
	return voices
}
