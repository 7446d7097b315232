package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/config"
)

// RedisBridge publishes session events through Redis so every instance
// with subscribers for a session receives them, and forwards what it
// receives into the local hub.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
	log zerolog.Logger
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		rdb: rdb,
		hub: hub,
		log: log.With().Str("component", "transport_bridge").Logger(),
	}
}

// Publish sends ev on the session's channel. Local subscribers receive it
// when the forwarder reads it back.
func (b *RedisBridge) Publish(ctx context.Context, sessionID uuid.UUID, ev Event) error {
	ev.SessionID = sessionID
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, config.CacheKey.SessionEventsChannel(sessionID.String()), raw).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Start subscribes to every session channel and forwards messages until
// ctx is cancelled. It returns once the subscription is confirmed.
func (b *RedisBridge) Start(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, config.CacheKey.SessionEventsPattern())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe session events: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				b.forward(m)
			}
		}
	}()

	b.log.Info().Str("pattern", config.CacheKey.SessionEventsPattern()).Msg("Session event forwarder started")
	return nil
}

func (b *RedisBridge) forward(m *redis.Message) {
	raw, ok := config.CacheKey.SessionIDFromChannel(m.Channel)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		b.log.Warn().Str("channel", m.Channel).Msg("Event on malformed session channel")
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
		b.log.Warn().Err(err).Str("channel", m.Channel).Msg("Bad session event payload")
		return
	}
	b.hub.Deliver(sessionID, ev)
}
