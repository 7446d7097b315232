package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBuffer is the outbound queue length of each subscription.
const DefaultBuffer = 64

// Hub holds one broadcast group per session on this instance.
type Hub struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*group
	buffer int
	log    zerolog.Logger
}

type group struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one attached connection. C is closed when the
// subscription ends, either by Close or because it fell behind.
type Subscription struct {
	C <-chan Event

	ch        chan Event
	sessionID uuid.UUID
	hub       *Hub
	once      sync.Once
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		groups: make(map[uuid.UUID]*group),
		buffer: buffer,
		log:    log.With().Str("component", "transport_hub").Logger(),
	}
}

// Subscribe attaches a new subscriber to the session's group.
func (h *Hub) Subscribe(sessionID uuid.UUID) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, sessionID: sessionID, hub: h}

	h.mu.Lock()
	g, ok := h.groups[sessionID]
	if !ok {
		g = &group{subs: make(map[*Subscription]struct{})}
		h.groups[sessionID] = g
	}
	g.mu.Lock()
	g.subs[sub] = struct{}{}
	g.mu.Unlock()
	h.mu.Unlock()

	return sub
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.detach(s)
}

// Publish delivers locally; a Hub is its own Publisher on a single
// instance.
func (h *Hub) Publish(_ context.Context, sessionID uuid.UUID, ev Event) error {
	h.Deliver(sessionID, ev)
	return nil
}

// Deliver hands ev to every subscriber of the session. Delivery holds the
// group lock so all subscribers observe the same order. A subscriber whose
// queue is full is detached instead of losing events silently.
func (h *Hub) Deliver(sessionID uuid.UUID, ev Event) {
	h.mu.Lock()
	g, ok := h.groups[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}

	var slow []*Subscription
	g.mu.Lock()
	for sub := range g.subs {
		select {
		case sub.ch <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	g.mu.Unlock()

	for _, sub := range slow {
		h.log.Warn().Str("session_id", sessionID.String()).Msg("Detaching slow subscriber")
		h.detach(sub)
	}
}

// Subscribers returns how many subscribers the session has here.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[sessionID]
	if !ok {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

func (h *Hub) detach(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		if g, ok := h.groups[sub.sessionID]; ok {
			g.mu.Lock()
			delete(g.subs, sub)
			empty := len(g.subs) == 0
			g.mu.Unlock()
			if empty {
				delete(h.groups, sub.sessionID)
			}
		}
		h.mu.Unlock()
		close(sub.ch)
	})
}
