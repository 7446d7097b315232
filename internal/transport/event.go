// Package transport fans session events out to every connection attached
// to a session, in publish order.
package transport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/interview-backend/internal/model"
)

// EventType names a server-to-client event.
type EventType string

const (
	EventChatMessage     EventType = "chat_message"
	EventCodeSubmitted   EventType = "code_submission"
	EventProblemAssigned EventType = "problem_assigned"
	EventStatusChanged   EventType = "session_status"
	EventFeedbackReady   EventType = "feedback_ready"
)

// Event is one broadcast to a session's group.
type Event struct {
	Type        EventType          `json:"type"`
	SessionID   uuid.UUID          `json:"session_id"`
	Role        model.TurnRole     `json:"role,omitempty"`
	Text        string             `json:"text,omitempty"`
	Code        string             `json:"code,omitempty"`
	Language    string             `json:"language,omitempty"`
	TestSummary *model.TestSummary `json:"test_results,omitempty"`
	Status      string             `json:"status,omitempty"`
	Problem     *model.Problem     `json:"problem,omitempty"`
	At          time.Time          `json:"at"`
}

// Publisher delivers an event to a session's group.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, ev Event) error
}
