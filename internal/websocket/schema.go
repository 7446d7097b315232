package websocket

import (
	"encoding/json"

	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/transport"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionChatMessage    Action = "chat_message"
	ActionCodeSubmission Action = "code_submission"
	ActionRequestHint    Action = "request_hint"
	ActionAnalyzeCode    Action = "analyze_code"
	ActionEndInterview   Action = "end_interview"
	ActionPing           Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
// Action fields sit next to the payload fields, so the raw frame is
// decoded a second time into the DTO matching the action.
type RequestEnvelope struct {
	Action Action          `json:"action"`
	Raw    json.RawMessage `json:"-"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventPong      Event = "pong"
	EventConnected Event = "connected"
	EventAck       Event = "ack"
)

// ConnectedResponse is sent once after the upgrade with the session state.
type ConnectedResponse struct {
	Event   Event          `json:"event"`
	Session *model.Session `json:"session"`
	Problem *model.Problem `json:"problem,omitempty"`
}

// AckResponse confirms a processed action. The agent reply itself arrives
// as a broadcast chat_message event.
type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
	Status string `json:"status"`
}

// BroadcastResponse wraps a session event fanned out to every connection.
type BroadcastResponse struct {
	Event Event           `json:"event"`
	Data  transport.Event `json:"data"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
