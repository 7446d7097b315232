package model

import (
	"time"

	"github.com/google/uuid"
)

// TurnRole identifies who produced a chat turn.
type TurnRole string

const (
	TurnRoleUser   TurnRole = "user"
	TurnRoleAgent  TurnRole = "agent"
	TurnRoleSystem TurnRole = "system"
)

// ChatTurn is one append-only transcript entry.
type ChatTurn struct {
	ID        int64     `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TestSummary is the client-reported result of running the test cases.
type TestSummary struct {
	Passed int `json:"passed" binding:"min=0"`
	Total  int `json:"total" binding:"min=0"`
}

// CodeSnapshot is one append-only code submission.
type CodeSnapshot struct {
	ID          int64        `json:"id"`
	SessionID   uuid.UUID    `json:"session_id"`
	Code        string       `json:"code"`
	Language    string       `json:"language"`
	TestSummary *TestSummary `json:"test_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
