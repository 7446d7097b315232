package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates interview session states.
type SessionStatus string

const (
	SessionStatusPreparing SessionStatus = "preparing"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// Session is one candidate's interview.
type Session struct {
	ID                   uuid.UUID     `json:"id"`
	CandidateID          int           `json:"candidate_id"`
	Status               SessionStatus `json:"status"`
	ProblemID            *int64        `json:"problem_id,omitempty"`
	DifficultyPreference string        `json:"difficulty_preference,omitempty"`
	TopicPreferences     []string      `json:"topic_preferences"`
	ProblemNameRequest   string        `json:"problem_name_request,omitempty"`
	StartedAt            time.Time     `json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	Feedback             string        `json:"feedback,omitempty"`
}

// Duration returns how long the session ran, or has run so far.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return end.Sub(s.StartedAt)
}

// Assignment links a candidate to a problem they have been given.
// Unique per (candidate, problem); SessionID tracks the latest session.
type Assignment struct {
	CandidateID int       `json:"candidate_id"`
	ProblemID   int64     `json:"problem_id"`
	SessionID   uuid.UUID `json:"session_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// ─── Request DTOs ───────────────────────────────────────────────────

// ChatMessageRequest is the payload for a candidate chat message.
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required,nonblank,max=4000"`
}

// SubmitCodeRequest is the payload for a code submission.
type SubmitCodeRequest struct {
	Code        string       `json:"code" binding:"required,max=100000"`
	Language    string       `json:"language" binding:"omitempty,language"`
	TestSummary *TestSummary `json:"test_results,omitempty"`
}

// HintRequest is the payload for a hint request; level is 1-based.
type HintRequest struct {
	Level int `json:"hint_level" binding:"omitempty,min=1,max=50"`
}

// CodeAnalysisRequest is the payload for an on-demand code review.
type CodeAnalysisRequest struct {
	Code        string       `json:"code" binding:"required,max=100000"`
	TestSummary *TestSummary `json:"test_results,omitempty"`
}

// NarrationRequest asks for speech synthesis of an agent message.
type NarrationRequest struct {
	Text    string `json:"text" binding:"required,nonblank,max=5000"`
	VoiceID string `json:"voice_id" binding:"omitempty,alphanum,max=64"`
}
