// Package llm is the reasoning collaborator: free-text completions from an
// OpenAI-compatible chat endpoint.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("reasoning service not configured")

// Completer produces a completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ProviderError is a classified failure of the reasoning provider.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Error codes shared by providers.
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

type unconfigured struct{}

func (unconfigured) Complete(context.Context, string, float32) (string, error) {
	return "", ErrNotConfigured
}

// Unconfigured returns a Completer that always fails with ErrNotConfigured.
func Unconfigured() Completer { return unconfigured{} }
