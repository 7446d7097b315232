package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/stemsi/interview-backend/internal/metrics"
)

const (
	providerName  = "openai"
	systemPersona = "You are a senior software engineer conducting a live coding interview. Be concise, encouraging and specific."
)

// OpenAIClient completes prompts through go-openai. BaseURL may point at
// any OpenAI-compatible server.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, log zerolog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     log.With().Str("component", "llm").Str("model", model).Logger(),
	}
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt string, temperature float32) (text string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := time.Now()
	defer func() { metrics.ObserveUpstream(metrics.Reasoning, started, err) }()

	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPersona},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		perr := classify(err)
		o.log.Warn().Err(err).Str("code", perr.Code).Msg("Completion failed")
		return "", perr
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: providerName, Code: ErrCodeInvalidInput, Message: "Empty response generated"}
	}
	o.log.Debug().Str("finish_reason", string(resp.Choices[0].FinishReason)).Msg("Completion received")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(err error) *ProviderError {
	perr := &ProviderError{Provider: providerName, Code: ErrCodeServiceDown, Message: "Completion request failed", Err: err}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		perr.Code, perr.Message = ErrCodeTimeout, "Completion timed out"
		return perr
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		perr.Code, perr.Message = ErrCodeAPIKey, "API key rejected"
	case http.StatusTooManyRequests:
		perr.Code, perr.Message = ErrCodeRateLimit, "Rate limit exceeded"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		perr.Code, perr.Message = ErrCodeInvalidInput, "Request rejected"
	}
	return perr
}
