package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	got := map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	srv, got := chatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Think about a hash map.  "},"finish_reason":"stop"}]}`)

	c := NewOpenAIClient("key", srv.URL+"/v1", "gpt-4o-mini", time.Second, zerolog.Nop())
	text, err := c.Complete(context.Background(), "help me", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "Think about a hash map.", text)

	assert.Equal(t, "gpt-4o-mini", (*got)["model"])
	messages, ok := (*got)["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, ErrCodeAPIKey},
		{http.StatusTooManyRequests, ErrCodeRateLimit},
		{http.StatusBadRequest, ErrCodeInvalidInput},
		{http.StatusBadGateway, ErrCodeServiceDown},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv, _ := chatServer(t, tc.status, `{"error":{"message":"nope","type":"error"}}`)
			c := NewOpenAIClient("key", srv.URL+"/v1", "gpt-4o-mini", time.Second, zerolog.Nop())

			_, err := c.Complete(context.Background(), "x", 0.5)
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.code, perr.Code)
		})
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, `{"choices":[]}`)
	c := NewOpenAIClient("key", srv.URL+"/v1", "gpt-4o-mini", time.Second, zerolog.Nop())

	_, err := c.Complete(context.Background(), "x", 0.5)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeInvalidInput, perr.Code)
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", srv.URL+"/v1", "gpt-4o-mini", 30*time.Millisecond, zerolog.Nop())
	_, err := c.Complete(context.Background(), "x", 0.5)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrCodeTimeout, perr.Code)
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured().Complete(context.Background(), "x", 0.5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
