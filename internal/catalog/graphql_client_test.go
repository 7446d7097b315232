package catalog

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

const listBody = `{"data":{"problemsetQuestionList":{"questions":[
 {"difficulty":"Easy","frontendQuestionId":"1","paidOnly":false,"title":"Two Sum","titleSlug":"two-sum",
  "topicTags":[{"name":"Array","slug":"array"},{"name":"Hash Table","slug":"hash-table"}]},
 {"difficulty":"Easy","frontendQuestionId":"2","paidOnly":true,"title":"Paid","titleSlug":"paid","topicTags":[]},
 {"difficulty":"Easy","frontendQuestionId":"14","paidOnly":false,"title":"Longest Common Prefix","titleSlug":"longest-common-prefix",
  "topicTags":[{"name":"String","slug":"string"}]}
]}}}`

func TestGraphQLListProblems(t *testing.T) {
	var got gqlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := NewGraphQLClient(srv.URL, time.Second, zerolog.Nop())
	problems, err := c.ListProblems(context.Background(), ListFilter{Difficulty: "easy", Topic: "array", Limit: 10})
	require.NoError(t, err)

	require.Len(t, problems, 1)
	assert.Equal(t, "1", problems[0].CatalogID)
	assert.Equal(t, "easy", problems[0].Difficulty)
	assert.Equal(t, []string{"array", "hash-table"}, problems[0].Topics)

	filters, ok := got.Variables["filters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EASY", filters["difficulty"])
	assert.EqualValues(t, 10, got.Variables["limit"])
}

func TestGraphQLListDropsPaidOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listBody))
	}))
	defer srv.Close()

	c := NewGraphQLClient(srv.URL, time.Second, zerolog.Nop())
	problems, err := c.ListProblems(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, problems, 2)
	for _, p := range problems {
		assert.NotEqual(t, "2", p.CatalogID)
	}
}

func TestGraphQLFetchDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"question":{"content":"<p>Body</p>","exampleTestcases":"[1]\n1",
			"hints":["Use a map."],"codeSnippets":[{"lang":"Python3","langSlug":"python3","code":"class Solution:\n    pass"}]}}}`))
	}))
	defer srv.Close()

	c := NewGraphQLClient(srv.URL, time.Second, zerolog.Nop())
	d, err := c.FetchDetail(context.Background(), "two-sum")
	require.NoError(t, err)
	assert.Equal(t, "<p>Body</p>", d.Content)
	assert.Equal(t, []string{"Use a map."}, d.Hints)

	code, ok := d.Snippet("python3")
	assert.True(t, ok)
	assert.Contains(t, code, "class Solution")
}

func TestGraphQLUpstreamErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewGraphQLClient(srv.URL, time.Second, zerolog.Nop()).ListProblems(context.Background(), ListFilter{})
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("missing question", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"question":null}}`))
		}))
		defer srv.Close()

		_, err := NewGraphQLClient(srv.URL, time.Second, zerolog.Nop()).FetchDetail(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := NewGraphQLClient(srv.URL, 20*time.Millisecond, zerolog.Nop()).FetchDetail(context.Background(), "slow")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}
