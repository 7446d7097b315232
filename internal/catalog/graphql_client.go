package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/interview-backend/internal/metrics"
)

const listQuery = `query problemsetQuestionList($categorySlug: String, $limit: Int, $skip: Int, $filters: QuestionListFilterInput) {
  problemsetQuestionList: questionList(categorySlug: $categorySlug, limit: $limit, skip: $skip, filters: $filters) {
    questions: data {
      difficulty
      frontendQuestionId: questionFrontendId
      paidOnly: isPaidOnly
      title
      titleSlug
      topicTags { name slug }
    }
  }
}`

const detailQuery = `query questionContent($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    content
    exampleTestcases
    hints
    codeSnippets { lang langSlug code }
  }
}`

// GraphQLClient reads a LeetCode-style GraphQL catalog.
type GraphQLClient struct {
	url   string
	http  *http.Client
	log   zerolog.Logger
	agent string
}

// NewGraphQLClient creates a client with a bounded per-request timeout.
func NewGraphQLClient(url string, timeout time.Duration, log zerolog.Logger) *GraphQLClient {
	return &GraphQLClient{
		url:   url,
		http:  &http.Client{Timeout: timeout},
		log:   log.With().Str("component", "catalog_client").Logger(),
		agent: "Mozilla/5.0 (compatible; interview-backend/1.0)",
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type listResponse struct {
	Data struct {
		List struct {
			Questions []struct {
				Difficulty string `json:"difficulty"`
				ID         string `json:"frontendQuestionId"`
				PaidOnly   bool   `json:"paidOnly"`
				Title      string `json:"title"`
				Slug       string `json:"titleSlug"`
				Tags       []struct {
					Name string `json:"name"`
					Slug string `json:"slug"`
				} `json:"topicTags"`
			} `json:"questions"`
		} `json:"problemsetQuestionList"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

type detailResponse struct {
	Data struct {
		Question *RawDetail `json:"question"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// ListProblems lists free problems. Difficulty is filtered upstream, topic
// is matched locally against tag slugs and names.
func (c *GraphQLClient) ListProblems(ctx context.Context, f ListFilter) ([]ProblemSummary, error) {
	filters := map[string]any{}
	if d := strings.ToUpper(strings.TrimSpace(f.Difficulty)); d != "" {
		filters["difficulty"] = d
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var resp listResponse
	err := c.post(ctx, gqlRequest{
		Query: listQuery,
		Variables: map[string]any{
			"categorySlug": "",
			"limit":        limit,
			"skip":         0,
			"filters":      filters,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Errors[0].Message)
	}

	out := make([]ProblemSummary, 0, len(resp.Data.List.Questions))
	for _, q := range resp.Data.List.Questions {
		if q.PaidOnly {
			continue
		}
		p := ProblemSummary{
			CatalogID:  q.ID,
			Title:      q.Title,
			Slug:       q.Slug,
			Difficulty: strings.ToLower(q.Difficulty),
		}
		for _, t := range q.Tags {
			p.Topics = append(p.Topics, t.Slug)
			p.TopicNames = append(p.TopicNames, t.Name)
		}
		if f.Topic != "" && !p.HasTopic(f.Topic) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FetchDetail returns the raw body of one problem.
func (c *GraphQLClient) FetchDetail(ctx context.Context, slug string) (*RawDetail, error) {
	var resp detailResponse
	err := c.post(ctx, gqlRequest{
		Query:     detailQuery,
		Variables: map[string]any{"titleSlug": slug},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Errors[0].Message)
	}
	if resp.Data.Question == nil {
		return nil, fmt.Errorf("%w: problem %q not found", ErrUpstream, slug)
	}
	return resp.Data.Question, nil
}

func (c *GraphQLClient) post(ctx context.Context, body gqlRequest, out any) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveUpstream(metrics.Catalog, started, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		c.log.Warn().Int("status", res.StatusCode).Msg("Catalog returned non-200")
		return fmt.Errorf("%w: status %d", ErrUpstream, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}
