// Package catalog talks to the external problem catalog and picks the
// problem to present for a set of search criteria.
package catalog

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoCandidate is returned when every resolution tier came up empty.
	ErrNoCandidate = errors.New("no problem matches the criteria")
	// ErrUpstream wraps failures of the catalog service itself.
	ErrUpstream = errors.New("catalog service unavailable")
)

// ProblemSummary is a catalog listing entry.
type ProblemSummary struct {
	CatalogID  string   `json:"catalog_id"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Difficulty string   `json:"difficulty"`
	Topics     []string `json:"topics"`
	TopicNames []string `json:"topic_names,omitempty"`
	PaidOnly   bool     `json:"paid_only,omitempty"`
}

// HasTopic reports whether topic, singularised, is a case-insensitive
// substring of one of the problem's tag slugs or names, so "arrays" matches
// the "array" tag.
func (p ProblemSummary) HasTopic(topic string) bool {
	t := strings.TrimSuffix(strings.ToLower(topic), "s")
	for _, s := range p.Topics {
		if strings.Contains(strings.ToLower(s), t) {
			return true
		}
	}
	for _, n := range p.TopicNames {
		if strings.Contains(strings.ToLower(n), t) {
			return true
		}
	}
	return false
}

// CodeSnippet is the catalog's starter code for one language.
type CodeSnippet struct {
	Lang     string `json:"lang"`
	LangSlug string `json:"langSlug"`
	Code     string `json:"code"`
}

// RawDetail is the unparsed problem body.
type RawDetail struct {
	Content          string        `json:"content"`
	ExampleTestcases string        `json:"exampleTestcases"`
	Snippets         []CodeSnippet `json:"codeSnippets"`
	Hints            []string      `json:"hints"`
}

// Snippet returns the snippet for langSlug, if any.
func (d *RawDetail) Snippet(langSlug string) (string, bool) {
	for _, s := range d.Snippets {
		if strings.EqualFold(s.LangSlug, langSlug) || strings.EqualFold(s.Lang, langSlug) {
			if strings.TrimSpace(s.Code) != "" {
				return s.Code, true
			}
		}
	}
	return "", false
}

// ListFilter narrows a catalog listing. Empty fields do not filter.
type ListFilter struct {
	Difficulty string
	Topic      string
	Limit      int
}

// Catalog is the external problem source.
type Catalog interface {
	ListProblems(ctx context.Context, f ListFilter) ([]ProblemSummary, error)
	FetchDetail(ctx context.Context, slug string) (*RawDetail, error)
}
