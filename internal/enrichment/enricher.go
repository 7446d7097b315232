package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/repository"
)

// ErrFetchFailed is returned when a new problem's detail cannot be fetched.
var ErrFetchFailed = errors.New("problem detail unavailable")

// ProblemStore persists enriched problems keyed by catalog id.
type ProblemStore interface {
	GetByCatalogID(ctx context.Context, catalogID string) (*model.Problem, error)
	Upsert(ctx context.Context, p *model.Problem) error
	UpdateSignature(ctx context.Context, id int64, signature string) error
}

// Enricher caches enriched problems in the store. A stored problem is
// returned as-is apart from a one-time signature backfill.
type Enricher struct {
	catalog catalog.Catalog
	store   ProblemStore
	lang    string
	timeout time.Duration
	group   singleflight.Group
	log     zerolog.Logger
}

func NewEnricher(c catalog.Catalog, store ProblemStore, lang string, timeout time.Duration, log zerolog.Logger) *Enricher {
	return &Enricher{
		catalog: c,
		store:   store,
		lang:    lang,
		timeout: timeout,
		log:     log.With().Str("component", "enricher").Logger(),
	}
}

// Enrich returns the stored problem for s, building and persisting it on
// first sight. Concurrent calls for the same catalog id share one build.
func (e *Enricher) Enrich(ctx context.Context, s catalog.ProblemSummary) (*model.Problem, error) {
	v, err, _ := e.group.Do(s.CatalogID, func() (any, error) {
		return e.enrich(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Problem), nil
}

func (e *Enricher) enrich(ctx context.Context, s catalog.ProblemSummary) (*model.Problem, error) {
	existing, err := e.store.GetByCatalogID(ctx, s.CatalogID)
	switch {
	case err == nil:
		if strings.TrimSpace(existing.FunctionSignature) == "" {
			e.backfillSignature(ctx, existing)
		}
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load problem %s: %w", s.CatalogID, err)
	}

	detail, err := e.fetch(ctx, s.Slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, s.Slug, err)
	}

	p := Build(s, detail, e.lang)
	if err := e.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("store problem %s: %w", s.CatalogID, err)
	}

	e.log.Info().
		Str("catalog_id", p.CatalogID).
		Int64("problem_id", p.ID).
		Int("examples", len(p.Examples)).
		Int("test_cases", len(p.TestCases)).
		Msg("Problem enriched")
	return p, nil
}

// Build assembles a problem record from a listing entry and its detail.
func Build(s catalog.ProblemSummary, detail *catalog.RawDetail, lang string) *model.Problem {
	parsed := ParseContent(detail.Content)

	hints := make([]string, 0, len(detail.Hints))
	for _, h := range detail.Hints {
		if h = CleanHTML(h); h != "" {
			hints = append(hints, h)
		}
	}

	return &model.Problem{
		CatalogID:   s.CatalogID,
		Title:       s.Title,
		Slug:        s.Slug,
		Difficulty:  strings.ToLower(s.Difficulty),
		Topics:      s.Topics,
		Description: parsed.Description,
		Constraints: parsed.Constraints,
		Examples:    parsed.Examples,
		Hints:       hints,
		FunctionSignature: DeriveSignature(SignatureSource{
			Title:   s.Title,
			Content: detail.Content,
			Detail:  detail,
			Lang:    lang,
		}),
		TestCases: DeriveTestCases(TestCaseSource{
			Title:    s.Title,
			Examples: parsed.Examples,
			Detail:   detail,
			Lang:     lang,
		}),
	}
}

// backfillSignature fills a missing signature on a stored problem. The
// catalog snippet is preferred; without it the stored description is mined.
func (e *Enricher) backfillSignature(ctx context.Context, p *model.Problem) {
	src := SignatureSource{Title: p.Title, Content: p.Description, Lang: e.lang}
	if detail, err := e.fetch(ctx, p.Slug); err == nil {
		src.Detail = detail
		src.Content = detail.Content
	} else {
		e.log.Warn().Err(err).Str("catalog_id", p.CatalogID).Msg("Detail fetch failed during signature backfill")
	}

	p.FunctionSignature = DeriveSignature(src)
	if err := e.store.UpdateSignature(ctx, p.ID, p.FunctionSignature); err != nil {
		e.log.Warn().Err(err).Str("catalog_id", p.CatalogID).Msg("Failed to persist backfilled signature")
		return
	}
	e.log.Info().Str("catalog_id", p.CatalogID).Msg("Signature backfilled")
}

func (e *Enricher) fetch(ctx context.Context, slug string) (*catalog.RawDetail, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.catalog.FetchDetail(callCtx, slug)
}
