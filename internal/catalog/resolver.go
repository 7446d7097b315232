package catalog

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/interview-backend/internal/metrics"
)

// Tier names the rung of the fallback ladder that produced a problem.
type Tier string

const (
	TierNamed           Tier = "named"
	TierExact           Tier = "exact"
	TierRelaxTopic      Tier = "relax-topic"
	TierRelaxDifficulty Tier = "relax-difficulty"
)

// Criteria describes what the candidate asked for. Only the first topic
// is used as a filter. Exclude holds catalog ids already assigned.
type Criteria struct {
	Difficulty  string
	Topics      []string
	ProblemName string
	Exclude     []string
}

func (c Criteria) primaryTopic() string {
	if len(c.Topics) == 0 {
		return ""
	}
	return c.Topics[0]
}

// Resolution is a resolved problem and the tier that found it.
type Resolution struct {
	Problem ProblemSummary
	Tier    Tier
}

type tierFunc func(ctx context.Context, c Criteria, exclude map[string]struct{}) (ProblemSummary, bool)

type tier struct {
	name Tier
	run  tierFunc
}

// Resolver walks the fallback ladder: named request, exact filter,
// difficulty only, topic only. The first tier with a result wins.
type Resolver struct {
	catalog     Catalog
	listLimit   int
	searchLimit int
	timeout     time.Duration
	log         zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	tiers []tier
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithRand sets the source used to pick among equally good candidates.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

// NewResolver creates a Resolver. listLimit bounds filtered listings and
// searchLimit bounds the listing scanned for a named request.
func NewResolver(c Catalog, listLimit, searchLimit int, timeout time.Duration, log zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:     c,
		listLimit:   listLimit,
		searchLimit: searchLimit,
		timeout:     timeout,
		log:         log.With().Str("component", "catalog_resolver").Logger(),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tiers = []tier{
		{TierNamed, r.byName},
		{TierExact, r.exact},
		{TierRelaxTopic, r.difficultyOnly},
		{TierRelaxDifficulty, r.topicOnly},
	}
	return r
}

// Resolve returns the first problem any tier yields, or ErrNoCandidate.
// Upstream failures make a tier empty rather than failing the call.
func (r *Resolver) Resolve(ctx context.Context, c Criteria) (*Resolution, error) {
	exclude := make(map[string]struct{}, len(c.Exclude))
	for _, id := range c.Exclude {
		exclude[id] = struct{}{}
	}

	for _, t := range r.tiers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p, ok := t.run(ctx, c, exclude)
		if !ok {
			r.log.Debug().Str("tier", string(t.name)).Msg("Tier empty, falling through")
			continue
		}
		metrics.ResolverTier(string(t.name))
		r.log.Info().
			Str("tier", string(t.name)).
			Str("catalog_id", p.CatalogID).
			Str("title", p.Title).
			Msg("Problem resolved")
		return &Resolution{Problem: p, Tier: t.name}, nil
	}
	return nil, ErrNoCandidate
}

// byName matches the requested title exactly, then as a substring, then
// by slug. Exclusions do not apply: a candidate may ask for a repeat.
func (r *Resolver) byName(ctx context.Context, c Criteria, _ map[string]struct{}) (ProblemSummary, bool) {
	name := strings.ToLower(strings.TrimSpace(c.ProblemName))
	if name == "" {
		return ProblemSummary{}, false
	}
	problems, ok := r.list(ctx, ListFilter{Limit: r.searchLimit})
	if !ok {
		return ProblemSummary{}, false
	}
	return MatchName(problems, name)
}

// MatchName applies the exact, substring, slug cascade to problems.
func MatchName(problems []ProblemSummary, name string) (ProblemSummary, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range problems {
		if strings.ToLower(p.Title) == name {
			return p, true
		}
	}
	for _, p := range problems {
		if strings.Contains(strings.ToLower(p.Title), name) {
			return p, true
		}
	}
	slug := strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	for _, p := range problems {
		if strings.ToLower(p.Slug) == slug {
			return p, true
		}
	}
	return ProblemSummary{}, false
}

func (r *Resolver) exact(ctx context.Context, c Criteria, exclude map[string]struct{}) (ProblemSummary, bool) {
	if c.Difficulty == "" || c.primaryTopic() == "" {
		return ProblemSummary{}, false
	}
	return r.pickFrom(ctx, ListFilter{Difficulty: c.Difficulty, Topic: c.primaryTopic(), Limit: r.listLimit}, exclude)
}

func (r *Resolver) difficultyOnly(ctx context.Context, c Criteria, exclude map[string]struct{}) (ProblemSummary, bool) {
	if c.Difficulty == "" {
		return ProblemSummary{}, false
	}
	return r.pickFrom(ctx, ListFilter{Difficulty: c.Difficulty, Limit: r.listLimit}, exclude)
}

func (r *Resolver) topicOnly(ctx context.Context, c Criteria, exclude map[string]struct{}) (ProblemSummary, bool) {
	if c.primaryTopic() == "" {
		return ProblemSummary{}, false
	}
	return r.pickFrom(ctx, ListFilter{Topic: c.primaryTopic(), Limit: r.listLimit}, exclude)
}

func (r *Resolver) pickFrom(ctx context.Context, f ListFilter, exclude map[string]struct{}) (ProblemSummary, bool) {
	problems, ok := r.list(ctx, f)
	if !ok {
		return ProblemSummary{}, false
	}

	eligible := problems[:0:0]
	for _, p := range problems {
		if _, seen := exclude[p.CatalogID]; !seen {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return ProblemSummary{}, false
	}

	r.mu.Lock()
	i := r.rng.IntN(len(eligible))
	r.mu.Unlock()
	return eligible[i], true
}

func (r *Resolver) list(ctx context.Context, f ListFilter) ([]ProblemSummary, bool) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	problems, err := r.catalog.ListProblems(callCtx, f)
	if err != nil {
		r.log.Warn().Err(err).
			Str("difficulty", f.Difficulty).
			Str("topic", f.Topic).
			Msg("Catalog listing failed")
		return nil, false
	}
	return problems, len(problems) > 0
}
