package enrichment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/repository"
)

type memoryStore struct {
	mu       sync.Mutex
	byID     map[string]*model.Problem
	nextID   int64
	upserts  int
	sigCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: make(map[string]*model.Problem)}
}

func (s *memoryStore) GetByCatalogID(_ context.Context, catalogID string) (*model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[catalogID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) Upsert(_ context.Context, p *model.Problem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if existing, ok := s.byID[p.CatalogID]; ok {
		p.ID = existing.ID
	} else {
		s.nextID++
		p.ID = s.nextID
	}
	cp := *p
	s.byID[p.CatalogID] = &cp
	return nil
}

func (s *memoryStore) UpdateSignature(_ context.Context, id int64, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigCalls++
	for _, p := range s.byID {
		if p.ID == id && p.FunctionSignature == "" {
			p.FunctionSignature = signature
			return nil
		}
	}
	return repository.ErrNotFound
}

type detailCatalog struct {
	mu      sync.Mutex
	details map[string]*catalog.RawDetail
	fetches int
}

func (c *detailCatalog) ListProblems(context.Context, catalog.ListFilter) ([]catalog.ProblemSummary, error) {
	return nil, nil
}

func (c *detailCatalog) FetchDetail(_ context.Context, slug string) (*catalog.RawDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	d, ok := c.details[slug]
	if !ok {
		return nil, catalog.ErrUpstream
	}
	return d, nil
}

var twoSum = catalog.ProblemSummary{
	CatalogID:  "1",
	Title:      "Two Sum",
	Slug:       "two-sum",
	Difficulty: "Easy",
	Topics:     []string{"array", "hash-table"},
}

func twoSumDetail() *catalog.RawDetail {
	return &catalog.RawDetail{
		Content:          preContent,
		ExampleTestcases: "[2,7,11,15]\n9\n[3,2,4]\n6",
		Snippets:         []catalog.CodeSnippet{{Lang: "Python3", LangSlug: "python3", Code: twoSumSnippet}},
		Hints:            []string{"Try a <code>hash map</code>."},
	}
}

func TestEnrichBuildsAndStoresOnce(t *testing.T) {
	store := newMemoryStore()
	cat := &detailCatalog{details: map[string]*catalog.RawDetail{"two-sum": twoSumDetail()}}
	e := NewEnricher(cat, store, "python3", time.Second, zerolog.Nop())

	p, err := e.Enrich(context.Background(), twoSum)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "easy", p.Difficulty)
	assert.Equal(t, twoSumSnippet, p.FunctionSignature)
	assert.Len(t, p.Examples, 2)
	assert.Equal(t, []string{"Try a hash map."}, p.Hints)
	require.Len(t, p.TestCases, 2)
	assert.Equal(t, "nums = [2,7,11,15]\ntarget = 9", p.TestCases[0].Input)

	again, err := e.Enrich(context.Background(), twoSum)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, p.TestCases, again.TestCases)
	assert.Equal(t, 1, cat.fetches)
	assert.Equal(t, 1, store.upserts)
}

func TestEnrichConcurrentCallsFetchOnce(t *testing.T) {
	store := newMemoryStore()
	cat := &detailCatalog{details: map[string]*catalog.RawDetail{"two-sum": twoSumDetail()}}
	e := NewEnricher(cat, store, "python3", time.Second, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Enrich(context.Background(), twoSum)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cat.fetches)
	assert.Equal(t, 1, store.upserts)
}

func TestEnrichFetchFailure(t *testing.T) {
	store := newMemoryStore()
	e := NewEnricher(&detailCatalog{}, store, "python3", time.Second, zerolog.Nop())

	_, err := e.Enrich(context.Background(), twoSum)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Zero(t, store.upserts)
}

func TestEnrichBackfillsMissingSignatureOnce(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), &model.Problem{
		CatalogID:   "1",
		Title:       "Two Sum",
		Slug:        "two-sum",
		Description: "Given nums and a target, return indices.",
	}))
	cat := &detailCatalog{details: map[string]*catalog.RawDetail{"two-sum": twoSumDetail()}}
	e := NewEnricher(cat, store, "python3", time.Second, zerolog.Nop())

	p, err := e.Enrich(context.Background(), twoSum)
	require.NoError(t, err)
	assert.Equal(t, twoSumSnippet, p.FunctionSignature)

	_, err = e.Enrich(context.Background(), twoSum)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.fetches)
	assert.Equal(t, 1, store.sigCalls)
}

func TestEnrichBackfillWithoutCatalog(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), &model.Problem{
		CatalogID: "9",
		Title:     "Palindrome Number",
		Slug:      "palindrome-number",
	}))
	e := NewEnricher(&detailCatalog{}, store, "python3", time.Second, zerolog.Nop())

	p, err := e.Enrich(context.Background(), catalog.ProblemSummary{CatalogID: "9", Slug: "palindrome-number"})
	require.NoError(t, err)
	assert.Contains(t, p.FunctionSignature, "def palindromenumber(self, input):")
}
