package interview

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/enrichment"
	"github.com/stemsi/interview-backend/internal/guidance"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/repository"
	"github.com/stemsi/interview-backend/internal/transport"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.Session
}

func (m *memSessions) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.StartedAt = time.Now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.TopicPreferences = slices.Clone(s.TopicPreferences)
	return &s, nil
}

func (m *memSessions) ListByCandidate(_ context.Context, candidateID, limit int) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.CandidateID == candidateID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Session) int { return b.StartedAt.Compare(a.StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) UpdatePreferences(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[s.ID]
	cur.DifficultyPreference = s.DifficultyPreference
	cur.TopicPreferences = slices.Clone(s.TopicPreferences)
	cur.ProblemNameRequest = s.ProblemNameRequest
	m.sessions[s.ID] = cur
	return nil
}

func (m *memSessions) BindProblem(_ context.Context, id uuid.UUID, problemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[id]
	if cur.ProblemID != nil || cur.Status != model.SessionStatusPreparing {
		return false, nil
	}
	cur.ProblemID = &problemID
	cur.Status = model.SessionStatusActive
	m.sessions[id] = cur
	return true, nil
}

func (m *memSessions) Complete(_ context.Context, id uuid.UUID, at time.Time, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[id]
	if cur.Status.Terminal() {
		return false, nil
	}
	cur.Status = model.SessionStatusCompleted
	cur.CompletedAt = &at
	cur.Feedback = feedback
	m.sessions[id] = cur
	return true, nil
}

func (m *memSessions) Cancel(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[id]
	if cur.Status.Terminal() {
		return false, nil
	}
	cur.Status = model.SessionStatusCancelled
	cur.CompletedAt = &at
	m.sessions[id] = cur
	return true, nil
}

func (m *memSessions) SetFeedback(_ context.Context, id uuid.UUID, feedback string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[id]
	if cur.Status != model.SessionStatusCompleted {
		return nil
	}
	cur.Feedback = feedback
	m.sessions[id] = cur
	return nil
}

type memTranscripts struct {
	mu     sync.Mutex
	nextID int64
	turns  []model.ChatTurn
	snaps  []model.CodeSnapshot
}

func (m *memTranscripts) AppendTurn(_ context.Context, t *model.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	m.turns = append(m.turns, *t)
	return nil
}

func (m *memTranscripts) ListTurns(_ context.Context, sessionID uuid.UUID) ([]model.ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatTurn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTranscripts) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]model.ChatTurn, error) {
	all, _ := m.ListTurns(ctx, sessionID)
	slices.Reverse(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memTranscripts) AppendSnapshot(_ context.Context, s *model.CodeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	m.snaps = append(m.snaps, *s)
	return nil
}

func (m *memTranscripts) LatestSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.CodeSnapshot, error) {
	all, _ := m.ListSnapshots(ctx, sessionID)
	if len(all) == 0 {
		return nil, repository.ErrNotFound
	}
	return &all[len(all)-1], nil
}

func (m *memTranscripts) ListSnapshots(_ context.Context, sessionID uuid.UUID) ([]model.CodeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CodeSnapshot
	for _, s := range m.snaps {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memProblems struct {
	mu       sync.Mutex
	nextID   int64
	problems map[int64]*model.Problem
}

func (m *memProblems) GetByID(_ context.Context, id int64) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.problems[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProblems) GetByCatalogID(_ context.Context, catalogID string) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.problems {
		if p.CatalogID == catalogID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProblems) Upsert(_ context.Context, p *model.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.problems[p.ID] = p
	return nil
}

func (m *memProblems) UpdateSignature(_ context.Context, id int64, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.problems[id].FunctionSignature = signature
	return nil
}

type memAssignments struct {
	mu       sync.Mutex
	problems *memProblems
	rows     map[int]map[int64]uuid.UUID
}

func (m *memAssignments) Upsert(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[a.CandidateID] == nil {
		m.rows[a.CandidateID] = make(map[int64]uuid.UUID)
	}
	m.rows[a.CandidateID][a.ProblemID] = a.SessionID
	a.AssignedAt = time.Now()
	return nil
}

func (m *memAssignments) AssignedCatalogIDs(ctx context.Context, candidateID int) ([]string, error) {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.rows[candidateID]))
	for id := range m.rows[candidateID] {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var out []string
	for _, id := range ids {
		p, err := m.problems.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p.CatalogID)
	}
	return out, nil
}

func (m *memAssignments) sessionFor(candidateID int, problemID int64) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[candidateID][problemID]
}

func (m *memAssignments) count(candidateID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[candidateID])
}

type stubCatalog struct {
	problems []catalog.ProblemSummary
	details  map[string]*catalog.RawDetail
}

func (c *stubCatalog) ListProblems(_ context.Context, f catalog.ListFilter) ([]catalog.ProblemSummary, error) {
	var out []catalog.ProblemSummary
	for _, p := range c.problems {
		if f.Difficulty != "" && !strings.EqualFold(p.Difficulty, f.Difficulty) {
			continue
		}
		if f.Topic != "" && !p.HasTopic(f.Topic) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *stubCatalog) FetchDetail(_ context.Context, slug string) (*catalog.RawDetail, error) {
	d, ok := c.details[slug]
	if !ok {
		return nil, catalog.ErrUpstream
	}
	return d, nil
}

type echoGuide struct{}

func (echoGuide) Guidance(_ context.Context, problem *model.Problem, _ []model.ChatTurn, _, message string) string {
	if problem == nil {
		return guidance.NoProblemReply
	}
	return "re: " + message
}

func (echoGuide) AnalyzeCode(_ context.Context, problem *model.Problem, code string, tests *model.TestSummary) string {
	if problem == nil {
		return guidance.NoProblemAnalysis
	}
	if tests != nil {
		return "review with tests: " + code
	}
	return "review: " + code
}

type recordingQueue struct {
	mu   sync.Mutex
	ids  []uuid.UUID
	fail bool
}

func (q *recordingQueue) Enqueue(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue down")
	}
	q.ids = append(q.ids, id)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []transport.Event
}

func (r *recordingEvents) Publish(_ context.Context, _ uuid.UUID, ev transport.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) ofType(t transport.EventType) []transport.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transport.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

const problemHTML = `<p>Given an integer array <code>nums</code>, find the subarray with the largest sum.</p>
<p><strong>Example 1:</strong></p>
<pre><strong>Input:</strong> nums = [-2,1,-3,4,-1,2,1,-5,4]
<strong>Output:</strong> 6
<strong>Explanation:</strong> The subarray [4,-1,2,1] has the largest sum 6.
</pre>
<p><strong>Constraints:</strong></p>
<ul><li><code>1 &lt;= nums.length &lt;= 10<sup>5</sup></code></li></ul>`

var testProblems = []catalog.ProblemSummary{
	{CatalogID: "1", Title: "Two Sum", Slug: "two-sum", Difficulty: "Easy", Topics: []string{"array", "hash-table"}},
	{CatalogID: "3", Title: "Longest Substring Without Repeating Characters", Slug: "longest-substring", Difficulty: "Medium", Topics: []string{"string", "sliding-window"}},
	{CatalogID: "53", Title: "Maximum Subarray", Slug: "maximum-subarray", Difficulty: "Medium", Topics: []string{"array", "dynamic-programming"}},
}

func testDetails() map[string]*catalog.RawDetail {
	details := make(map[string]*catalog.RawDetail)
	for _, p := range testProblems {
		details[p.Slug] = &catalog.RawDetail{
			Content:          problemHTML,
			ExampleTestcases: "[-2,1,-3,4,-1,2,1,-5,4]",
			Snippets: []catalog.CodeSnippet{{
				LangSlug: "python3",
				Code:     "class Solution:\n    def solve(self, nums: List[int]) -> int:\n        ",
			}},
			Hints: []string{"Try <b>Kadane</b>.", "Track the best sum ending here."},
		}
	}
	return details
}

type harness struct {
	svc         *Service
	sessions    *memSessions
	transcripts *memTranscripts
	problems    *memProblems
	assignments *memAssignments
	catalog     *stubCatalog
	queue       *recordingQueue
	events      *recordingEvents
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions:    &memSessions{sessions: make(map[uuid.UUID]model.Session)},
		transcripts: &memTranscripts{},
		problems:    &memProblems{problems: make(map[int64]*model.Problem)},
		catalog:     &stubCatalog{problems: testProblems, details: testDetails()},
		queue:       &recordingQueue{},
		events:      &recordingEvents{},
	}
	h.assignments = &memAssignments{problems: h.problems, rows: make(map[int]map[int64]uuid.UUID)}

	log := zerolog.Nop()
	resolver := catalog.NewResolver(h.catalog, 100, 1000, time.Second, log,
		catalog.WithRand(rand.New(rand.NewPCG(1, 2))))
	enricher := enrichment.NewEnricher(h.catalog, h.problems, "python3", time.Second, log)

	h.svc = NewService(Deps{
		Sessions:    h.sessions,
		Transcripts: h.transcripts,
		Assignments: h.assignments,
		Problems:    h.problems,
		Resolver:    resolver,
		Enricher:    enricher,
		Guide:       echoGuide{},
		Feedback:    h.queue,
		Events:      h.events,
	}, time.Minute, log)
	return h
}
