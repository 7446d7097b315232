package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/guidance"
	"github.com/stemsi/interview-backend/internal/llm"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/transport"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
}

func (f *fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) SetFeedback(_ context.Context, id uuid.UUID, feedback string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Feedback = feedback
	return nil
}

func (f *fakeSessions) feedback(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Feedback
}

type fakeTranscripts struct{}

func (fakeTranscripts) ListTurns(_ context.Context, id uuid.UUID) ([]model.ChatTurn, error) {
	return []model.ChatTurn{
		{SessionID: id, Role: model.TurnRoleUser, Text: "I would use a hash map"},
		{SessionID: id, Role: model.TurnRoleAgent, Text: "Sounds good"},
	}, nil
}

func (fakeTranscripts) ListSnapshots(_ context.Context, id uuid.UUID) ([]model.CodeSnapshot, error) {
	return []model.CodeSnapshot{{SessionID: id, Code: "seen = {}", TestSummary: &model.TestSummary{Passed: 2, Total: 3}}}, nil
}

type fakeProblems struct{}

func (fakeProblems) GetByID(_ context.Context, id int64) (*model.Problem, error) {
	return &model.Problem{ID: id, Title: "Two Sum", Difficulty: "easy"}, nil
}

type missingProblems struct{}

func (missingProblems) GetByID(_ context.Context, id int64) (*model.Problem, error) {
	return nil, errors.New("no rows")
}

type stubCompleter struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func completedSession(candidateID int) *model.Session {
	problemID := int64(1)
	done := time.Now()
	return &model.Session{
		ID:          uuid.New(),
		CandidateID: candidateID,
		Status:      model.SessionStatusCompleted,
		ProblemID:   &problemID,
		StartedAt:   done.Add(-20 * time.Minute),
		CompletedAt: &done,
		Feedback:    guidance.FeedbackPlaceholder,
	}
}

func newTestWorker(t *testing.T, c llm.Completer, sessions *fakeSessions) (*FeedbackWorker, *redis.Client, *transport.Hub) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := transport.NewHub(8, zerolog.Nop())
	engine := guidance.NewEngine(c, zerolog.Nop())
	w := NewFeedbackWorker(rdb, sessions, fakeTranscripts{}, fakeProblems{}, engine, hub, time.Second, zerolog.Nop())
	return w, rdb, hub
}

func TestFeedbackWorkerConsumesQueue(t *testing.T) {
	sess := completedSession(1)
	sessions := &fakeSessions{sessions: map[uuid.UUID]*model.Session{sess.ID: sess}}
	completer := &stubCompleter{reply: "Strong approach. Rating: 8/10."}
	w, rdb, hub := newTestWorker(t, completer, sessions)

	sub := hub.Subscribe(sess.ID)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, NewFeedbackQueue(rdb).Enqueue(context.Background(), sess.ID))

	select {
	case ev := <-sub.C:
		assert.Equal(t, transport.EventFeedbackReady, ev.Type)
		assert.Equal(t, "Strong approach. Rating: 8/10.", ev.Text)
	case <-time.After(3 * time.Second):
		t.Fatal("no feedback event")
	}
	assert.Equal(t, "Strong approach. Rating: 8/10.", sessions.feedback(sess.ID))

	completer.mu.Lock()
	prompt := completer.prompts[0]
	completer.mu.Unlock()
	assert.Contains(t, prompt, "Problem: Two Sum")
	assert.Contains(t, prompt, "Difficulty: easy")
	assert.Contains(t, prompt, "USER: I would use a hash map")
	assert.Contains(t, prompt, "(tests 2/3 passed)")

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestFeedbackFailureReplacesPlaceholder(t *testing.T) {
	sess := completedSession(1)
	sessions := &fakeSessions{sessions: map[uuid.UUID]*model.Session{sess.ID: sess}}
	w, _, _ := newTestWorker(t, &stubCompleter{err: errors.New("model overloaded")}, sessions)

	require.NoError(t, w.Process(context.Background(), sess.ID))
	assert.Equal(t, guidance.FeedbackUnavailable, sessions.feedback(sess.ID))
}

func TestFeedbackInputErrorReplacesPlaceholder(t *testing.T) {
	sess := completedSession(1)
	sessions := &fakeSessions{sessions: map[uuid.UUID]*model.Session{sess.ID: sess}}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	hub := transport.NewHub(8, zerolog.Nop())
	completer := &stubCompleter{reply: "unused"}
	w := NewFeedbackWorker(rdb, sessions, fakeTranscripts{}, missingProblems{}, guidance.NewEngine(completer, zerolog.Nop()), hub, time.Second, zerolog.Nop())

	sub := hub.Subscribe(sess.ID)
	defer sub.Close()

	require.NoError(t, w.Process(context.Background(), sess.ID))
	assert.Equal(t, guidance.FeedbackUnavailable, sessions.feedback(sess.ID))
	assert.Empty(t, completer.prompts)

	select {
	case ev := <-sub.C:
		assert.Equal(t, transport.EventFeedbackReady, ev.Type)
		assert.Equal(t, guidance.FeedbackUnavailable, ev.Text)
	case <-time.After(time.Second):
		t.Fatal("no feedback event")
	}
}

func TestFeedbackSkipsSessionsNotCompleted(t *testing.T) {
	sess := completedSession(1)
	sess.Status = model.SessionStatusCancelled
	sess.Feedback = ""
	sessions := &fakeSessions{sessions: map[uuid.UUID]*model.Session{sess.ID: sess}}
	completer := &stubCompleter{reply: "unused"}
	w, _, _ := newTestWorker(t, completer, sessions)

	require.NoError(t, w.Process(context.Background(), sess.ID))
	assert.Empty(t, sessions.feedback(sess.ID))
	assert.Empty(t, completer.prompts)
}

func TestFeedbackNotRegenerated(t *testing.T) {
	sess := completedSession(1)
	sess.Feedback = "Already written."
	sessions := &fakeSessions{sessions: map[uuid.UUID]*model.Session{sess.ID: sess}}
	completer := &stubCompleter{reply: "new"}
	w, _, _ := newTestWorker(t, completer, sessions)

	require.NoError(t, w.Process(context.Background(), sess.ID))
	assert.Equal(t, "Already written.", sessions.feedback(sess.ID))
	assert.Empty(t, completer.prompts)
}

func TestFeedbackQueueUsesWorkerKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	id := uuid.New()
	require.NoError(t, NewFeedbackQueue(rdb).Enqueue(context.Background(), id))

	items, err := mr.List(config.WorkerKey.GenerateFeedbackQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{id.String()}, items)
}
