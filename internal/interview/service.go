// Package interview drives interview sessions from greeting to feedback:
// it extracts preferences, binds a problem, routes chat and code to the
// guidance engine and broadcasts every change to the session's group.
package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/guidance"
	"github.com/stemsi/interview-backend/internal/metrics"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/repository"
	"github.com/stemsi/interview-backend/internal/transport"
)

var (
	// ErrSessionNotFound is returned for unknown sessions and for sessions
	// owned by another candidate.
	ErrSessionNotFound = errors.New("interview session not found")
	// ErrSessionTerminal is returned when a completed or cancelled session
	// receives a command.
	ErrSessionTerminal = errors.New("interview session already ended")
)

const defaultLanguage = "python"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	ListByCandidate(ctx context.Context, candidateID, limit int) ([]model.Session, error)
	UpdatePreferences(ctx context.Context, s *model.Session) error
	BindProblem(ctx context.Context, id uuid.UUID, problemID int64) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, at time.Time, feedback string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error
}

type TranscriptStore interface {
	AppendTurn(ctx context.Context, t *model.ChatTurn) error
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]model.ChatTurn, error)
	RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]model.ChatTurn, error)
	AppendSnapshot(ctx context.Context, s *model.CodeSnapshot) error
	LatestSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.CodeSnapshot, error)
	ListSnapshots(ctx context.Context, sessionID uuid.UUID) ([]model.CodeSnapshot, error)
}

type AssignmentStore interface {
	Upsert(ctx context.Context, a *model.Assignment) error
	AssignedCatalogIDs(ctx context.Context, candidateID int) ([]string, error)
}

type ProblemReader interface {
	GetByID(ctx context.Context, id int64) (*model.Problem, error)
}

type ProblemResolver interface {
	Resolve(ctx context.Context, c catalog.Criteria) (*catalog.Resolution, error)
}

type ProblemEnricher interface {
	Enrich(ctx context.Context, s catalog.ProblemSummary) (*model.Problem, error)
}

// Guide produces the interviewer's replies.
type Guide interface {
	Guidance(ctx context.Context, problem *model.Problem, recent []model.ChatTurn, code, message string) string
	AnalyzeCode(ctx context.Context, problem *model.Problem, code string, tests *model.TestSummary) string
}

// FeedbackQueue hands completed sessions to the feedback worker.
type FeedbackQueue interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Sessions    SessionStore
	Transcripts TranscriptStore
	Assignments AssignmentStore
	Problems    ProblemReader
	Resolver    ProblemResolver
	Enricher    ProblemEnricher
	Guide       Guide
	Feedback    FeedbackQueue
	Events      transport.Publisher
}

// SessionView is what every command returns: the session after the
// command, its problem if bound, and the agent's latest reply.
type SessionView struct {
	Session            *model.Session `json:"session"`
	Problem            *model.Problem `json:"problem,omitempty"`
	LatestAgentMessage string         `json:"latest_agent_message"`
}

// SessionData is the full record of a session.
type SessionData struct {
	Session   *model.Session       `json:"session"`
	Problem   *model.Problem       `json:"problem,omitempty"`
	Turns     []model.ChatTurn     `json:"chat_history"`
	Snapshots []model.CodeSnapshot `json:"code_history"`
}

// Service is the session state machine. Commands for one session are
// applied one at a time in arrival order.
type Service struct {
	Deps
	workers *sessionWorkers
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(deps Deps, idle time.Duration, log zerolog.Logger) *Service {
	log = log.With().Str("component", "interview").Logger()
	return &Service{
		Deps:    deps,
		workers: newSessionWorkers(idle, log),
		now:     time.Now,
		log:     log,
	}
}

// Shutdown waits for queued session commands to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.workers.Wait(ctx)
}

// StartSession opens a preparing session for the candidate and greets them.
func (s *Service) StartSession(ctx context.Context, candidateID int) (*SessionView, error) {
	sess := &model.Session{
		ID:               uuid.New(),
		CandidateID:      candidateID,
		Status:           model.SessionStatusPreparing,
		TopicPreferences: []string{},
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionTransition(string(model.SessionStatusPreparing))

	if err := s.say(ctx, sess.ID, greetingMessage); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", sess.ID.String()).Int("candidate_id", candidateID).Msg("Interview session started")
	return &SessionView{Session: sess, LatestAgentMessage: greetingMessage}, nil
}

// SubmitChatMessage records the candidate's message and answers it. While
// preparing, the message is read for preferences and may bind a problem.
func (s *Service) SubmitChatMessage(ctx context.Context, sessionID uuid.UUID, candidateID int, text string) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		if err := s.record(ctx, sess.ID, model.TurnRoleUser, text); err != nil {
			return nil, err
		}

		if sess.Status == model.SessionStatusPreparing && sess.ProblemID == nil {
			return s.prepare(ctx, sess, text)
		}

		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		recent, err := s.Transcripts.RecentTurns(ctx, sess.ID, guidance.HistoryWindow)
		if err != nil {
			return nil, fmt.Errorf("recent turns: %w", err)
		}
		reply := s.Guide.Guidance(ctx, problem, recent, s.currentCode(ctx, sess.ID), text)
		if err := s.say(ctx, sess.ID, reply); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: reply}, nil
	})
}

func (s *Service) prepare(ctx context.Context, sess *model.Session, text string) (*SessionView, error) {
	prefs := ExtractPreferences(text)
	if sess.DifficultyPreference == "" {
		sess.DifficultyPreference = prefs.Difficulty
	}
	sess.TopicPreferences = mergeTopics(sess.TopicPreferences, prefs.Topics)
	if prefs.ProblemName != "" {
		sess.ProblemNameRequest = prefs.ProblemName
	}
	if err := s.Sessions.UpdatePreferences(ctx, sess); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	missing := missingPreferences(sess.DifficultyPreference, sess.TopicPreferences)
	if len(missing) > 0 && sess.ProblemNameRequest == "" {
		return s.askFor(ctx, sess, missing)
	}

	res, err := s.resolve(ctx, sess)
	switch {
	case len(missing) > 0 && (err != nil || res.Tier != catalog.TierNamed):
		// Incomplete preferences may only bind through the requested name.
		return s.askFor(ctx, sess, missing)
	case err != nil:
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("No problem resolved")
		if err := s.say(ctx, sess.ID, noProblemFoundMessage); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, LatestAgentMessage: noProblemFoundMessage}, nil
	}

	problem, err := s.Enricher.Enrich(ctx, res.Problem)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Str("catalog_id", res.Problem.CatalogID).Msg("Enrichment failed")
		if err := s.say(ctx, sess.ID, noProblemFoundMessage); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, LatestAgentMessage: noProblemFoundMessage}, nil
	}

	bound, err := s.Sessions.BindProblem(ctx, sess.ID, problem.ID)
	if err != nil {
		return nil, fmt.Errorf("bind problem: %w", err)
	}
	if !bound {
		// Someone else moved the session on; report what is stored.
		current, err := s.Sessions.GetByID(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("reload session: %w", err)
		}
		p, err := s.problemOf(ctx, current)
		if err != nil {
			return nil, err
		}
		return &SessionView{Session: current, Problem: p}, nil
	}
	sess.ProblemID = &problem.ID
	sess.Status = model.SessionStatusActive
	metrics.SessionTransition(string(model.SessionStatusActive))

	assignment := &model.Assignment{CandidateID: sess.CandidateID, ProblemID: problem.ID, SessionID: sess.ID}
	if err := s.Assignments.Upsert(ctx, assignment); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Int64("problem_id", problem.ID).Msg("Failed to record assignment")
	}

	s.publish(ctx, sess.ID, transport.Event{Type: transport.EventProblemAssigned, Problem: problem})
	s.publish(ctx, sess.ID, transport.Event{Type: transport.EventStatusChanged, Status: string(sess.Status)})

	difficulty := sess.DifficultyPreference
	if difficulty == "" {
		difficulty = problem.Difficulty
	}
	reply := problemIntroMessage(difficulty, problem.Title)
	if err := s.say(ctx, sess.ID, reply); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", sess.ID.String()).Str("problem", problem.Title).Msg("Problem bound")
	return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: reply}, nil
}

func (s *Service) askFor(ctx context.Context, sess *model.Session, missing []string) (*SessionView, error) {
	reply := missingPreferencesMessage(missing)
	if err := s.say(ctx, sess.ID, reply); err != nil {
		return nil, err
	}
	return &SessionView{Session: sess, LatestAgentMessage: reply}, nil
}

func (s *Service) resolve(ctx context.Context, sess *model.Session) (*catalog.Resolution, error) {
	exclude, err := s.Assignments.AssignedCatalogIDs(ctx, sess.CandidateID)
	if err != nil {
		s.log.Warn().Err(err).Int("candidate_id", sess.CandidateID).Msg("Assigned problems unavailable, not excluding")
		exclude = nil
	}

	return s.Resolver.Resolve(ctx, catalog.Criteria{
		Difficulty:  sess.DifficultyPreference,
		Topics:      sess.TopicPreferences,
		ProblemName: sess.ProblemNameRequest,
		Exclude:     exclude,
	})
}

// SubmitCode stores a new snapshot and critiques it.
func (s *Service) SubmitCode(ctx context.Context, sessionID uuid.UUID, candidateID int, req model.SubmitCodeRequest) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		language := req.Language
		if language == "" {
			language = defaultLanguage
		}
		snap := &model.CodeSnapshot{
			SessionID:   sess.ID,
			Code:        req.Code,
			Language:    language,
			TestSummary: req.TestSummary,
		}
		if err := s.Transcripts.AppendSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("append snapshot: %w", err)
		}
		s.publish(ctx, sess.ID, transport.Event{
			Type:        transport.EventCodeSubmitted,
			Code:        snap.Code,
			Language:    snap.Language,
			TestSummary: snap.TestSummary,
		})

		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		reply := s.Guide.AnalyzeCode(ctx, problem, snap.Code, snap.TestSummary)
		if err := s.say(ctx, sess.ID, reply); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: reply}, nil
	})
}

// RequestHint replies with the level-th hint of the bound problem.
func (s *Service) RequestHint(ctx context.Context, sessionID uuid.UUID, candidateID, level int) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		reply := guidance.Hint(problem, level)
		if err := s.say(ctx, sess.ID, reply); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: reply}, nil
	})
}

// RequestCodeAnalysis critiques code without storing it as a snapshot.
func (s *Service) RequestCodeAnalysis(ctx context.Context, sessionID uuid.UUID, candidateID int, req model.CodeAnalysisRequest) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		reply := s.Guide.AnalyzeCode(ctx, problem, req.Code, req.TestSummary)
		if err := s.say(ctx, sess.ID, reply); err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: reply}, nil
	})
}

// EndSession completes the session with placeholder feedback and queues
// the real feedback for the worker. When the job cannot be queued the
// placeholder is replaced with the unavailable notice.
func (s *Service) EndSession(ctx context.Context, sessionID uuid.UUID, candidateID int) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		at := s.now()
		ok, err := s.Sessions.Complete(ctx, sess.ID, at, guidance.FeedbackPlaceholder)
		if err != nil {
			return nil, fmt.Errorf("complete session: %w", err)
		}
		if !ok {
			return nil, ErrSessionTerminal
		}
		sess.Status = model.SessionStatusCompleted
		sess.CompletedAt = &at
		sess.Feedback = guidance.FeedbackPlaceholder
		metrics.SessionTransition(string(model.SessionStatusCompleted))

		if err := s.Feedback.Enqueue(ctx, sess.ID); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to queue feedback")
			// Nothing will replace the placeholder once the job is lost.
			if err := s.Sessions.SetFeedback(ctx, sess.ID, guidance.FeedbackUnavailable); err != nil {
				return nil, fmt.Errorf("store feedback: %w", err)
			}
			sess.Feedback = guidance.FeedbackUnavailable
		}

		s.publish(ctx, sess.ID, transport.Event{Type: transport.EventStatusChanged, Status: string(sess.Status)})
		if err := s.say(ctx, sess.ID, endMessage); err != nil {
			return nil, err
		}

		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("session_id", sess.ID.String()).Dur("duration", sess.Duration(at)).Msg("Interview session completed")
		return &SessionView{Session: sess, Problem: problem, LatestAgentMessage: endMessage}, nil
	})
}

// CancelSession abandons the session. No feedback is produced.
func (s *Service) CancelSession(ctx context.Context, sessionID uuid.UUID, candidateID int) (*SessionView, error) {
	return s.command(ctx, sessionID, candidateID, func(ctx context.Context, sess *model.Session) (*SessionView, error) {
		at := s.now()
		ok, err := s.Sessions.Cancel(ctx, sess.ID, at)
		if err != nil {
			return nil, fmt.Errorf("cancel session: %w", err)
		}
		if !ok {
			return nil, ErrSessionTerminal
		}
		sess.Status = model.SessionStatusCancelled
		sess.CompletedAt = &at
		metrics.SessionTransition(string(model.SessionStatusCancelled))

		s.publish(ctx, sess.ID, transport.Event{Type: transport.EventStatusChanged, Status: string(sess.Status)})

		problem, err := s.problemOf(ctx, sess)
		if err != nil {
			return nil, err
		}
		return &SessionView{Session: sess, Problem: problem}, nil
	})
}

// GetSessionData returns the session with its transcript, code history and
// problem. It reads terminal sessions too.
func (s *Service) GetSessionData(ctx context.Context, sessionID uuid.UUID, candidateID int) (*SessionData, error) {
	sess, err := s.load(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	problem, err := s.problemOf(ctx, sess)
	if err != nil {
		return nil, err
	}
	turns, err := s.Transcripts.ListTurns(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	snaps, err := s.Transcripts.ListSnapshots(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	if snaps == nil {
		snaps = []model.CodeSnapshot{}
	}
	return &SessionData{Session: sess, Problem: problem, Turns: turns, Snapshots: snaps}, nil
}

// ListSessions returns the candidate's sessions, newest first. limit is
// clamped to [1, 100]; zero means 20.
func (s *Service) ListSessions(ctx context.Context, candidateID, limit int) ([]model.Session, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	sessions, err := s.Sessions.ListByCandidate(ctx, candidateID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, nil
}

// command runs fn on the session's worker against a freshly loaded,
// non-terminal session.
func (s *Service) command(ctx context.Context, sessionID uuid.UUID, candidateID int,
	fn func(context.Context, *model.Session) (*SessionView, error)) (*SessionView, error) {
	var view *SessionView
	err := s.workers.Do(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.load(ctx, sessionID, candidateID)
		if err != nil {
			return err
		}
		if sess.Status.Terminal() {
			return ErrSessionTerminal
		}
		view, err = fn(ctx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, sessionID uuid.UUID, candidateID int) (*model.Session, error) {
	sess, err := s.Sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.CandidateID != candidateID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) problemOf(ctx context.Context, sess *model.Session) (*model.Problem, error) {
	if sess.ProblemID == nil {
		return nil, nil
	}
	p, err := s.Problems.GetByID(ctx, *sess.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}
	return p, nil
}

func (s *Service) currentCode(ctx context.Context, sessionID uuid.UUID) string {
	snap, err := s.Transcripts.LatestSnapshot(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Latest snapshot unavailable")
		}
		return ""
	}
	return snap.Code
}

// record appends a turn and broadcasts it.
func (s *Service) record(ctx context.Context, sessionID uuid.UUID, role model.TurnRole, text string) error {
	turn := &model.ChatTurn{SessionID: sessionID, Role: role, Text: text}
	if err := s.Transcripts.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("append %s turn: %w", role, err)
	}
	s.publish(ctx, sessionID, transport.Event{Type: transport.EventChatMessage, Role: role, Text: text, At: turn.CreatedAt})
	return nil
}

func (s *Service) say(ctx context.Context, sessionID uuid.UUID, text string) error {
	return s.record(ctx, sessionID, model.TurnRoleAgent, text)
}

func (s *Service) publish(ctx context.Context, sessionID uuid.UUID, ev transport.Event) {
	ev.SessionID = sessionID
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if err := s.Events.Publish(ctx, sessionID, ev); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Str("event", string(ev.Type)).Msg("Failed to publish event")
	}
}
