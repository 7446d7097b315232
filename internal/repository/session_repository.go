package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/interview-backend/internal/model"
)

const sessionColumns = `id, candidate_id, status, problem_id, difficulty_preference, topic_preferences,
	problem_name_request, started_at, completed_at, feedback`

// SessionRepository handles interview session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(&s.ID, &s.CandidateID, &s.Status, &s.ProblemID, &s.DifficultyPreference,
		&s.TopicPreferences, &s.ProblemNameRequest, &s.StartedAt, &s.CompletedAt, &s.Feedback)
	if err != nil {
		return nil, notFound(err)
	}
	if s.TopicPreferences == nil {
		s.TopicPreferences = []string{}
	}
	return s, nil
}

// Create inserts a new session in the preparing state.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	if s.TopicPreferences == nil {
		s.TopicPreferences = []string{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO interview_sessions (id, candidate_id, status, difficulty_preference, topic_preferences, problem_name_request)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING started_at`,
		s.ID, s.CandidateID, s.Status, s.DifficultyPreference, s.TopicPreferences, s.ProblemNameRequest,
	).Scan(&s.StartedAt)
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id))
}

// ListByCandidate returns a candidate's sessions, newest first.
func (r *SessionRepository) ListByCandidate(ctx context.Context, candidateID, limit int) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions
		 WHERE candidate_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`, candidateID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdatePreferences stores the extracted difficulty, topics and name request.
func (r *SessionRepository) UpdatePreferences(ctx context.Context, s *model.Session) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET difficulty_preference = $2, topic_preferences = $3, problem_name_request = $4
		 WHERE id = $1`,
		s.ID, s.DifficultyPreference, s.TopicPreferences, s.ProblemNameRequest)
	return err
}

// BindProblem attaches a problem and activates the session. The write only
// succeeds while no problem is bound; it reports whether it took effect.
func (r *SessionRepository) BindProblem(ctx context.Context, id uuid.UUID, problemID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET problem_id = $2, status = $3
		 WHERE id = $1 AND problem_id IS NULL AND status = $4`,
		id, problemID, model.SessionStatusActive, model.SessionStatusPreparing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete marks a non-terminal session completed with placeholder feedback.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, feedback string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $2, completed_at = $3, feedback = $4
		 WHERE id = $1 AND status IN ($5, $6)`,
		id, model.SessionStatusCompleted, completedAt, feedback,
		model.SessionStatusPreparing, model.SessionStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel marks a non-terminal session cancelled.
func (r *SessionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET status = $2, completed_at = $3
		 WHERE id = $1 AND status IN ($4, $5)`,
		id, model.SessionStatusCancelled, at,
		model.SessionStatusPreparing, model.SessionStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetFeedback replaces the feedback text of a completed session.
func (r *SessionRepository) SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET feedback = $2 WHERE id = $1 AND status = $3`,
		id, feedback, model.SessionStatusCompleted)
	return err
}
