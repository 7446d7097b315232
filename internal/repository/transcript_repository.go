package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/interview-backend/internal/model"
)

// TranscriptRepository stores chat turns and code snapshots. Both are
// append-only and read back ordered by (created_at, id).
type TranscriptRepository struct {
	pool *pgxpool.Pool
}

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{pool: pool}
}

// AppendTurn inserts a chat turn.
func (r *TranscriptRepository) AppendTurn(ctx context.Context, t *model.ChatTurn) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO chat_turns (session_id, role, text)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		t.SessionID, t.Role, t.Text,
	).Scan(&t.ID, &t.CreatedAt)
}

// ListTurns returns every turn of a session in chronological order.
func (r *TranscriptRepository) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]model.ChatTurn, error) {
	return r.queryTurns(ctx,
		`SELECT id, session_id, role, text, created_at FROM chat_turns
		 WHERE session_id = $1
		 ORDER BY created_at, id`, sessionID)
}

// RecentTurns returns at most limit turns, newest first.
func (r *TranscriptRepository) RecentTurns(ctx context.Context, sessionID uuid.UUID, limit int) ([]model.ChatTurn, error) {
	return r.queryTurns(ctx,
		`SELECT id, session_id, role, text, created_at FROM chat_turns
		 WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, sessionID, limit)
}

func (r *TranscriptRepository) queryTurns(ctx context.Context, sql string, args ...any) ([]model.ChatTurn, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendSnapshot inserts a code snapshot.
func (r *TranscriptRepository) AppendSnapshot(ctx context.Context, s *model.CodeSnapshot) error {
	var passed, total *int
	if s.TestSummary != nil {
		passed, total = &s.TestSummary.Passed, &s.TestSummary.Total
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO code_snapshots (session_id, code, language, tests_passed, tests_total)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		s.SessionID, s.Code, s.Language, passed, total,
	).Scan(&s.ID, &s.CreatedAt)
}

// LatestSnapshot returns the current code of a session, or ErrNotFound.
func (r *TranscriptRepository) LatestSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.CodeSnapshot, error) {
	snaps, err := r.querySnapshots(ctx,
		`SELECT id, session_id, code, language, tests_passed, tests_total, created_at FROM code_snapshots
		 WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, sessionID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return &snaps[0], nil
}

// ListSnapshots returns every snapshot of a session in chronological order.
func (r *TranscriptRepository) ListSnapshots(ctx context.Context, sessionID uuid.UUID) ([]model.CodeSnapshot, error) {
	return r.querySnapshots(ctx,
		`SELECT id, session_id, code, language, tests_passed, tests_total, created_at FROM code_snapshots
		 WHERE session_id = $1
		 ORDER BY created_at, id`, sessionID)
}

func (r *TranscriptRepository) querySnapshots(ctx context.Context, sql string, args ...any) ([]model.CodeSnapshot, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.CodeSnapshot
	for rows.Next() {
		var (
			s             model.CodeSnapshot
			passed, total *int
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Code, &s.Language, &passed, &total, &s.CreatedAt); err != nil {
			return nil, err
		}
		if passed != nil && total != nil {
			s.TestSummary = &model.TestSummary{Passed: *passed, Total: *total}
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
