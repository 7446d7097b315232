package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/interview-backend/internal/model"
)

// AssignmentRepository is the ledger of problems already given to candidates.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Upsert records (candidate, problem). A second assignment of the same pair,
// including a concurrent one, only moves the session reference.
func (r *AssignmentRepository) Upsert(ctx context.Context, a *model.Assignment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO problem_assignments (candidate_id, problem_id, session_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id, problem_id) DO UPDATE SET session_id = EXCLUDED.session_id
		 RETURNING assigned_at`,
		a.CandidateID, a.ProblemID, a.SessionID,
	).Scan(&a.AssignedAt)
}

// AssignedCatalogIDs returns the catalog ids of every problem the candidate has been given.
func (r *AssignmentRepository) AssignedCatalogIDs(ctx context.Context, candidateID int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.catalog_id
		 FROM problem_assignments a
		 JOIN problems p ON p.id = a.problem_id
		 WHERE a.candidate_id = $1`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
