package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/interview-backend/internal/model"
)

const problemColumns = `id, catalog_id, title, slug, difficulty, topics, description, constraints,
	examples, hints, function_signature, test_cases, created_at, updated_at`

// ProblemRepository handles enriched problem data access.
type ProblemRepository struct {
	pool *pgxpool.Pool
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(pool *pgxpool.Pool) *ProblemRepository {
	return &ProblemRepository{pool: pool}
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	err := row.Scan(&p.ID, &p.CatalogID, &p.Title, &p.Slug, &p.Difficulty, &p.Topics,
		&p.Description, &p.Constraints, &p.Examples, &p.Hints, &p.FunctionSignature,
		&p.TestCases, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByID retrieves a problem by its surrogate id.
func (r *ProblemRepository) GetByID(ctx context.Context, id int64) (*model.Problem, error) {
	return scanProblem(r.pool.QueryRow(ctx,
		`SELECT `+problemColumns+` FROM problems WHERE id = $1`, id))
}

// GetByCatalogID retrieves a problem by its unique catalog id.
func (r *ProblemRepository) GetByCatalogID(ctx context.Context, catalogID string) (*model.Problem, error) {
	return scanProblem(r.pool.QueryRow(ctx,
		`SELECT `+problemColumns+` FROM problems WHERE catalog_id = $1`, catalogID))
}

// Upsert inserts the problem or overwrites the existing row with the same
// catalog id. Concurrent enrichment of one catalog id converges on the last
// writer; the stored id is written back into p.
func (r *ProblemRepository) Upsert(ctx context.Context, p *model.Problem) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO problems (catalog_id, title, slug, difficulty, topics, description, constraints,
		                       examples, hints, function_signature, test_cases)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (catalog_id) DO UPDATE SET
		     title = EXCLUDED.title,
		     slug = EXCLUDED.slug,
		     difficulty = EXCLUDED.difficulty,
		     topics = EXCLUDED.topics,
		     description = EXCLUDED.description,
		     constraints = EXCLUDED.constraints,
		     examples = EXCLUDED.examples,
		     hints = EXCLUDED.hints,
		     function_signature = EXCLUDED.function_signature,
		     test_cases = EXCLUDED.test_cases,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		p.CatalogID, p.Title, p.Slug, p.Difficulty, nonNilStrings(p.Topics), p.Description, p.Constraints,
		nonNilExamples(p.Examples), nonNilStrings(p.Hints), p.FunctionSignature, nonNilTestCases(p.TestCases),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdateSignature backfills a missing function signature.
func (r *ProblemRepository) UpdateSignature(ctx context.Context, id int64, signature string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE problems SET function_signature = $2, updated_at = NOW()
		 WHERE id = $1 AND function_signature = ''`, id, signature)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilExamples(v []model.Example) []model.Example {
	if v == nil {
		return []model.Example{}
	}
	return v
}

func nonNilTestCases(v []model.TestCase) []model.TestCase {
	if v == nil {
		return []model.TestCase{}
	}
	return v
}
