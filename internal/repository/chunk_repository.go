// Package repository provides data access for chunks, sessions, and workflow
// memories.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx,
// letting repository methods run either standalone or inside a caller's
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository handles data access for the chunks table (spec §4.2 Chunk
// Store).
type ChunkRepository struct {
	db querier
}

// NewChunkRepository creates a new chunk repository.
func NewChunkRepository(db *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// WithTx returns a ChunkRepository whose operations run inside tx, for
// composing with other repositories in the Feedback Processor's single
// transaction (spec §4.8 step 2).
func (r *ChunkRepository) WithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Create inserts a new chunk with accuracy_weight initialised to WeightInit.
// Ingestion is out of scope (spec §1), but this is exposed for seeding and
// for tests that need chunks with a known id.
func (r *ChunkRepository) Create(ctx context.Context, req *models.CreateChunkRequest) (*models.Chunk, error) {
	vec := pgvector.NewVector(req.Embedding)

	query := `
		INSERT INTO chunks (content, repo, path, section, embedding, accuracy_weight, times_retrieved, times_useful)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0)
		RETURNING id, content, repo, path, section, accuracy_weight, times_retrieved, times_useful, created_at
	`

	var c models.Chunk

	err := r.db.QueryRow(ctx, query, req.Content, req.Repo, req.Path, req.Section, vec, models.WeightInit).Scan(
		&c.ID, &c.Content, &c.Repo, &c.Path, &c.Section, &c.AccuracyWeight, &c.TimesRetrieved, &c.TimesUseful, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}

	c.Embedding = req.Embedding

	return &c, nil
}

// Get retrieves a single chunk by id.
func (r *ChunkRepository) Get(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	query := `
		SELECT id, content, repo, path, section, accuracy_weight, times_retrieved, times_useful, created_at
		FROM chunks
		WHERE id = $1
	`

	var c models.Chunk

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Content, &c.Repo, &c.Path, &c.Section, &c.AccuracyWeight, &c.TimesRetrieved, &c.TimesUseful, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("chunk", "chunk not found")
		}

		return nil, fmt.Errorf("get chunk: %w", err)
	}

	return &c, nil
}

// FetchCandidates returns the N nearest chunks to queryVec by cosine
// distance (spec §4.2 fetch_candidates), along with their raw similarity
// (1 - cosine distance, in [-1, 1]).
func (r *ChunkRepository) FetchCandidates(ctx context.Context, queryVec []float32, n int) ([]models.ChunkCandidate, error) {
	vec := pgvector.NewVector(queryVec)

	query := `
		SELECT id, content, repo, path, section, accuracy_weight, times_retrieved, times_useful, created_at,
			(1 - (embedding <=> $1)) AS raw_similarity
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, vec, n)
	if err != nil {
		return nil, fmt.Errorf("fetch chunk candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.ChunkCandidate{}

	for rows.Next() {
		var cand models.ChunkCandidate

		if err := rows.Scan(
			&cand.ID, &cand.Content, &cand.Repo, &cand.Path, &cand.Section,
			&cand.AccuracyWeight, &cand.TimesRetrieved, &cand.TimesUseful, &cand.CreatedAt,
			&cand.RawSimilarity,
		); err != nil {
			return nil, fmt.Errorf("scan chunk candidate: %w", err)
		}

		candidates = append(candidates, cand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk candidates: %w", err)
	}

	return candidates, nil
}

// BumpCounters atomically increments times_retrieved, and times_useful when
// useful is true (spec §4.2 bump_counters). Single-row UPDATE, satisfying I5
// and the single-row-transaction concurrency requirement.
func (r *ChunkRepository) BumpCounters(ctx context.Context, id uuid.UUID, useful bool) error {
	var query string

	if useful {
		query = `UPDATE chunks SET times_retrieved = times_retrieved + 1, times_useful = times_useful + 1 WHERE id = $1`
	} else {
		query = `UPDATE chunks SET times_retrieved = times_retrieved + 1 WHERE id = $1`
	}

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("bump chunk counters: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("chunk", "chunk not found")
	}

	return nil
}

// AdjustWeight atomically clamps accuracy_weight += delta into [wMin, wMax]
// and returns the post-state (spec §4.2 adjust_weight, I1). The clamp runs
// inside the UPDATE itself so concurrent adjustments never race past the
// bound, satisfying §4.2's single-row-transaction concurrency contract
// without an explicit application-level lock.
func (r *ChunkRepository) AdjustWeight(ctx context.Context, id uuid.UUID, delta, wMin, wMax float64) (float64, error) {
	query := `
		UPDATE chunks
		SET accuracy_weight = LEAST(GREATEST(accuracy_weight + $1, $2), $3)
		WHERE id = $4
		RETURNING accuracy_weight
	`

	var newWeight float64

	err := r.db.QueryRow(ctx, query, delta, wMin, wMax, id).Scan(&newWeight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFoundError("chunk", "chunk not found")
		}

		return 0, fmt.Errorf("adjust chunk weight: %w", err)
	}

	return newWeight, nil
}

// SetWeight sets accuracy_weight directly, clamped to [wMin, wMax] — the
// manual CHUNK EDIT operation (SPEC_FULL §6), distinct from the
// feedback-driven delta adjustment above.
func (r *ChunkRepository) SetWeight(ctx context.Context, id uuid.UUID, weight, wMin, wMax float64) (*models.Chunk, error) {
	query := `
		UPDATE chunks
		SET accuracy_weight = LEAST(GREATEST($1, $2), $3)
		WHERE id = $4
		RETURNING id, content, repo, path, section, accuracy_weight, times_retrieved, times_useful, created_at
	`

	var c models.Chunk

	err := r.db.QueryRow(ctx, query, weight, wMin, wMax, id).Scan(
		&c.ID, &c.Content, &c.Repo, &c.Path, &c.Section, &c.AccuracyWeight, &c.TimesRetrieved, &c.TimesUseful, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("chunk", "chunk not found")
		}

		return nil, fmt.Errorf("set chunk weight: %w", err)
	}

	return &c, nil
}

// TopByWeight and BottomByWeight back the STATS endpoint's top/underperforming
// chunk lists, grounded on the original's get_admin_stats chunk-performance
// query (ordered by accuracy_weight, ties broken by times_useful).
func (r *ChunkRepository) TopByWeight(ctx context.Context, limit int) ([]models.Chunk, error) {
	return r.orderedByWeight(ctx, limit, "DESC")
}

// BottomByWeight returns the lowest-weighted chunks.
func (r *ChunkRepository) BottomByWeight(ctx context.Context, limit int) ([]models.Chunk, error) {
	return r.orderedByWeight(ctx, limit, "ASC")
}

func (r *ChunkRepository) orderedByWeight(ctx context.Context, limit int, direction string) ([]models.Chunk, error) {
	order := "ASC"
	if direction == "DESC" {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, content, repo, path, section, accuracy_weight, times_retrieved, times_useful, created_at
		FROM chunks
		WHERE times_retrieved > 0
		ORDER BY accuracy_weight %s, times_useful %s
		LIMIT $1
	`, order, order)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks by weight: %w", err)
	}
	defer rows.Close()

	chunks := []models.Chunk{}

	for rows.Next() {
		var c models.Chunk

		if err := rows.Scan(
			&c.ID, &c.Content, &c.Repo, &c.Path, &c.Section, &c.AccuracyWeight, &c.TimesRetrieved, &c.TimesUseful, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks by weight: %w", err)
	}

	return chunks, nil
}
