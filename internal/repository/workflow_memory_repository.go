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

// WorkflowMemoryRepository handles data access for workflow memories (spec
// §4.3). Append-only: Record never updates an existing row.
type WorkflowMemoryRepository struct {
	db querier
}

// NewWorkflowMemoryRepository creates a new workflow memory repository.
func NewWorkflowMemoryRepository(db *pgxpool.Pool) *WorkflowMemoryRepository {
	return &WorkflowMemoryRepository{db: db}
}

// WithTx returns a WorkflowMemoryRepository whose operations run inside tx.
func (r *WorkflowMemoryRepository) WithTx(tx pgx.Tx) *WorkflowMemoryRepository {
	return &WorkflowMemoryRepository{db: tx}
}

// FindSimilar returns up to topM workflow memories with is_successful = true
// whose cosine similarity to queryVec is >= minSim, nearest first (spec
// §4.3 find_similar).
func (r *WorkflowMemoryRepository) FindSimilar(ctx context.Context, queryVec []float32, topM int, minSim float64) ([]models.WorkflowHit, error) {
	vec := pgvector.NewVector(queryVec)

	rows, err := r.db.Query(ctx, `
		SELECT id, source_session_id, useful_chunk_ids, is_successful, created_at,
			(1 - (summary_embedding <=> $1)) AS similarity
		FROM workflow_memories
		WHERE is_successful = true AND (1 - (summary_embedding <=> $1)) >= $2
		ORDER BY summary_embedding <=> $1
		LIMIT $3
	`, vec, minSim, topM)
	if err != nil {
		return nil, fmt.Errorf("find similar workflow memories: %w", err)
	}
	defer rows.Close()

	hits := []models.WorkflowHit{}

	for rows.Next() {
		var hit models.WorkflowHit

		if err := rows.Scan(&hit.ID, &hit.SourceSessionID, &hit.UsefulChunkIDs, &hit.IsSuccessful, &hit.CreatedAt, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan workflow memory hit: %w", err)
		}

		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workflow memory hits: %w", err)
	}

	return hits, nil
}

// Record inserts a new workflow memory. A duplicate source_session_id is
// rejected via the unique constraint and reported as ErrConflict (spec §4.3:
// "duplicates on same source_session_id are rejected").
func (r *WorkflowMemoryRepository) Record(
	ctx context.Context, summaryVec []float32, sourceSessionID int64, usefulChunkIDs []uuid.UUID,
) (*models.WorkflowMemory, error) {
	vec := pgvector.NewVector(summaryVec)

	var m models.WorkflowMemory

	err := r.db.QueryRow(ctx, `
		INSERT INTO workflow_memories (summary_embedding, source_session_id, useful_chunk_ids, is_successful)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (source_session_id) DO NOTHING
		RETURNING id, source_session_id, useful_chunk_ids, is_successful, created_at
	`, vec, sourceSessionID, usefulChunkIDs).Scan(&m.ID, &m.SourceSessionID, &m.UsefulChunkIDs, &m.IsSuccessful, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflictError("workflow memory already recorded for this session")
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.NewConflictError("workflow memory already recorded for this session")
		}

		return nil, fmt.Errorf("record workflow memory: %w", err)
	}

	return &m, nil
}

// Count returns the total number of recorded workflow memories, for the
// STATS endpoint.
func (r *WorkflowMemoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_memories`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count workflow memories: %w", err)
	}

	return count, nil
}
