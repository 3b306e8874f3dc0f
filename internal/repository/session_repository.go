package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// SessionRepository handles data access for sessions and their retrieval
// rows (spec §4.7 Session Log).
type SessionRepository struct {
	db querier
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a SessionRepository whose operations run inside tx.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Create atomically writes a session plus its ordered retrieved list and
// reasoning trace (spec §4.7 create, single write). The retrieved list is
// immutable thereafter; only feedback mutates was_useful.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) (int64, error) {
	if pool, ok := r.db.(*pgxpool.Pool); ok {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return 0, fmt.Errorf("begin create session: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		id, err := r.WithTx(tx).Create(ctx, s)
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err != nil {
			return 0, err
		}

		return id, nil
	}

	queryVec := pgvector.NewVector(s.QueryEmbedding)

	var id int64

	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (query, query_embedding, answer, reasoning_trace, feedback_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, s.Query, queryVec, s.Answer, reasoningTraceJSON(s.ReasoningTrace), models.FeedbackPending, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}

	for _, ret := range s.Retrieved {
		_, err := r.db.Exec(ctx, `
			INSERT INTO session_retrievals (session_id, chunk_id, rank, similarity, effective_score, workflow_boosted, was_useful)
			VALUES ($1, $2, $3, $4, $5, $6, NULL)
		`, id, ret.ChunkID, ret.Rank, ret.RawSimilarity, ret.EffectiveScore, ret.WorkflowBoosted)
		if err != nil {
			return 0, fmt.Errorf("create session retrieval (chunk %s): %w", ret.ChunkID, err)
		}
	}

	return id, nil
}

// Get retrieves a session by id along with its retrieved list, ordered by
// rank.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*models.Session, error) {
	s, err := r.getSessionRow(ctx, id)
	if err != nil {
		return nil, err
	}

	retrieved, err := r.getRetrievals(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Retrieved = retrieved

	return s, nil
}

func (r *SessionRepository) getSessionRow(ctx context.Context, id int64) (*models.Session, error) {
	var (
		s        models.Session
		traceRaw []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, query, answer, reasoning_trace, feedback_status, correction_text, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Query, &s.Answer, &traceRaw, &s.FeedbackStatus, &s.CorrectionText, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("session", "session not found")
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	s.ReasoningTrace, err = decodeReasoningTrace(traceRaw)
	if err != nil {
		return nil, fmt.Errorf("decode reasoning trace: %w", err)
	}

	return &s, nil
}

func (r *SessionRepository) getRetrievals(ctx context.Context, sessionID int64) ([]models.Retrieval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chunk_id, rank, similarity, effective_score, workflow_boosted, was_useful
		FROM session_retrievals
		WHERE session_id = $1
		ORDER BY rank ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session retrievals: %w", err)
	}
	defer rows.Close()

	retrieved := []models.Retrieval{}

	for rows.Next() {
		var ret models.Retrieval

		if err := rows.Scan(&ret.ChunkID, &ret.Rank, &ret.RawSimilarity, &ret.EffectiveScore, &ret.WorkflowBoosted, &ret.WasUseful); err != nil {
			return nil, fmt.Errorf("scan session retrieval: %w", err)
		}

		retrieved = append(retrieved, ret)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session retrievals: %w", err)
	}

	return retrieved, nil
}

// buildSessionFilterConditions builds WHERE clause conditions and arguments
// from filters, mirroring the teacher's buildFilterConditions shape.
func buildSessionFilterConditions(filters *models.ListSessionsFilters) (string, []any) {
	var conditions []string

	var args []any

	argCount := 1

	if filters.FeedbackStatus != nil {
		conditions = append(conditions, fmt.Sprintf("feedback_status = $%d", argCount))
		args = append(args, *filters.FeedbackStatus)
		argCount++
	}

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argCount))
		args = append(args, *filters.Since)
		argCount++
	}

	if filters.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argCount))
		args = append(args, *filters.Until)
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// List retrieves sessions matching filters, newest first. Retrieval rows are
// not populated (use Get for the full detail view); this keeps the admin
// list endpoint cheap (SPEC_FULL §6 INSPECT SESSION list).
func (r *SessionRepository) List(ctx context.Context, filters *models.ListSessionsFilters) ([]models.Session, error) {
	query := `
		SELECT id, query, answer, feedback_status, correction_text, created_at, updated_at
		FROM sessions
	`

	whereClause, args := buildSessionFilterConditions(filters)
	query += whereClause
	argCount := len(args) + 1

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
		argCount++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}

	for rows.Next() {
		var s models.Session

		if err := rows.Scan(&s.ID, &s.Query, &s.Answer, &s.FeedbackStatus, &s.CorrectionText, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

// Count returns the total count of sessions matching filters.
func (r *SessionRepository) Count(ctx context.Context, filters *models.ListSessionsFilters) (int64, error) {
	query := `SELECT COUNT(*) FROM sessions`

	whereClause, args := buildSessionFilterConditions(filters)
	query += whereClause

	var count int64

	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return count, nil
}

// LockForFeedback loads a session's id and feedback_status with FOR UPDATE,
// blocking concurrent feedback applications to the same session until the
// caller's transaction commits or rolls back. Must be called inside a
// transaction (r must be a WithTx repository).
func (r *SessionRepository) LockForFeedback(ctx context.Context, id int64) (models.FeedbackStatus, error) {
	var status models.FeedbackStatus

	err := r.db.QueryRow(ctx, `SELECT feedback_status FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFoundError("session", "session not found")
		}

		return "", fmt.Errorf("lock session for feedback: %w", err)
	}

	return status, nil
}

// ApplyFeedback sets feedback_status, correction_text, and was_useful for the
// listed retrieval rows, all within the caller's transaction (spec §4.8 step
// 2b). Rows not listed in usefulness are left untouched (was_useful stays
// NULL/"unknown").
func (r *SessionRepository) ApplyFeedback(
	ctx context.Context, id int64, status models.FeedbackStatus, correction *string, usefulness map[uuid.UUID]bool,
) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sessions SET feedback_status = $1, correction_text = $2, updated_at = $3 WHERE id = $4
	`, status, correction, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update session feedback status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("session", "session not found")
	}

	for chunkID, useful := range usefulness {
		_, err := r.db.Exec(ctx, `
			UPDATE session_retrievals SET was_useful = $1 WHERE session_id = $2 AND chunk_id = $3
		`, useful, id, chunkID)
		if err != nil {
			return fmt.Errorf("update session retrieval usefulness (chunk %s): %w", chunkID, err)
		}
	}

	return nil
}

// TimeRange returns the earliest and latest session created_at timestamps,
// for the STATS endpoint. Both are nil when there are no sessions yet.
func (r *SessionRepository) TimeRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var earliest, latest *time.Time

	err := r.db.QueryRow(ctx, `SELECT MIN(created_at), MAX(created_at) FROM sessions`).Scan(&earliest, &latest)
	if err != nil {
		return nil, nil, fmt.Errorf("session time range: %w", err)
	}

	return earliest, latest, nil
}

// UsefulChunkIDs returns the chunk ids marked useful=true for a session, used
// when composing a workflow-memory summary (spec §4.3).
func (r *SessionRepository) UsefulChunkIDs(ctx context.Context, sessionID int64) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chunk_id FROM session_retrievals WHERE session_id = $1 AND was_useful = true
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list useful chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan useful chunk id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating useful chunk ids: %w", err)
	}

	return ids, nil
}
