// Package feedback implements the Feedback Processor (spec §4.8): applying
// a correctness judgment to a session, mutating per-chunk accuracy weights,
// and conditionally recording a workflow memory.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/generator"
	"github.com/formbricks/ragcore/internal/jobs"
	"github.com/formbricks/ragcore/internal/models"
	"github.com/formbricks/ragcore/internal/observability"
	"github.com/formbricks/ragcore/internal/repository"
	"github.com/formbricks/ragcore/internal/workflow"
)

// defaultDelta is Δ, the default per-feedback accuracy weight adjustment
// (spec §4.8 step 2a).
const defaultDelta = 0.1

// MemoryRecorder composes and records a workflow memory from a session's
// useful chunks (spec §4.3 summary composition + record).
type MemoryRecorder interface {
	Record(ctx context.Context, summary string, sourceSessionID int64, usefulChunkIDs []uuid.UUID) (*models.WorkflowMemory, error)
}

// Processor is the Feedback Processor component. It depends on the concrete
// repository types (rather than interfaces) because both support a WithTx
// variant used to compose chunk and session mutations into one transaction
// — an interface's WithTx can't return the interface type itself while
// still matching the concrete repositories' methods.
type Processor struct {
	pool     *pgxpool.Pool
	chunks   *repository.ChunkRepository
	sessions *repository.SessionRepository
	memory   MemoryRecorder
	delta    float64
	wMin     float64
	wMax     float64
	rMem     int
	metrics  observability.RagMetrics
}

// Params configures a Processor. Delta/WMin/WMax/RMem use spec defaults
// when zero.
type Params struct {
	Pool     *pgxpool.Pool
	Chunks   *repository.ChunkRepository
	Sessions *repository.SessionRepository
	Memory   MemoryRecorder
	Delta    float64
	WMin     float64
	WMax     float64
	RMem     int
	Metrics  observability.RagMetrics
}

// New creates a Processor.
func New(p Params) *Processor {
	delta := p.Delta
	if delta == 0 {
		delta = defaultDelta
	}

	wMin, wMax := p.WMin, p.WMax
	if wMin == 0 && wMax == 0 {
		wMin, wMax = models.WeightMin, models.WeightMax
	}

	rMem := p.RMem
	if rMem <= 0 {
		rMem = 3
	}

	return &Processor{
		pool: p.Pool, chunks: p.Chunks, sessions: p.Sessions, memory: p.Memory,
		delta: delta, wMin: wMin, wMax: wMax, rMem: rMem, metrics: p.Metrics,
	}
}

// Result is the outcome of applying feedback to one session.
type Result struct {
	FeedbackStatus        models.FeedbackStatus
	WorkflowMemoryCreated bool
}

// Apply implements spec §4.8: loads the session for update, rejects a
// second application to an already-finalised session, commits chunk weight
// and counter mutations together with the session status update in one
// transaction, then — outside that transaction — attempts to compose and
// record a workflow memory synchronously when the feedback was correct and
// named at least one useful chunk. Used by the single-session feedback
// endpoint, where the caller can afford to wait on the embed-and-record
// round trip.
func (p *Processor) Apply(ctx context.Context, sessionID int64, req *models.SubmitFeedbackRequest) (*Result, error) {
	status, usefulness, err := p.applyWeightsAndStatus(ctx, sessionID, req)
	if err != nil {
		return nil, err
	}

	result := &Result{FeedbackStatus: status}

	if status == models.FeedbackCorrect {
		result.WorkflowMemoryCreated = p.tryRecordMemory(ctx, sessionID, usefulness)
	}

	return result, nil
}

// ApplyAsync does the same transactional weight/status work as Apply, but
// instead of embedding and recording the workflow memory in-process, it
// enqueues a WorkflowMemoryArgs job on inserter. Used by the bulk feedback
// endpoint (spec §4.8 bulk feedback), so a request touching up to 500
// sessions doesn't block on 500 embedding calls. A nil inserter skips
// workflow-memory creation.
func (p *Processor) ApplyAsync(ctx context.Context, sessionID int64, req *models.SubmitFeedbackRequest, inserter jobs.JobInserter) (*Result, error) {
	status, usefulness, err := p.applyWeightsAndStatus(ctx, sessionID, req)
	if err != nil {
		return nil, err
	}

	result := &Result{FeedbackStatus: status}

	if status != models.FeedbackCorrect || inserter == nil {
		return result, nil
	}

	var usefulChunkIDs []uuid.UUID
	for chunkID, useful := range usefulness {
		if useful {
			usefulChunkIDs = append(usefulChunkIDs, chunkID)
		}
	}

	if len(usefulChunkIDs) == 0 {
		if p.metrics != nil {
			p.metrics.RecordWorkflowMemoryCreated(ctx, "skipped")
		}

		return result, nil
	}

	session, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Error("feedback: load session for async workflow memory failed", "session_id", sessionID, "error", err)
		return result, nil
	}

	summary := buildSummary(ctx, p.chunks, session, usefulChunkIDs)

	if err := inserter.InsertWorkflowMemoryJob(ctx, jobs.WorkflowMemoryArgs{SessionID: sessionID, Summary: summary}); err != nil {
		slog.Error("feedback: enqueue workflow memory job failed", "session_id", sessionID, "error", err)
		return result, nil
	}

	result.WorkflowMemoryCreated = true

	return result, nil
}

// applyWeightsAndStatus does the transactional part common to Apply and
// ApplyAsync: lock, bump counters, adjust weights, apply session status.
func (p *Processor) applyWeightsAndStatus(ctx context.Context, sessionID int64, req *models.SubmitFeedbackRequest) (models.FeedbackStatus, map[uuid.UUID]bool, error) {
	status := models.FeedbackIncorrect
	if req.IsCorrect {
		status = models.FeedbackCorrect
	}

	usefulness := make(map[uuid.UUID]bool, len(req.ChunkFeedback))
	for _, cf := range req.ChunkFeedback {
		usefulness[cf.ChunkID] = cf.Useful
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("begin feedback transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sessions := p.sessions.WithTx(tx)
	chunks := p.chunks.WithTx(tx)

	current, err := sessions.LockForFeedback(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	if current != models.FeedbackPending {
		return "", nil, apperrors.NewAlreadyFinalisedError(fmt.Sprintf("session %d feedback already finalised as %s", sessionID, current))
	}

	for chunkID, useful := range usefulness {
		if err := chunks.BumpCounters(ctx, chunkID, useful); err != nil {
			return "", nil, fmt.Errorf("bump counters for chunk %s: %w", chunkID, err)
		}

		delta := p.delta
		if !useful {
			delta = -p.delta
		}

		if _, err := chunks.AdjustWeight(ctx, chunkID, delta, p.wMin, p.wMax); err != nil {
			return "", nil, fmt.Errorf("adjust weight for chunk %s: %w", chunkID, err)
		}

		if p.metrics != nil {
			direction := "increase"
			if !useful {
				direction = "decrease"
			}

			p.metrics.RecordChunkWeightAdjusted(ctx, direction)
		}
	}

	if err := sessions.ApplyFeedback(ctx, sessionID, status, req.CorrectionText, usefulness); err != nil {
		return "", nil, fmt.Errorf("apply session feedback: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", nil, fmt.Errorf("commit feedback transaction: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordFeedback(ctx, string(status))
	}

	return status, usefulness, nil
}

// tryRecordMemory composes and records a workflow memory for sessionID when
// at least one chunk was marked useful. A failure here is logged and does
// not roll back the already-committed weight updates (spec §4.8 failure
// semantics: "the memory is a secondary learning signal, not
// authoritative"). Retried up to R_mem times with a short linear backoff.
func (p *Processor) tryRecordMemory(ctx context.Context, sessionID int64, usefulness map[uuid.UUID]bool) bool {
	var usefulChunkIDs []uuid.UUID

	for chunkID, useful := range usefulness {
		if useful {
			usefulChunkIDs = append(usefulChunkIDs, chunkID)
		}
	}

	if len(usefulChunkIDs) == 0 {
		if p.metrics != nil {
			p.metrics.RecordWorkflowMemoryCreated(ctx, "skipped")
		}

		return false
	}

	session, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Error("feedback: load session for workflow memory failed", "session_id", sessionID, "error", err)

		if p.metrics != nil {
			p.metrics.RecordWorkflowMemoryCreated(ctx, "failed")
		}

		return false
	}

	summary := buildSummary(ctx, p.chunks, session, usefulChunkIDs)

	var lastErr error

	for attempt := 1; attempt <= p.rMem; attempt++ {
		_, err := p.memory.Record(ctx, summary, sessionID, usefulChunkIDs)
		if err == nil {
			if p.metrics != nil {
				p.metrics.RecordWorkflowMemoryCreated(ctx, "success")
			}

			return true
		}

		lastErr = err

		if errors.Is(err, apperrors.ErrConflict) {
			if p.metrics != nil {
				p.metrics.RecordWorkflowMemoryCreated(ctx, "conflict")
			}

			return false
		}

		if attempt < p.rMem {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}

	slog.Error("feedback: record workflow memory failed after retries",
		"session_id", sessionID, "attempts", p.rMem, "error", lastErr,
	)

	if p.metrics != nil {
		p.metrics.RecordWorkflowMemoryCreated(ctx, "failed")
	}

	return false
}

// chunkGetter is the narrow dependency buildSummary needs to resolve chunk
// provenance, satisfied structurally by *repository.ChunkRepository.
type chunkGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Chunk, error)
}

// buildSummary resolves the provenance of each useful chunk and composes
// the deterministic reasoning summary text (spec §4.3): it must include the
// query and the set of useful chunk provenances. Chunks that fail to load
// (should not happen — they come from the session's own retrieved list) are
// skipped rather than aborting the summary.
func buildSummary(ctx context.Context, chunks chunkGetter, session *models.Session, usefulChunkIDs []uuid.UUID) string {
	retrieved := make([]generator.RetrievedChunk, 0, len(usefulChunkIDs))

	for _, id := range usefulChunkIDs {
		chunk, err := chunks.Get(ctx, id)
		if err != nil {
			slog.Warn("feedback: load chunk for workflow summary failed", "chunk_id", id, "error", err)
			continue
		}

		retrieved = append(retrieved, generator.RetrievedChunk{Repo: chunk.Repo, Path: chunk.Path, Section: chunk.Section})
	}

	return workflow.BuildSummary(session.Query, retrieved, "")
}
