// Package workers provides River job workers for async processing.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/jobs"
	"github.com/formbricks/ragcore/internal/models"
	"github.com/formbricks/ragcore/internal/observability"
)

// workflowMemoryRecorder is the minimal interface the worker needs from the
// workflow service.
type workflowMemoryRecorder interface {
	Record(ctx context.Context, summary string, sourceSessionID int64, usefulChunkIDs []uuid.UUID) (*models.WorkflowMemory, error)
}

// sessionUsefulChunks is the minimal interface needed to look up which
// chunks were marked useful for a session.
type sessionUsefulChunks interface {
	UsefulChunkIDs(ctx context.Context, sessionID int64) ([]uuid.UUID, error)
}

// WorkflowMemoryWorker creates a workflow memory for a training session that
// was resolved via the bulk feedback endpoint (spec §4.8): the session's
// useful chunk ids are looked up, the summary is embedded, and the result is
// durably recorded.
type WorkflowMemoryWorker struct {
	river.WorkerDefaults[jobs.WorkflowMemoryArgs]

	sessions sessionUsefulChunks
	recorder workflowMemoryRecorder
	metrics  observability.RagMetrics
}

// NewWorkflowMemoryWorker creates a worker that looks up useful chunks for
// the session and records a workflow memory. metrics may be nil when
// metrics are disabled.
func NewWorkflowMemoryWorker(
	sessions sessionUsefulChunks,
	recorder workflowMemoryRecorder,
	metrics observability.RagMetrics,
) *WorkflowMemoryWorker {
	return &WorkflowMemoryWorker{sessions: sessions, recorder: recorder, metrics: metrics}
}

const workflowMemoryTimeout = 30 * time.Second

// Timeout limits how long a single workflow memory job can run.
func (w *WorkflowMemoryWorker) Timeout(*river.Job[jobs.WorkflowMemoryArgs]) time.Duration {
	return workflowMemoryTimeout
}

// Work loads the session's useful chunks, embeds the summary, and records
// the workflow memory. A conflict (memory already recorded for this
// session) is treated as terminal, not retried.
func (w *WorkflowMemoryWorker) Work(ctx context.Context, job *river.Job[jobs.WorkflowMemoryArgs]) error {
	args := job.Args
	start := time.Now()

	usefulChunkIDs, err := w.sessions.UsefulChunkIDs(ctx, args.SessionID)
	if err != nil {
		w.recordOutcome(ctx, "failed", start)

		slog.Error("workflow memory: lookup useful chunks failed",
			"session_id", args.SessionID,
			"error", err,
		)

		return fmt.Errorf("lookup useful chunks: %w", err)
	}

	if len(usefulChunkIDs) == 0 {
		w.recordOutcome(ctx, "skipped", start)

		slog.Info("workflow memory: skipped (no useful chunks)",
			"session_id", args.SessionID,
		)

		return nil
	}

	_, err = w.recorder.Record(ctx, args.Summary, args.SessionID, usefulChunkIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			w.recordOutcome(ctx, "conflict", start)

			slog.Info("workflow memory: already recorded",
				"session_id", args.SessionID,
			)

			return nil
		}

		isLastAttempt := job.Attempt >= job.MaxAttempts

		w.recordOutcome(ctx, "failed", start)

		if isLastAttempt {
			slog.Error("workflow memory: record failed (final attempt)",
				"session_id", args.SessionID,
				"error", err,
			)

			return nil
		}

		return fmt.Errorf("record workflow memory: %w", err)
	}

	slog.Info("workflow memory: recorded",
		"session_id", args.SessionID,
		"useful_chunk_count", len(usefulChunkIDs),
	)

	w.recordOutcome(ctx, "success", start)

	return nil
}

func (w *WorkflowMemoryWorker) recordOutcome(ctx context.Context, outcome string, _ time.Time) {
	if w.metrics != nil {
		w.metrics.RecordWorkflowMemoryCreated(ctx, outcome)
	}
}
