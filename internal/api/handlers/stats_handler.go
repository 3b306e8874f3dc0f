package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/formbricks/ragcore/internal/api/response"
	"github.com/formbricks/ragcore/internal/models"
)

const statsTopChunkLimit = 10

// StatsSessionStore is the session-counting subset of SessionStore the STATS
// endpoint needs.
type StatsSessionStore interface {
	Count(ctx context.Context, filters *models.ListSessionsFilters) (int64, error)
	TimeRange(ctx context.Context) (*time.Time, *time.Time, error)
}

// StatsChunkStore is the chunk-ranking dependency for the STATS endpoint.
type StatsChunkStore interface {
	TopByWeight(ctx context.Context, limit int) ([]models.Chunk, error)
	BottomByWeight(ctx context.Context, limit int) ([]models.Chunk, error)
}

// StatsWorkflowStore is the workflow-memory-counting dependency.
type StatsWorkflowStore interface {
	Count(ctx context.Context) (int64, error)
}

// StatsHandler serves the admin STATS endpoint (SPEC_FULL §6, ported from
// the original's admin_service.get_admin_stats).
type StatsHandler struct {
	sessions StatsSessionStore
	chunks   StatsChunkStore
	workflow StatsWorkflowStore
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(sessions StatsSessionStore, chunks StatsChunkStore, workflow StatsWorkflowStore) *StatsHandler {
	return &StatsHandler{sessions: sessions, chunks: chunks, workflow: workflow}
}

// Get handles GET /v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.sessions.Count(ctx, &models.ListSessionsFilters{})
	if err != nil {
		slog.Error("stats: count total sessions failed", "error", err)
		response.WriteError(w, err)

		return
	}

	correct, err := h.countByStatus(ctx, models.FeedbackCorrect)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	incorrect, err := h.countByStatus(ctx, models.FeedbackIncorrect)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	pending, err := h.countByStatus(ctx, models.FeedbackPending)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	var accuracyRate float64
	if judged := correct + incorrect; judged > 0 {
		accuracyRate = float64(correct) / float64(judged)
	}

	workflowCount, err := h.workflow.Count(ctx)
	if err != nil {
		slog.Error("stats: count workflow memories failed", "error", err)
		response.WriteError(w, err)

		return
	}

	topChunks, err := h.chunks.TopByWeight(ctx, statsTopChunkLimit)
	if err != nil {
		slog.Error("stats: top chunks failed", "error", err)
		response.WriteError(w, err)

		return
	}

	bottomChunks, err := h.chunks.BottomByWeight(ctx, statsTopChunkLimit)
	if err != nil {
		slog.Error("stats: underperforming chunks failed", "error", err)
		response.WriteError(w, err)

		return
	}

	earliest, latest, err := h.sessions.TimeRange(ctx)
	if err != nil {
		slog.Error("stats: session time range failed", "error", err)
		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, models.StatsResponse{
		TotalSessions:         total,
		CorrectSessions:       correct,
		IncorrectSessions:     incorrect,
		PendingSessions:       pending,
		AccuracyRate:          accuracyRate,
		WorkflowMemoryCount:   workflowCount,
		TopChunks:             topChunks,
		UnderperformingChunks: bottomChunks,
		EarliestSession:       earliest,
		LatestSession:         latest,
	})
}

func (h *StatsHandler) countByStatus(ctx context.Context, status models.FeedbackStatus) (int64, error) {
	return h.sessions.Count(ctx, &models.ListSessionsFilters{FeedbackStatus: &status})
}
