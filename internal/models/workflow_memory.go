package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowMemory is an embedding summarising a past successful reasoning,
// plus the chunk ids that were useful in it (spec §3). Append-only; created
// by the Feedback Processor, never mutated (I4).
type WorkflowMemory struct {
	ID               uuid.UUID   `json:"id"`
	SummaryEmbedding []float32   `json:"-"`
	SourceSessionID  int64       `json:"source_session_id"`
	UsefulChunkIDs   []uuid.UUID `json:"useful_chunk_ids"`
	IsSuccessful     bool        `json:"is_successful"`
	CreatedAt        time.Time   `json:"created_at"`
}

// WorkflowHit pairs a workflow memory with its cosine similarity to the
// current query, as returned by WorkflowMemoryRepository.FindSimilar.
type WorkflowHit struct {
	WorkflowMemory
	Similarity float64 `json:"similarity"`
}

// SearchWorkflowMemoriesRequest is the admin WORKFLOW SEARCH payload.
type SearchWorkflowMemoriesRequest struct {
	Query  string `json:"query" validate:"required,no_null_bytes,min=1"`
	TopM   *int   `json:"top_m,omitempty" validate:"omitempty,min=1,max=50"`
	MinSim *float64 `json:"min_sim,omitempty" validate:"omitempty,min=-1,max=1"`
}

// SearchWorkflowMemoriesResponse is the admin WORKFLOW SEARCH response.
type SearchWorkflowMemoriesResponse struct {
	Hits []WorkflowHit `json:"hits"`
}

// StatsResponse is the admin STATS response: accuracy metrics, chunk
// performance extremes, workflow-memory counts, and the session time range,
// grounded on the original's get_admin_stats.
type StatsResponse struct {
	TotalSessions      int64      `json:"total_sessions"`
	CorrectSessions    int64      `json:"correct_sessions"`
	IncorrectSessions  int64      `json:"incorrect_sessions"`
	PendingSessions    int64      `json:"pending_sessions"`
	AccuracyRate       float64    `json:"accuracy_rate"`
	WorkflowMemoryCount int64     `json:"workflow_memory_count"`
	TopChunks          []Chunk    `json:"top_chunks"`
	UnderperformingChunks []Chunk `json:"underperforming_chunks"`
	EarliestSession    *time.Time `json:"earliest_session,omitempty"`
	LatestSession      *time.Time `json:"latest_session,omitempty"`
}
