package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackStatus is the tri-state lifecycle of a session's feedback (I3, I4).
type FeedbackStatus string

const (
	FeedbackPending   FeedbackStatus = "pending"
	FeedbackCorrect   FeedbackStatus = "correct"
	FeedbackIncorrect FeedbackStatus = "incorrect"
)

// Phase names a reasoning-trace step, shared by the tracer and the
// persisted ReasoningTrace.
type Phase string

const (
	PhaseEmbed          Phase = "embed"
	PhaseWorkflowLookup Phase = "workflow_lookup"
	PhaseRetrieve       Phase = "retrieve"
	PhaseGenerate       Phase = "generate"
	PhasePersist        Phase = "persist"
)

// ReasoningStep is one entry in a session's persisted reasoning trace
// (spec §4.5 snapshot output).
type ReasoningStep struct {
	Phase       Phase         `json:"phase"`
	Description string        `json:"description"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
}

// Retrieval is one row of a session's ordered retrieved list (I2).
type Retrieval struct {
	ChunkID         uuid.UUID `json:"chunk_id"`
	Rank            int       `json:"rank"`
	RawSimilarity   float64   `json:"raw_similarity"`
	EffectiveScore  float64   `json:"effective_score"`
	WorkflowBoosted bool      `json:"workflow_boosted"`
	// WasUseful is nil until feedback sets it ("unknown" per spec §3).
	WasUseful *bool `json:"was_useful,omitempty"`
}

// Session is one (query, answer, retrieved chunks, feedback) tuple — the
// unit of feedback attribution (spec §2 item 7).
type Session struct {
	ID             int64           `json:"id"`
	Query          string          `json:"query"`
	QueryEmbedding []float32       `json:"-"`
	Answer         string          `json:"answer"`
	Retrieved      []Retrieval     `json:"retrieved"`
	ReasoningTrace []ReasoningStep `json:"reasoning_trace"`
	FeedbackStatus FeedbackStatus  `json:"feedback_status"`
	CorrectionText *string         `json:"correction_text,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AskRequest is the public ASK payload (SPEC_FULL §6).
type AskRequest struct {
	Query string `json:"query" validate:"required,no_null_bytes,min=1"`
	K     *int   `json:"k,omitempty" validate:"omitempty,min=1"`
}

// Source is the provenance summary returned alongside an answer, letting a
// caller cite the chunks that fed the response without exposing internal ids
// beyond what's needed for the FEEDBACK follow-up call.
type Source struct {
	ChunkID        uuid.UUID `json:"chunk_id"`
	Repo           string    `json:"repo"`
	Path           string    `json:"path"`
	Section        string    `json:"section"`
	Rank           int       `json:"rank"`
	EffectiveScore float64   `json:"effective_score"`
}

// AskResponse is the public ASK response.
type AskResponse struct {
	SessionID int64    `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
}

// ListSessionsFilters supports the admin session-listing query parameters.
type ListSessionsFilters struct {
	FeedbackStatus *FeedbackStatus `form:"feedback_status" validate:"omitempty,oneof=pending correct incorrect"`
	Since          *time.Time      `form:"since"`
	Until          *time.Time      `form:"until"`
	Limit          int             `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset         int             `form:"offset" validate:"omitempty,min=0"`
}

// ListSessionsResponse is the admin session-listing response envelope.
type ListSessionsResponse struct {
	Data   []Session `json:"data"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// ChunkUsefulness is one entry of a feedback submission's per-chunk
// usefulness list (spec §4.8 input).
type ChunkUsefulness struct {
	ChunkID uuid.UUID `json:"chunk_id" validate:"required"`
	Useful  bool      `json:"useful"`
}

// SubmitFeedbackRequest is the single-session FEEDBACK payload.
type SubmitFeedbackRequest struct {
	IsCorrect      bool              `json:"is_correct"`
	ChunkFeedback  []ChunkUsefulness `json:"chunk_feedback" validate:"dive"`
	CorrectionText *string           `json:"correction_text,omitempty" validate:"omitempty,no_null_bytes"`
}

// SubmitFeedbackResponse reports the outcome of applying feedback, including
// whether a workflow memory was created (spec §4.8 step 3).
type SubmitFeedbackResponse struct {
	SessionID             int64 `json:"session_id"`
	FeedbackStatus        FeedbackStatus `json:"feedback_status"`
	WorkflowMemoryCreated bool  `json:"workflow_memory_created"`
}

// BulkFeedbackItem is one entry of the bulk-feedback payload.
type BulkFeedbackItem struct {
	SessionID      int64             `json:"session_id" validate:"required"`
	IsCorrect      bool              `json:"is_correct"`
	ChunkFeedback  []ChunkUsefulness `json:"chunk_feedback" validate:"dive"`
	CorrectionText *string           `json:"correction_text,omitempty" validate:"omitempty,no_null_bytes"`
}

// BulkFeedbackRequest submits feedback for multiple sessions; each item is
// processed independently (per-item isolation, grounded on the original's
// savepoint-per-item pattern — see internal/feedback).
type BulkFeedbackRequest struct {
	Items []BulkFeedbackItem `json:"items" validate:"required,min=1,max=500,dive"`
}

// BulkFeedbackItemResult reports one item's outcome; a failed item does not
// abort the batch.
type BulkFeedbackItemResult struct {
	SessionID int64  `json:"session_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BulkFeedbackResponse is the bulk-feedback response envelope.
type BulkFeedbackResponse struct {
	Results      []BulkFeedbackItemResult `json:"results"`
	SuccessCount int                      `json:"success_count"`
	FailureCount int                      `json:"failure_count"`
}
