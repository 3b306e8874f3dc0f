package models

import (
	"time"

	"github.com/google/uuid"
)

// WeightMin and WeightMax bound Chunk.AccuracyWeight (I1). They mirror the
// config-driven W_MIN/W_MAX and the accuracy_weight CHECK constraint in
// migrations, and serve as compile-time fallbacks for code paths (tests, the
// feedback processor's zero-config defaults) that need a constant.
const (
	WeightMin = 0.5
	WeightMax = 2.0
	// WeightInit is the accuracy_weight assigned to a newly ingested chunk.
	WeightInit = 1.0
)

// Chunk is an immutable piece of source content plus a mutable learning
// signal (AccuracyWeight, TimesRetrieved, TimesUseful) that the feedback
// processor adjusts over time.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Repo      string    `json:"repo"`
	Path      string    `json:"path"`
	Section   string    `json:"section"`
	Embedding []float32 `json:"-"`

	AccuracyWeight float64 `json:"accuracy_weight"`
	TimesRetrieved int64   `json:"times_retrieved"`
	TimesUseful    int64   `json:"times_useful"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkCandidate is a chunk paired with its raw cosine similarity to a query
// vector, as returned by ChunkRepository.FetchCandidates.
type ChunkCandidate struct {
	Chunk
	RawSimilarity float64 `json:"raw_similarity"`
}

// CreateChunkRequest is the ingestion payload for a new chunk. Ingestion
// itself is an external collaborator (spec §1 Non-goals), but this repo
// still exposes the operation so a CHUNK EDIT-adjacent seeding path exists
// for tests and local bootstrap.
type CreateChunkRequest struct {
	Content   string    `json:"content" validate:"required,no_null_bytes,min=1"`
	Repo      string    `json:"repo" validate:"required,no_null_bytes,max=255"`
	Path      string    `json:"path" validate:"required,no_null_bytes,max=1024"`
	Section   string    `json:"section" validate:"omitempty,no_null_bytes,max=255"`
	Embedding []float32 `json:"embedding" validate:"required"`
}

// AdjustChunkWeightRequest is the manual CHUNK EDIT payload (SPEC_FULL §6):
// an administrator setting a chunk's accuracy_weight directly, bypassing the
// feedback-driven Δ adjustment.
type AdjustChunkWeightRequest struct {
	AccuracyWeight float64 `json:"accuracy_weight" validate:"required,min=0.5,max=2.0"`
	Reason         string  `json:"reason,omitempty" validate:"omitempty,no_null_bytes,max=500"`
}
