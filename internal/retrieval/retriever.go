// Package retrieval implements the composite accuracy-weighted,
// workflow-boosted ranker (spec §4.4).
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// hardCandidateCap bounds the pre-ranking fanout N regardless of K, so a
// caller-supplied large K can't blow out retrieval latency (spec §4.4 edge
// cases: "N is capped at a hard upper bound (e.g., 200)").
const hardCandidateCap = 200

// ChunkStore is the subset of ChunkRepository the Retriever depends on.
type ChunkStore interface {
	FetchCandidates(ctx context.Context, queryVec []float32, n int) ([]models.ChunkCandidate, error)
}

// Retriever is the Retriever component (spec §2 item 4, §4.4).
type Retriever struct {
	store ChunkStore
	beta  float64
}

// New creates a Retriever backed by store, using beta as the workflow-boost
// coefficient (spec §4.4 step 3, default 0.2).
func New(store ChunkStore, beta float64) *Retriever {
	return &Retriever{store: store, beta: beta}
}

// Result is one ranked retrieval (spec §4.4 RetrievalResult).
type Result struct {
	ChunkID         uuid.UUID
	Chunk           models.Chunk
	RawSimilarity   float64
	EffectiveScore  float64
	Rank            int
	WorkflowBoosted bool
}

// Retrieve returns the top-K chunks ranked by composite score (spec §4.4).
// queryVec must be non-empty. workflowHits may be nil/empty when
// workflow-learning is disabled or no hit was found.
func (r *Retriever) Retrieve(ctx context.Context, queryVec []float32, k int, workflowHits []models.WorkflowHit) ([]Result, error) {
	if len(queryVec) == 0 {
		return nil, apperrors.NewInvalidInputError("query_vec", "query embedding must not be empty")
	}

	if k <= 0 {
		return nil, apperrors.NewInvalidInputError("k", "k must be positive")
	}

	n := 3 * k
	if k+10 > n {
		n = k + 10
	}

	if n > hardCandidateCap {
		n = hardCandidateCap
	}

	candidates, err := r.store.FetchCandidates(ctx, queryVec, n)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	// Boost set B: union of useful_chunk_ids across hits, each scaled by
	// that memory's own similarity to the query. A chunk that appears in
	// multiple hits uses the strongest (max) similarity among them.
	maxMemSim := make(map[uuid.UUID]float64)

	for _, hit := range workflowHits {
		for _, id := range hit.UsefulChunkIDs {
			if cur, ok := maxMemSim[id]; !ok || hit.Similarity > cur {
				maxMemSim[id] = hit.Similarity
			}
		}
	}

	results := make([]Result, 0, len(candidates))

	for _, cand := range candidates {
		effective := cand.RawSimilarity * cand.AccuracyWeight

		boosted := false

		if memSim, ok := maxMemSim[cand.ID]; ok {
			effective *= 1 + r.beta*memSim
			boosted = true
		}

		results = append(results, Result{
			ChunkID:         cand.ID,
			Chunk:           cand.Chunk,
			RawSimilarity:   cand.RawSimilarity,
			EffectiveScore:  effective,
			WorkflowBoosted: boosted,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].EffectiveScore != results[j].EffectiveScore {
			return results[i].EffectiveScore > results[j].EffectiveScore
		}

		if results[i].RawSimilarity != results[j].RawSimilarity {
			return results[i].RawSimilarity > results[j].RawSimilarity
		}

		return results[i].ChunkID.String() < results[j].ChunkID.String()
	})

	if len(results) > k {
		results = results[:k]
	}

	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}
