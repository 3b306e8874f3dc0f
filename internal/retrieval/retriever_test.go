package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/models"
)

type fakeChunkStore struct {
	candidates []models.ChunkCandidate
}

func (f *fakeChunkStore) FetchCandidates(_ context.Context, _ []float32, n int) ([]models.ChunkCandidate, error) {
	if n > len(f.candidates) {
		n = len(f.candidates)
	}

	return f.candidates[:n], nil
}

func chunkCandidate(id uuid.UUID, similarity, weight float64) models.ChunkCandidate {
	return models.ChunkCandidate{
		Chunk:         models.Chunk{ID: id, AccuracyWeight: weight},
		RawSimilarity: similarity,
	}
}

func TestRetrieveRanksByEffectiveScore(t *testing.T) {
	idA, idB, idC := uuid.New(), uuid.New(), uuid.New()

	store := &fakeChunkStore{candidates: []models.ChunkCandidate{
		chunkCandidate(idA, 0.9, 1.0), // effective 0.9
		chunkCandidate(idB, 0.8, 2.0), // effective 1.6
		chunkCandidate(idC, 0.95, 0.5), // effective 0.475
	}}

	r := New(store, 0.2)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].ChunkID != idB {
		t.Errorf("expected idB ranked first (highest effective score), got %v", results[0].ChunkID)
	}

	if results[0].Rank != 1 || results[1].Rank != 2 || results[2].Rank != 3 {
		t.Errorf("expected ranks 1,2,3 in order, got %d,%d,%d", results[0].Rank, results[1].Rank, results[2].Rank)
	}
}

func TestRetrieveAppliesWorkflowBoostOnlyToBoostSet(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()

	store := &fakeChunkStore{candidates: []models.ChunkCandidate{
		chunkCandidate(idA, 0.9, 1.0),
		chunkCandidate(idB, 0.85, 1.0),
	}}

	r := New(store, 0.2)

	hits := []models.WorkflowHit{
		{WorkflowMemory: models.WorkflowMemory{UsefulChunkIDs: []uuid.UUID{idB}}, Similarity: 1.0},
	}

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 2, hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotA, gotB Result

	for _, res := range results {
		switch res.ChunkID {
		case idA:
			gotA = res
		case idB:
			gotB = res
		}
	}

	if gotA.WorkflowBoosted {
		t.Errorf("idA should not be boosted (not in boost set)")
	}

	if !gotB.WorkflowBoosted {
		t.Errorf("idB should be boosted (in boost set)")
	}

	// idB: 0.85 * 1.0 * (1 + 0.2*1.0) = 1.02, beats idA's 0.9 unboosted.
	if results[0].ChunkID != idB {
		t.Errorf("expected boosted idB to rank first, got %v", results[0].ChunkID)
	}
}

func TestRetrieveRejectsEmptyQueryVec(t *testing.T) {
	r := New(&fakeChunkStore{}, 0.2)

	_, err := r.Retrieve(context.Background(), nil, 5, nil)
	if err == nil {
		t.Fatal("expected error for empty query vector")
	}
}

func TestRetrieveReturnsFewerThanKWhenCandidatesScarce(t *testing.T) {
	idA := uuid.New()

	store := &fakeChunkStore{candidates: []models.ChunkCandidate{
		chunkCandidate(idA, 0.9, 1.0),
	}}

	r := New(store, 0.2)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestRetrieveDeterministicTieBreakByChunkID(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	// Sort to know which id is lexicographically smaller.
	first, second := ids[0], ids[1]
	if first.String() > second.String() {
		first, second = second, first
	}

	store := &fakeChunkStore{candidates: []models.ChunkCandidate{
		chunkCandidate(second, 0.9, 1.0),
		chunkCandidate(first, 0.9, 1.0),
	}}

	r := New(store, 0.2)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].ChunkID != first {
		t.Errorf("expected deterministic tie-break to put %v first, got %v", first, results[0].ChunkID)
	}
}
