// Package workflow implements the Workflow Memory component (spec §4.3):
// durable, append-only records of past reasoning chains, retrievable by
// similarity to a new query so the retriever can boost chunks that proved
// useful before.
package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/models"
)

// Embedder is the narrow embedding dependency the workflow service needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence dependency, satisfied by
// repository.WorkflowMemoryRepository.
type Store interface {
	FindSimilar(ctx context.Context, queryVec []float32, topM int, minSim float64) ([]models.WorkflowHit, error)
	Record(ctx context.Context, summaryVec []float32, sourceSessionID int64, usefulChunkIDs []uuid.UUID) (*models.WorkflowMemory, error)
	Count(ctx context.Context) (int64, error)
}

// Service wraps the workflow memory store with the embedding step needed to
// turn a query or a reasoning summary into a comparable vector.
type Service struct {
	store    Store
	embedder Embedder
}

// New creates a Service over store using embedder to vectorize queries and
// summaries.
func New(store Store, embedder Embedder) *Service {
	return &Service{store: store, embedder: embedder}
}

// FindSimilar embeds query and returns up to topM successful workflow
// memories with similarity >= minSim (spec §4.3 find_similar). A nil or
// empty result means no boost applies, not an error.
func (s *Service) FindSimilar(ctx context.Context, query string, topM int, minSim float64) ([]models.WorkflowHit, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.store.FindSimilar(ctx, queryVec, topM, minSim)
}

// Record embeds summary and persists a new workflow memory tied to
// sourceSessionID, with the chunk ids that were marked useful for that
// session. Duplicate sourceSessionID is rejected by the store as
// ErrConflict.
func (s *Service) Record(ctx context.Context, summary string, sourceSessionID int64, usefulChunkIDs []uuid.UUID) (*models.WorkflowMemory, error) {
	summaryVec, err := s.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, err
	}

	return s.store.Record(ctx, summaryVec, sourceSessionID, usefulChunkIDs)
}

// Count returns the total number of recorded workflow memories, for the
// STATS endpoint.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
