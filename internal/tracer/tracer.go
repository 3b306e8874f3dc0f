// Package tracer implements the Workflow Tracer (spec §4.5): a scoped object
// bound to one session, recording retrieved chunks and per-phase timings for
// the persisted reasoning trace.
package tracer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/models"
)

// Tracer is single-threaded per request per spec §4.5; every call in this
// repository, including the Generator's retry loop (which runs in the
// caller's goroutine), comes from the request goroutine. Its state is still
// guarded by a mutex so concurrent use is safe.
type Tracer struct {
	mu        sync.Mutex
	retrieved []models.Retrieval
	steps     []models.ReasoningStep
	starts    map[models.Phase]time.Time
}

// New creates an empty Tracer for one session.
func New() *Tracer {
	return &Tracer{
		starts: make(map[models.Phase]time.Time),
	}
}

// AddRetrieved records one retrieval result, preserving insertion order.
func (t *Tracer) AddRetrieved(chunkID uuid.UUID, rank int, similarity, score float64, workflowBoosted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.retrieved = append(t.retrieved, models.Retrieval{
		ChunkID:         chunkID,
		Rank:            rank,
		RawSimilarity:   similarity,
		EffectiveScore:  score,
		WorkflowBoosted: workflowBoosted,
	})
}

// AddStep records a reasoning step, preserving insertion order.
func (t *Tracer) AddStep(phase models.Phase, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps = append(t.steps, models.ReasoningStep{
		Phase:       phase,
		Description: description,
	})
}

// MarkPhaseStart records the wall-clock start of phase.
func (t *Tracer) MarkPhaseStart(phase models.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.starts[phase] = time.Now()
}

// MarkPhaseEnd records the duration of phase since its MarkPhaseStart call,
// appending a reasoning step with that duration. A phase ended without a
// matching start records a zero duration rather than panicking.
func (t *Tracer) MarkPhaseEnd(phase models.Phase, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.starts[phase]

	var duration time.Duration
	if ok {
		duration = time.Since(start)
	}

	t.steps = append(t.steps, models.ReasoningStep{
		Phase:       phase,
		Description: description,
		StartedAt:   start,
		Duration:    duration,
	})
}

// Snapshot produces the persistable reasoning trace and retrieved list.
// Idempotent: repeated calls return independent copies of the same data.
func (t *Tracer) Snapshot() (steps []models.ReasoningStep, retrieved []models.Retrieval) {
	t.mu.Lock()
	defer t.mu.Unlock()

	steps = make([]models.ReasoningStep, len(t.steps))
	copy(steps, t.steps)

	retrieved = make([]models.Retrieval, len(t.retrieved))
	copy(retrieved, t.retrieved)

	return steps, retrieved
}
