package tracer

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/models"
)

func TestTracerPreservesInsertionOrder(t *testing.T) {
	tr := New()

	tr.AddStep(models.PhaseEmbed, "embedded query")
	tr.AddStep(models.PhaseRetrieve, "retrieved chunks")
	tr.AddStep(models.PhaseGenerate, "generated answer")

	steps, _ := tr.Snapshot()

	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}

	wantOrder := []models.Phase{models.PhaseEmbed, models.PhaseRetrieve, models.PhaseGenerate}
	for i, phase := range wantOrder {
		if steps[i].Phase != phase {
			t.Errorf("step %d: expected phase %s, got %s", i, phase, steps[i].Phase)
		}
	}
}

func TestTracerMarkPhaseRecordsDuration(t *testing.T) {
	tr := New()

	tr.MarkPhaseStart(models.PhaseEmbed)
	time.Sleep(time.Millisecond)
	tr.MarkPhaseEnd(models.PhaseEmbed, "embed complete")

	steps, _ := tr.Snapshot()
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}

	if steps[0].Duration <= 0 {
		t.Errorf("expected positive duration, got %v", steps[0].Duration)
	}
}

func TestTracerSnapshotIsIdempotent(t *testing.T) {
	tr := New()
	tr.AddRetrieved(uuid.New(), 1, 0.9, 1.1, false)

	steps1, retrieved1 := tr.Snapshot()
	steps2, retrieved2 := tr.Snapshot()

	if len(steps1) != len(steps2) || len(retrieved1) != len(retrieved2) {
		t.Fatalf("snapshot not idempotent")
	}
}

func TestTracerAddRetrievedPreservesOrder(t *testing.T) {
	tr := New()

	idA, idB := uuid.New(), uuid.New()
	tr.AddRetrieved(idA, 1, 0.9, 0.9, false)
	tr.AddRetrieved(idB, 2, 0.8, 1.6, true)

	_, retrieved := tr.Snapshot()
	if len(retrieved) != 2 {
		t.Fatalf("expected 2 retrievals, got %d", len(retrieved))
	}

	if retrieved[0].ChunkID != idA || retrieved[1].ChunkID != idB {
		t.Errorf("expected insertion order idA, idB")
	}

	if !retrieved[1].WorkflowBoosted {
		t.Errorf("expected second retrieval to be marked workflow_boosted")
	}
}
