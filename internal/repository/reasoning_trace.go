package repository

import (
	"encoding/json"
	"fmt"

	"github.com/formbricks/ragcore/internal/models"
)

// reasoningTraceJSON marshals a reasoning trace for the sessions.reasoning_trace
// jsonb column. Marshal failures collapse to an empty array rather than
// aborting session persistence — a missing trace is a diagnostic loss, not a
// correctness one (the trace is not load-bearing for retrieval or feedback).
func reasoningTraceJSON(steps []models.ReasoningStep) []byte {
	if steps == nil {
		steps = []models.ReasoningStep{}
	}

	b, err := json.Marshal(steps)
	if err != nil {
		return []byte("[]")
	}

	return b
}

func decodeReasoningTrace(raw []byte) ([]models.ReasoningStep, error) {
	if len(raw) == 0 {
		return []models.ReasoningStep{}, nil
	}

	var steps []models.ReasoningStep
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("unmarshal reasoning trace: %w", err)
	}

	return steps, nil
}
