package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/formbricks/ragcore/internal/api/response"
	"github.com/formbricks/ragcore/internal/api/validation"
	"github.com/formbricks/ragcore/internal/models"
)

// defaultWorkflowTopM and defaultMinSimilarity mirror the config defaults
// (WORKFLOW_TOP_M, MIN_MEMORY_SIM) so an admin search without top_m/min_sim
// behaves like the automatic boost lookup.
const (
	defaultWorkflowTopM  = 3
	defaultMinSimilarity = 0.75
)

// WorkflowSearcher is the WORKFLOW SEARCH dependency (spec §4.3, §6).
type WorkflowSearcher interface {
	FindSimilar(ctx context.Context, query string, topM int, minSim float64) ([]models.WorkflowHit, error)
}

// WorkflowHandler serves the admin workflow-memory search endpoint.
type WorkflowHandler struct {
	workflow WorkflowSearcher
}

// NewWorkflowHandler creates a WorkflowHandler.
func NewWorkflowHandler(workflow WorkflowSearcher) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// Search handles POST /v1/workflow-memories/search (WORKFLOW SEARCH, spec §6).
func (h *WorkflowHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchWorkflowMemoriesRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	topM := defaultWorkflowTopM
	if req.TopM != nil {
		topM = *req.TopM
	}

	minSim := defaultMinSimilarity
	if req.MinSim != nil {
		minSim = *req.MinSim
	}

	hits, err := h.workflow.FindSimilar(r.Context(), req.Query, topM, minSim)
	if err != nil {
		slog.Error("workflow memory search failed", "error", err)
		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, models.SearchWorkflowMemoriesResponse{Hits: hits})
}
