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

// AskOrchestrator is the ASK dependency (spec §4.9, §6): embed, retrieve,
// generate, persist, in one call.
type AskOrchestrator interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
}

// AskHandler serves the public ASK endpoint.
type AskHandler struct {
	orchestrator AskOrchestrator
}

// NewAskHandler creates an AskHandler.
func NewAskHandler(orchestrator AskOrchestrator) *AskHandler {
	return &AskHandler{orchestrator: orchestrator}
}

// Ask handles POST /v1/ask. Public, no auth (spec §6).
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest

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

	resp, err := h.orchestrator.Ask(r.Context(), &req)
	if err != nil {
		slog.Error("ask failed", "error", err)
		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}
