package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/api/response"
	"github.com/formbricks/ragcore/internal/api/validation"
	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// ChunkStore is the CHUNK EDIT (and seeding) dependency.
type ChunkStore interface {
	Create(ctx context.Context, req *models.CreateChunkRequest) (*models.Chunk, error)
	SetWeight(ctx context.Context, id uuid.UUID, weight, wMin, wMax float64) (*models.Chunk, error)
}

// ChunkHandler serves the admin chunk endpoints.
type ChunkHandler struct {
	chunks ChunkStore
	wMin   float64
	wMax   float64
}

// NewChunkHandler creates a ChunkHandler. wMin/wMax clamp manual weight edits
// to the same range the feedback-driven adjustment uses (spec §4.2 I1).
func NewChunkHandler(chunks ChunkStore, wMin, wMax float64) *ChunkHandler {
	return &ChunkHandler{chunks: chunks, wMin: wMin, wMax: wMax}
}

// Create handles POST /v1/chunks: the seeding/ingestion-adjacent path an
// external ingester uses to store a pre-embedded chunk. Chunking and
// crawling themselves stay out of scope (spec §1 Non-goals); this endpoint
// only accepts the already-produced (content, embedding) pair.
func (h *ChunkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChunkRequest

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

	chunk, err := h.chunks.Create(r.Context(), &req)
	if err != nil {
		slog.Error("create chunk failed", "error", err)
		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusCreated, chunk)
}

// AdjustWeight handles PATCH /v1/chunks/{id} (CHUNK EDIT, spec §6): sets
// accuracy_weight atomically, clamped to [W_min, W_max].
func (h *ChunkHandler) AdjustWeight(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		response.RespondBadRequest(w, "Invalid chunk id")
		return
	}

	var req models.AdjustChunkWeightRequest

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

	if req.Reason != "" {
		slog.Info("manual chunk weight edit", "chunk_id", id, "new_weight", req.AccuracyWeight, "reason", req.Reason)
	}

	chunk, err := h.chunks.SetWeight(r.Context(), id, req.AccuracyWeight, h.wMin, h.wMax)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "chunk not found")
			return
		}

		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, chunk)
}
