package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/formbricks/ragcore/internal/api/response"
	"github.com/formbricks/ragcore/internal/api/validation"
	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// SessionStore is the INSPECT SESSION dependency (spec §6).
type SessionStore interface {
	Get(ctx context.Context, id int64) (*models.Session, error)
	List(ctx context.Context, filters *models.ListSessionsFilters) ([]models.Session, error)
	Count(ctx context.Context, filters *models.ListSessionsFilters) (int64, error)
}

// SessionHandler serves the admin session-inspection endpoints.
type SessionHandler struct {
	sessions SessionStore
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /v1/sessions/{id} (INSPECT SESSION, spec §6): the full
// session including its retrieved list (rank, raw similarity, effective
// score, workflow_boosted, was_useful per chunk). The chunks' accuracy
// weight and content are not included.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathInt64(r, "id")
	if err != nil {
		response.RespondBadRequest(w, "Invalid session id")
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, session)
}

// List handles GET /v1/sessions: admin listing with feedback-status/time-range
// filters and offset/limit pagination (SPEC_FULL §6 addition, mirrors the
// original's admin_service.list_sessions).
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListSessionsFilters{Limit: 50}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		response.RespondBadRequest(w, "Invalid query parameters: "+err.Error())
		return
	}

	sessions, err := h.sessions.List(r.Context(), filters)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	total, err := h.sessions.Count(r.Context(), filters)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, models.ListSessionsResponse{
		Data: sessions, Total: total, Limit: filters.Limit, Offset: filters.Offset,
	})
}

// parsePathInt64 parses a chi path parameter as an int64 session id.
func parsePathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, apperrors.NewInvalidInputError(name, "path parameter is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidInputError(name, "must be an integer")
	}

	return id, nil
}
