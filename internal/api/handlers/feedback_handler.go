package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/formbricks/ragcore/internal/api/response"
	"github.com/formbricks/ragcore/internal/api/validation"
	"github.com/formbricks/ragcore/internal/feedback"
	"github.com/formbricks/ragcore/internal/jobs"
	"github.com/formbricks/ragcore/internal/models"
)

// FeedbackApplier is the FEEDBACK single dependency (spec §4.8, §6).
type FeedbackApplier interface {
	Apply(ctx context.Context, sessionID int64, req *models.SubmitFeedbackRequest) (*feedback.Result, error)
}

// FeedbackBulkApplier is the FEEDBACK bulk dependency: same weight/status
// mutation, but workflow-memory recording is enqueued rather than awaited.
type FeedbackBulkApplier interface {
	ApplyAsync(ctx context.Context, sessionID int64, req *models.SubmitFeedbackRequest, inserter jobs.JobInserter) (*feedback.Result, error)
}

// FeedbackHandler serves the admin feedback endpoints.
type FeedbackHandler struct {
	single   FeedbackApplier
	bulk     FeedbackBulkApplier
	inserter jobs.JobInserter
}

// NewFeedbackHandler creates a FeedbackHandler. inserter may be nil if async
// bulk-memory recording is disabled, in which case bulk items skip memory
// creation (the weight/status mutation itself is unaffected).
func NewFeedbackHandler(single FeedbackApplier, bulk FeedbackBulkApplier, inserter jobs.JobInserter) *FeedbackHandler {
	return &FeedbackHandler{single: single, bulk: bulk, inserter: inserter}
}

// Submit handles POST /v1/sessions/{id}/feedback (FEEDBACK single, spec §6).
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parsePathInt64(r, "id")
	if err != nil {
		response.RespondBadRequest(w, "Invalid session id")
		return
	}

	var req models.SubmitFeedbackRequest

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

	result, err := h.single.Apply(r.Context(), sessionID, &req)
	if err != nil {
		slog.Error("submit feedback failed", "session_id", sessionID, "error", err)
		response.WriteError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, models.SubmitFeedbackResponse{
		SessionID: sessionID, FeedbackStatus: result.FeedbackStatus, WorkflowMemoryCreated: result.WorkflowMemoryCreated,
	})
}

// Bulk handles POST /v1/feedback/bulk (FEEDBACK bulk, spec §6): applies
// feedback to up to 500 sessions, collecting a per-item success/failure
// result instead of failing the whole request on one bad session id.
func (h *FeedbackHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req models.BulkFeedbackRequest

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

	results := make([]models.BulkFeedbackItemResult, 0, len(req.Items))

	var successCount, failureCount int

	for _, item := range req.Items {
		itemReq := &models.SubmitFeedbackRequest{
			IsCorrect: item.IsCorrect, ChunkFeedback: item.ChunkFeedback, CorrectionText: item.CorrectionText,
		}

		_, err := h.bulk.ApplyAsync(r.Context(), item.SessionID, itemReq, h.inserter)
		if err != nil {
			failureCount++

			results = append(results, models.BulkFeedbackItemResult{
				SessionID: item.SessionID, Success: false, Error: err.Error(),
			})

			continue
		}

		successCount++

		results = append(results, models.BulkFeedbackItemResult{SessionID: item.SessionID, Success: true})
	}

	response.RespondJSON(w, http.StatusOK, models.BulkFeedbackResponse{
		Results: results, SuccessCount: successCount, FailureCount: failureCount,
	})
}
