package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/feedback"
	"github.com/formbricks/ragcore/internal/jobs"
	"github.com/formbricks/ragcore/internal/models"
)

type mockFeedbackApplier struct {
	gotSessionID int64
	result       *feedback.Result
	err          error
}

func (m *mockFeedbackApplier) Apply(_ context.Context, sessionID int64, _ *models.SubmitFeedbackRequest) (*feedback.Result, error) {
	m.gotSessionID = sessionID
	return m.result, m.err
}

type mockFeedbackBulkApplier struct {
	perSessionErr map[int64]error
}

func (m *mockFeedbackBulkApplier) ApplyAsync(_ context.Context, sessionID int64, _ *models.SubmitFeedbackRequest, _ jobs.JobInserter) (*feedback.Result, error) {
	if err, ok := m.perSessionErr[sessionID]; ok {
		return nil, err
	}

	return &feedback.Result{FeedbackStatus: models.FeedbackCorrect, WorkflowMemoryCreated: true}, nil
}

func TestFeedbackHandler_Submit(t *testing.T) {
	t.Run("success returns 200 with the applied status", func(t *testing.T) {
		single := &mockFeedbackApplier{result: &feedback.Result{FeedbackStatus: models.FeedbackCorrect, WorkflowMemoryCreated: true}}
		h := NewFeedbackHandler(single, &mockFeedbackBulkApplier{}, nil)

		body, _ := json.Marshal(models.SubmitFeedbackRequest{IsCorrect: true})
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/42/feedback", bytes.NewReader(body))
		req = withURLParam(req, "id", "42")
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		if single.gotSessionID != 42 {
			t.Errorf("expected session id 42 passed to Apply, got %d", single.gotSessionID)
		}

		var resp models.SubmitFeedbackResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.FeedbackStatus != models.FeedbackCorrect || !resp.WorkflowMemoryCreated {
			t.Errorf("unexpected response body: %+v", resp)
		}
	})

	t.Run("non-numeric session id returns 400", func(t *testing.T) {
		single := &mockFeedbackApplier{}
		h := NewFeedbackHandler(single, &mockFeedbackBulkApplier{}, nil)

		body, _ := json.Marshal(models.SubmitFeedbackRequest{IsCorrect: true})
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc/feedback", bytes.NewReader(body))
		req = withURLParam(req, "id", "abc")
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("already finalised session maps to 409", func(t *testing.T) {
		single := &mockFeedbackApplier{err: apperrors.ErrAlreadyFinalised}
		h := NewFeedbackHandler(single, &mockFeedbackBulkApplier{}, nil)

		body, _ := json.Marshal(models.SubmitFeedbackRequest{IsCorrect: true})
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/1/feedback", bytes.NewReader(body))
		req = withURLParam(req, "id", "1")
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})
}

func TestFeedbackHandler_Bulk(t *testing.T) {
	t.Run("per-item failures don't abort the batch", func(t *testing.T) {
		bulk := &mockFeedbackBulkApplier{perSessionErr: map[int64]error{2: apperrors.NewNotFoundError("session", "not found")}}
		h := NewFeedbackHandler(&mockFeedbackApplier{}, bulk, nil)

		body, _ := json.Marshal(models.BulkFeedbackRequest{Items: []models.BulkFeedbackItem{
			{SessionID: 1, IsCorrect: true},
			{SessionID: 2, IsCorrect: false},
			{SessionID: 3, IsCorrect: true},
		}})
		req := httptest.NewRequest(http.MethodPost, "/v1/feedback/bulk", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Bulk(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp models.BulkFeedbackResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.SuccessCount != 2 || resp.FailureCount != 1 {
			t.Errorf("expected 2 successes and 1 failure, got %+v", resp)
		}

		if len(resp.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(resp.Results))
		}

		if resp.Results[1].Success || resp.Results[1].SessionID != 2 {
			t.Errorf("expected item 2 to be the recorded failure, got %+v", resp.Results[1])
		}
	})

	t.Run("empty items list fails validation", func(t *testing.T) {
		h := NewFeedbackHandler(&mockFeedbackApplier{}, &mockFeedbackBulkApplier{}, nil)

		body, _ := json.Marshal(models.BulkFeedbackRequest{Items: nil})
		req := httptest.NewRequest(http.MethodPost, "/v1/feedback/bulk", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Bulk(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
