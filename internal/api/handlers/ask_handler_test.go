package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

type mockAskOrchestrator struct {
	resp *models.AskResponse
	err  error
}

func (m *mockAskOrchestrator) Ask(_ context.Context, _ *models.AskRequest) (*models.AskResponse, error) {
	return m.resp, m.err
}

func TestAskHandler_Ask(t *testing.T) {
	t.Run("success returns 200 with the orchestrator response", func(t *testing.T) {
		mock := &mockAskOrchestrator{resp: &models.AskResponse{SessionID: 7, Answer: "the answer"}}
		h := NewAskHandler(mock)

		body, _ := json.Marshal(models.AskRequest{Query: "how does retrieval work"})
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Ask(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp models.AskResponse

		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.SessionID != 7 || resp.Answer != "the answer" {
			t.Errorf("unexpected response body: %+v", resp)
		}
	})

	t.Run("empty query fails struct validation before reaching the orchestrator", func(t *testing.T) {
		mock := &mockAskOrchestrator{resp: &models.AskResponse{}}
		h := NewAskHandler(mock)

		body, _ := json.Marshal(models.AskRequest{Query: ""})
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Ask(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown JSON field is rejected", func(t *testing.T) {
		mock := &mockAskOrchestrator{resp: &models.AskResponse{}}
		h := NewAskHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader([]byte(`{"query":"x","bogus":1}`)))
		rec := httptest.NewRecorder()

		h.Ask(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid input error from the orchestrator maps to 400", func(t *testing.T) {
		mock := &mockAskOrchestrator{err: apperrors.NewInvalidInputError("query", "query exceeds maximum length")}
		h := NewAskHandler(mock)

		body, _ := json.Marshal(models.AskRequest{Query: "how does retrieval work"})
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Ask(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("provider error maps to 500", func(t *testing.T) {
		mock := &mockAskOrchestrator{err: apperrors.ErrProvider}
		h := NewAskHandler(mock)

		body, _ := json.Marshal(models.AskRequest{Query: "how does retrieval work"})
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Ask(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}
