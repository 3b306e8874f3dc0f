package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

type mockSessionStore struct {
	session    *models.Session
	getErr     error
	sessions   []models.Session
	listErr    error
	total      int64
	countErr   error
	gotFilters *models.ListSessionsFilters
}

func (m *mockSessionStore) Get(_ context.Context, _ int64) (*models.Session, error) {
	return m.session, m.getErr
}

func (m *mockSessionStore) List(_ context.Context, filters *models.ListSessionsFilters) ([]models.Session, error) {
	m.gotFilters = filters
	return m.sessions, m.listErr
}

func (m *mockSessionStore) Count(_ context.Context, _ *models.ListSessionsFilters) (int64, error) {
	return m.total, m.countErr
}

func TestSessionHandler_Get(t *testing.T) {
	t.Run("success returns 200 with the session", func(t *testing.T) {
		mock := &mockSessionStore{session: &models.Session{ID: 5, Query: "q", Answer: "a"}}
		h := NewSessionHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/5", http.NoBody)
		req = withURLParam(req, "id", "5")
		rec := httptest.NewRecorder()

		h.Get(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp models.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.ID != 5 {
			t.Errorf("expected session id 5, got %d", resp.ID)
		}
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		mock := &mockSessionStore{}
		h := NewSessionHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/xyz", http.NoBody)
		req = withURLParam(req, "id", "xyz")
		rec := httptest.NewRecorder()

		h.Get(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing session maps to 404", func(t *testing.T) {
		mock := &mockSessionStore{getErr: apperrors.NewNotFoundError("session", "session not found")}
		h := NewSessionHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/9", http.NoBody)
		req = withURLParam(req, "id", "9")
		rec := httptest.NewRecorder()

		h.Get(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestSessionHandler_List(t *testing.T) {
	t.Run("success returns the page envelope with default limit", func(t *testing.T) {
		mock := &mockSessionStore{sessions: []models.Session{{ID: 1}, {ID: 2}}, total: 2}
		h := NewSessionHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", http.NoBody)
		rec := httptest.NewRecorder()

		h.List(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		if mock.gotFilters == nil || mock.gotFilters.Limit != 50 {
			t.Errorf("expected default limit 50, got %+v", mock.gotFilters)
		}

		var resp models.ListSessionsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.Total != 2 || len(resp.Data) != 2 {
			t.Errorf("unexpected response body: %+v", resp)
		}
	})

	t.Run("invalid feedback_status query parameter returns 400", func(t *testing.T) {
		mock := &mockSessionStore{}
		h := NewSessionHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions?feedback_status=bogus", http.NoBody)
		rec := httptest.NewRecorder()

		h.List(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
