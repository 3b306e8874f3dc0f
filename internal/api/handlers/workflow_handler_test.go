package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/formbricks/ragcore/internal/models"
)

type mockWorkflowSearcher struct {
	hits       []models.WorkflowHit
	err        error
	gotTopM    int
	gotMinSim  float64
}

func (m *mockWorkflowSearcher) FindSimilar(_ context.Context, _ string, topM int, minSim float64) ([]models.WorkflowHit, error) {
	m.gotTopM, m.gotMinSim = topM, minSim
	return m.hits, m.err
}

func TestWorkflowHandler_Search(t *testing.T) {
	t.Run("success applies defaults when top_m/min_sim are omitted", func(t *testing.T) {
		memoryID := uuid.New()
		mock := &mockWorkflowSearcher{hits: []models.WorkflowHit{
			{WorkflowMemory: models.WorkflowMemory{ID: memoryID}, Similarity: 0.9},
		}}
		h := NewWorkflowHandler(mock)

		body, _ := json.Marshal(models.SearchWorkflowMemoriesRequest{Query: "how do I deploy"})
		req := httptest.NewRequest(http.MethodPost, "/v1/workflow-memories/search", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		if mock.gotTopM != defaultWorkflowTopM || mock.gotMinSim != defaultMinSimilarity {
			t.Errorf("expected defaults (%d, %v), got (%d, %v)", defaultWorkflowTopM, defaultMinSimilarity, mock.gotTopM, mock.gotMinSim)
		}

		var resp models.SearchWorkflowMemoriesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if len(resp.Hits) != 1 || resp.Hits[0].ID != memoryID {
			t.Errorf("unexpected response body: %+v", resp)
		}
	})

	t.Run("explicit top_m/min_sim override the defaults", func(t *testing.T) {
		mock := &mockWorkflowSearcher{}
		h := NewWorkflowHandler(mock)

		topM := 20
		minSim := 0.6
		body, _ := json.Marshal(models.SearchWorkflowMemoriesRequest{Query: "how do I deploy", TopM: &topM, MinSim: &minSim})
		req := httptest.NewRequest(http.MethodPost, "/v1/workflow-memories/search", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		if mock.gotTopM != 20 || mock.gotMinSim != 0.6 {
			t.Errorf("expected (20, 0.6), got (%d, %v)", mock.gotTopM, mock.gotMinSim)
		}
	})

	t.Run("empty query fails validation", func(t *testing.T) {
		mock := &mockWorkflowSearcher{}
		h := NewWorkflowHandler(mock)

		body, _ := json.Marshal(models.SearchWorkflowMemoriesRequest{Query: ""})
		req := httptest.NewRequest(http.MethodPost, "/v1/workflow-memories/search", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
