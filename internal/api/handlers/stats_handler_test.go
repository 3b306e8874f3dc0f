package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formbricks/ragcore/internal/models"
)

type mockStatsSessionStore struct {
	counts    map[models.FeedbackStatus]int64
	total     int64
	earliest  *time.Time
	latest    *time.Time
	rangeErr  error
}

func (m *mockStatsSessionStore) Count(_ context.Context, filters *models.ListSessionsFilters) (int64, error) {
	if filters.FeedbackStatus == nil {
		return m.total, nil
	}

	return m.counts[*filters.FeedbackStatus], nil
}

func (m *mockStatsSessionStore) TimeRange(_ context.Context) (*time.Time, *time.Time, error) {
	return m.earliest, m.latest, m.rangeErr
}

type mockStatsChunkStore struct {
	top    []models.Chunk
	bottom []models.Chunk
	err    error
}

func (m *mockStatsChunkStore) TopByWeight(_ context.Context, _ int) ([]models.Chunk, error) {
	return m.top, m.err
}

func (m *mockStatsChunkStore) BottomByWeight(_ context.Context, _ int) ([]models.Chunk, error) {
	return m.bottom, m.err
}

type mockStatsWorkflowStore struct {
	count int64
	err   error
}

func (m *mockStatsWorkflowStore) Count(_ context.Context) (int64, error) {
	return m.count, m.err
}

func TestStatsHandler_Get(t *testing.T) {
	t.Run("success computes accuracy rate from judged sessions only", func(t *testing.T) {
		sessions := &mockStatsSessionStore{
			total: 10,
			counts: map[models.FeedbackStatus]int64{
				models.FeedbackCorrect:   6,
				models.FeedbackIncorrect: 2,
				models.FeedbackPending:   2,
			},
		}
		chunks := &mockStatsChunkStore{top: []models.Chunk{{Content: "best"}}, bottom: []models.Chunk{{Content: "worst"}}}
		workflow := &mockStatsWorkflowStore{count: 3}

		h := NewStatsHandler(sessions, chunks, workflow)

		req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
		rec := httptest.NewRecorder()

		h.Get(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp models.StatsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.TotalSessions != 10 || resp.CorrectSessions != 6 || resp.IncorrectSessions != 2 || resp.PendingSessions != 2 {
			t.Errorf("unexpected session counts: %+v", resp)
		}

		if resp.AccuracyRate != 0.75 {
			t.Errorf("expected accuracy rate 6/8=0.75, got %v", resp.AccuracyRate)
		}

		if resp.WorkflowMemoryCount != 3 {
			t.Errorf("expected workflow memory count 3, got %d", resp.WorkflowMemoryCount)
		}

		if len(resp.TopChunks) != 1 || len(resp.UnderperformingChunks) != 1 {
			t.Errorf("expected top/bottom chunk lists of length 1, got %+v", resp)
		}
	})

	t.Run("no judged sessions yields an accuracy rate of zero", func(t *testing.T) {
		sessions := &mockStatsSessionStore{total: 0}
		chunks := &mockStatsChunkStore{}
		workflow := &mockStatsWorkflowStore{}

		h := NewStatsHandler(sessions, chunks, workflow)

		req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
		rec := httptest.NewRecorder()

		h.Get(rec, req)

		var resp models.StatsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.AccuracyRate != 0 {
			t.Errorf("expected accuracy rate 0, got %v", resp.AccuracyRate)
		}
	})
}
