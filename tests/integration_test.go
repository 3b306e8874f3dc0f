package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/ragcore/internal/api/handlers"
	"github.com/formbricks/ragcore/internal/api/middleware"
	"github.com/formbricks/ragcore/internal/embedding"
	embedstub "github.com/formbricks/ragcore/internal/embedding/stub"
	"github.com/formbricks/ragcore/internal/feedback"
	"github.com/formbricks/ragcore/internal/generator"
	genstub "github.com/formbricks/ragcore/internal/generator/stub"
	"github.com/formbricks/ragcore/internal/models"
	"github.com/formbricks/ragcore/internal/orchestrator"
	"github.com/formbricks/ragcore/internal/repository"
	"github.com/formbricks/ragcore/internal/retrieval"
	"github.com/formbricks/ragcore/internal/workflow"
)

const testEmbedDim = 1536

// testStack bundles the handlers exercised through an httptest.Server with
// the repositories backing them, so tests can seed data directly.
type testStack struct {
	server   *httptest.Server
	chunks   *repository.ChunkRepository
	sessions *repository.SessionRepository
	workflow *repository.WorkflowMemoryRepository
}

// setupTestServer wires repositories, the stub embedding/generation
// providers, the orchestrator and feedback processor, and the chi router —
// mirroring cmd/api's wiring, minus River (no async job path under test).
func setupTestServer(t *testing.T) *testStack {
	t.Helper()

	db := setupTestDB(t)

	chunkRepo := repository.NewChunkRepository(db.pool)
	sessionRepo := repository.NewSessionRepository(db.pool)
	workflowRepo := repository.NewWorkflowMemoryRepository(db.pool)

	embedder := embedding.New(embedstub.NewProvider(testEmbedDim), testEmbedDim)
	gen := generator.New(genstub.NewProvider(), 1)
	retriever := retrieval.New(chunkRepo, 0.5)
	workflowSvc := workflow.New(workflowRepo, embedder)

	askOrchestrator := orchestrator.New(orchestrator.Params{
		Embedder: embedder, Workflow: workflowSvc, Retriever: retriever, Generator: gen,
		Sessions: sessionRepo, QMax: 2000, K: 5,
		WorkflowEnabled: true, WorkflowTopM: 5, MinMemorySimilarity: 0.85,
	})

	feedbackProcessor := feedback.New(feedback.Params{
		Pool: db.pool, Chunks: chunkRepo, Sessions: sessionRepo, Memory: workflowSvc,
		Delta: 0.1, WMin: 0.5, WMax: 2.0,
	})

	router := chi.NewRouter()
	router.Get("/health", handlers.NewHealthHandler().Check)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/ask", handlers.NewAskHandler(askOrchestrator).Ask)

		r.Group(func(admin chi.Router) {
			admin.Use(middleware.Auth(testAPIKey))

			sessionHandler := handlers.NewSessionHandler(sessionRepo)
			admin.Get("/sessions", sessionHandler.List)
			admin.Get("/sessions/{id}", sessionHandler.Get)

			feedbackHandler := handlers.NewFeedbackHandler(feedbackProcessor, feedbackProcessor, nil)
			admin.Post("/sessions/{id}/feedback", feedbackHandler.Submit)

			chunkHandler := handlers.NewChunkHandler(chunkRepo, 0.5, 2.0)
			admin.Post("/chunks", chunkHandler.Create)
			admin.Patch("/chunks/{id}", chunkHandler.AdjustWeight)

			admin.Post("/workflow-memories/search", handlers.NewWorkflowHandler(workflowSvc).Search)

			admin.Get("/stats", handlers.NewStatsHandler(sessionRepo, chunkRepo, workflowRepo).Get)
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testStack{server: server, chunks: chunkRepo, sessions: sessionRepo, workflow: workflowRepo}
}

func doJSON(t *testing.T, method, url string, auth bool, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Buffer

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if auth {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var decoded map[string]any
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}

	return resp, decoded
}

func TestHealthCheck(t *testing.T) {
	stack := setupTestServer(t)

	resp, err := http.Get(stack.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskEndToEnd(t *testing.T) {
	stack := setupTestServer(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := stack.chunks.Create(ctx, &models.CreateChunkRequest{
			Content: fmt.Sprintf("content about topic %d", i),
			Repo:    "formbricks/hub", Path: fmt.Sprintf("docs/%d.md", i), Section: "overview",
			Embedding: seedVector(testEmbedDim, i),
		})
		require.NoError(t, err)
	}

	resp, body := doJSON(t, http.MethodPost, stack.server.URL+"/v1/ask", false, models.AskRequest{
		Query: "what is the deployment process",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["answer"])
	assert.NotZero(t, body["session_id"])
	assert.NotEmpty(t, body["sources"])
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	stack := setupTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, stack.server.URL+"/v1/ask", false, models.AskRequest{Query: ""})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	stack := setupTestServer(t)

	resp, err := http.Get(stack.server.URL + "/v1/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeedbackAdjustsChunkWeight(t *testing.T) {
	stack := setupTestServer(t)
	ctx := context.Background()

	chunk, err := stack.chunks.Create(ctx, &models.CreateChunkRequest{
		Content: "the rotation policy is quarterly", Repo: "formbricks/hub", Path: "docs/rotation.md",
		Embedding: seedVector(testEmbedDim, 0),
	})
	require.NoError(t, err)

	askResp, body := doJSON(t, http.MethodPost, stack.server.URL+"/v1/ask", false, models.AskRequest{
		Query: "what is the rotation policy",
	})
	require.Equal(t, http.StatusOK, askResp.StatusCode)

	sessionID := int64(body["session_id"].(float64))

	feedbackURL := fmt.Sprintf("%s/v1/sessions/%d/feedback", stack.server.URL, sessionID)
	resp, _ := doJSON(t, http.MethodPost, feedbackURL, true, models.SubmitFeedbackRequest{
		IsCorrect: true,
		ChunkFeedback: []models.ChunkUsefulness{
			{ChunkID: chunk.ID, Useful: true},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := stack.chunks.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Greater(t, updated.AccuracyWeight, 1.0)
}

func TestChunkManualWeightAdjust(t *testing.T) {
	stack := setupTestServer(t)
	ctx := context.Background()

	chunk, err := stack.chunks.Create(ctx, &models.CreateChunkRequest{
		Content: "reference material", Repo: "formbricks/hub", Path: "docs/ref.md",
		Embedding: seedVector(testEmbedDim, 1),
	})
	require.NoError(t, err)

	url := fmt.Sprintf("%s/v1/chunks/%s", stack.server.URL, chunk.ID)
	resp, body := doJSON(t, http.MethodPatch, url, true, models.AdjustChunkWeightRequest{AccuracyWeight: 1.8})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1.8, body["accuracy_weight"], 0.001)
}

func TestStatsEndpoint(t *testing.T) {
	stack := setupTestServer(t)
	ctx := context.Background()

	_, err := stack.chunks.Create(ctx, &models.CreateChunkRequest{
		Content: "stats fixture", Repo: "formbricks/hub", Path: "docs/stats.md",
		Embedding: seedVector(testEmbedDim, 2),
	})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodGet, stack.server.URL+"/v1/stats", true, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "total_sessions")
}
