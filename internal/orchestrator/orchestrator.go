// Package orchestrator implements the Ask Orchestrator (spec §4.9): the
// single entry point that composes embed, workflow lookup, retrieve, and
// generate into one request, then persists the result as a Session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/generator"
	"github.com/formbricks/ragcore/internal/models"
	"github.com/formbricks/ragcore/internal/observability"
	"github.com/formbricks/ragcore/internal/retrieval"
	"github.com/formbricks/ragcore/internal/tracer"
	"github.com/formbricks/ragcore/pkg/cache"
)

const queryEmbeddingCacheName = "query_embedding"

// Embedder is the embed(text) dependency.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WorkflowLookup is the narrow workflow-memory dependency: find similar past
// workflows for a query.
type WorkflowLookup interface {
	FindSimilar(ctx context.Context, query string, topM int, minSim float64) ([]models.WorkflowHit, error)
}

// Retriever ranks candidate chunks for a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, queryVec []float32, k int, workflowHits []models.WorkflowHit) ([]retrieval.Result, error)
}

// Generator produces an answer from retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []generator.RetrievedChunk, tracer generator.StepRecorder) (string, error)
}

// SessionStore persists the finished session.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) (int64, error)
}

// Params configures an Orchestrator.
type Params struct {
	Embedder            Embedder
	Workflow            WorkflowLookup
	Retriever           Retriever
	Generator           Generator
	Sessions            SessionStore
	Metrics             observability.RagMetrics
	QMax                int
	K                   int
	WorkflowEnabled     bool
	WorkflowTopM        int
	MinMemorySimilarity float64
	EmbedTimeout        time.Duration
	RetrieveTimeout     time.Duration
	GenerateTimeout     time.Duration
	QueryEmbeddingCache *cache.LoaderCache[string, []float32]
	CacheMetrics        observability.CacheMetrics
}

// Orchestrator is the Ask Orchestrator component.
type Orchestrator struct {
	embedder              Embedder
	workflow              WorkflowLookup
	retriever             Retriever
	generator             Generator
	sessions              SessionStore
	metrics               observability.RagMetrics
	qMax                  int
	k                     int
	workflowEnabled       bool
	workflowTopM          int
	minMemorySimilarity   float64
	embedTimeout          time.Duration
	retrieveTimeout       time.Duration
	generateTimeout       time.Duration
	queryEmbeddingCache   *cache.LoaderCache[string, []float32]
	cacheMetrics          observability.CacheMetrics
}

// New creates an Orchestrator.
func New(p Params) *Orchestrator {
	return &Orchestrator{
		embedder: p.Embedder, workflow: p.Workflow, retriever: p.Retriever, generator: p.Generator,
		sessions: p.Sessions, metrics: p.Metrics, qMax: p.QMax, k: p.K,
		workflowEnabled: p.WorkflowEnabled, workflowTopM: p.WorkflowTopM, minMemorySimilarity: p.MinMemorySimilarity,
		embedTimeout: p.EmbedTimeout, retrieveTimeout: p.RetrieveTimeout, generateTimeout: p.GenerateTimeout,
		queryEmbeddingCache: p.QueryEmbeddingCache, cacheMetrics: p.CacheMetrics,
	}
}

// Ask implements spec §4.9: validate → embed → workflow lookup → retrieve →
// generate → persist, in that order. If any step before persist fails, no
// Session is written.
func (o *Orchestrator) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		o.recordAsk(ctx, "invalid_input", start)
		return nil, apperrors.NewInvalidInputError("query", "query must not be empty")
	}

	if o.qMax > 0 && utf8.RuneCountInString(query) > o.qMax {
		o.recordAsk(ctx, "invalid_input", start)
		return nil, apperrors.NewInvalidInputError("query", fmt.Sprintf("query exceeds maximum length of %d characters", o.qMax))
	}

	k := o.k
	if req.K != nil && *req.K > 0 {
		k = *req.K
	}

	trc := tracer.New()

	queryVec, err := o.embedQuery(ctx, query, trc)
	if err != nil {
		o.recordAsk(ctx, classifyErrOutcome(err), start)
		return nil, err
	}

	var workflowHits []models.WorkflowHit

	if o.workflowEnabled && o.workflow != nil {
		trc.MarkPhaseStart(models.PhaseWorkflowLookup)

		hits, lookupErr := o.workflow.FindSimilar(ctx, query, o.workflowTopM, o.minMemorySimilarity)
		if lookupErr != nil {
			slog.Warn("ask: workflow lookup failed, proceeding without boost", "error", lookupErr)
		} else {
			workflowHits = hits
		}

		trc.MarkPhaseEnd(models.PhaseWorkflowLookup, fmt.Sprintf("found %d workflow hits", len(workflowHits)))
	}

	retrieveCtx := ctx
	if o.retrieveTimeout > 0 {
		var cancel context.CancelFunc
		retrieveCtx, cancel = context.WithTimeout(ctx, o.retrieveTimeout)
		defer cancel()
	}

	trc.MarkPhaseStart(models.PhaseRetrieve)
	retrieveStart := time.Now()

	results, err := o.retriever.Retrieve(retrieveCtx, queryVec, k, workflowHits)
	if err != nil {
		trc.MarkPhaseEnd(models.PhaseRetrieve, fmt.Sprintf("retrieve failed: %v", err))
		o.recordAsk(ctx, classifyErrOutcome(err), start)

		return nil, err
	}

	trc.MarkPhaseEnd(models.PhaseRetrieve, fmt.Sprintf("retrieved %d chunks", len(results)))

	if o.metrics != nil {
		o.metrics.RecordRetrieval(ctx, k, len(results), time.Since(retrieveStart))
	}

	for _, res := range results {
		trc.AddRetrieved(res.ChunkID, res.Rank, res.RawSimilarity, res.EffectiveScore, res.WorkflowBoosted)
	}

	chunks := make([]generator.RetrievedChunk, len(results))
	for i, res := range results {
		chunks[i] = generator.RetrievedChunk{
			Repo: res.Chunk.Repo, Path: res.Chunk.Path, Section: res.Chunk.Section, Content: res.Chunk.Content,
		}
	}

	generateCtx := ctx
	if o.generateTimeout > 0 {
		var cancel context.CancelFunc
		generateCtx, cancel = context.WithTimeout(ctx, o.generateTimeout)
		defer cancel()
	}

	trc.MarkPhaseStart(models.PhaseGenerate)
	generateStart := time.Now()

	answer, err := o.generator.Generate(generateCtx, query, chunks, trc)
	if err != nil {
		trc.MarkPhaseEnd(models.PhaseGenerate, fmt.Sprintf("generate failed: %v", err))

		if o.metrics != nil {
			o.metrics.RecordGeneration(ctx, "failed_final", 0, time.Since(generateStart))
		}

		o.recordAsk(ctx, classifyErrOutcome(err), start)

		return nil, err
	}

	trc.MarkPhaseEnd(models.PhaseGenerate, "generated answer")

	if o.metrics != nil {
		o.metrics.RecordGeneration(ctx, "success", 0, time.Since(generateStart))
	}

	steps, retrieved := trc.Snapshot()

	session := &models.Session{
		Query:          query,
		QueryEmbedding: queryVec,
		Answer:         answer,
		Retrieved:      retrieved,
		ReasoningTrace: steps,
	}

	sessionID, err := o.sessions.Create(ctx, session)
	if err != nil {
		o.recordAsk(ctx, "provider_error", start)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	sources := make([]models.Source, len(results))
	for i, res := range results {
		sources[i] = models.Source{
			ChunkID: res.ChunkID, Repo: res.Chunk.Repo, Path: res.Chunk.Path, Section: res.Chunk.Section,
			Rank: res.Rank, EffectiveScore: res.EffectiveScore,
		}
	}

	o.recordAsk(ctx, "success", start)

	return &models.AskResponse{SessionID: sessionID, Answer: answer, Sources: sources}, nil
}

// embedQuery returns the query's embedding, served from cache when present
// (spec §4.9 "Embedding-cache for repeated query text"). Cache lookups and
// concurrent-miss coalescing are delegated to cache.LoaderCache, so a burst
// of identical queries triggers one Embed call, not N.
func (o *Orchestrator) embedQuery(ctx context.Context, query string, trc *tracer.Tracer) ([]float32, error) {
	embedCtx := ctx
	if o.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, o.embedTimeout)
		defer cancel()
	}

	trc.MarkPhaseStart(models.PhaseEmbed)

	if o.queryEmbeddingCache == nil {
		vec, err := o.embedder.Embed(embedCtx, query)
		if err != nil {
			trc.MarkPhaseEnd(models.PhaseEmbed, fmt.Sprintf("embed failed: %v", err))
			return nil, err
		}

		trc.MarkPhaseEnd(models.PhaseEmbed, "embedded query")

		return vec, nil
	}

	vec, hit, err := o.queryEmbeddingCache.GetWithStats(embedCtx, query, o.embedder.Embed)
	if err != nil {
		trc.MarkPhaseEnd(models.PhaseEmbed, fmt.Sprintf("embed failed: %v", err))
		return nil, err
	}

	if o.cacheMetrics != nil {
		if hit {
			o.cacheMetrics.RecordHit(ctx, queryEmbeddingCacheName)
		} else {
			o.cacheMetrics.RecordMiss(ctx, queryEmbeddingCacheName)
		}
	}

	if hit {
		trc.MarkPhaseEnd(models.PhaseEmbed, "embedded query (cache hit)")
	} else {
		trc.MarkPhaseEnd(models.PhaseEmbed, "embedded query")
	}

	return vec, nil
}

func (o *Orchestrator) recordAsk(ctx context.Context, outcome string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordAsk(ctx, outcome, time.Since(start))
	}
}

func classifyErrOutcome(err error) string {
	var timeoutErr *apperrors.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var invalidErr *apperrors.InvalidInputError
	if errors.As(err, &invalidErr) {
		return "invalid_input"
	}

	return "provider_error"
}
