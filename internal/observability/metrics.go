// Package observability provides OpenTelemetry metrics (Prometheus or OTLP
// exporter, see provider.go) and optional tracing wiring.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterScope       = "github.com/formbricks/ragcore/internal/observability"
	cardinalityLimit = 2000

	// MetricNameCacheHits and MetricNameCacheMisses are shared by cache.go.
	MetricNameCacheHits   = "cache_hits_total"
	MetricNameCacheMisses = "cache_misses_total"
)

// RagMetrics is the single metrics interface for the engine: HTTP requests,
// retrieval/generation latency, feedback outcomes, and workflow memory
// creation.
type RagMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordAsk(ctx context.Context, outcome string, duration time.Duration)
	RecordRetrieval(ctx context.Context, candidateCount, resultCount int, duration time.Duration)
	RecordGeneration(ctx context.Context, outcome string, attempts int, duration time.Duration)
	RecordFeedback(ctx context.Context, status string)
	RecordWorkflowMemoryCreated(ctx context.Context, outcome string)
	RecordChunkWeightAdjusted(ctx context.Context, direction string)
}

// MeterProvider is the subset of the SDK MeterProvider NewMetrics needs.
type MeterProvider interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
}

// NewMetrics builds the RagMetrics instruments from a MeterProvider created
// by provider.NewMeterProvider. Returns a no-op-free RagMetrics backed by the
// provider's own Meter; callers that disabled metrics (nil provider) should
// not call this and instead pass a nil RagMetrics down the call chain.
func NewMetrics(provider MeterProvider) (RagMetrics, error) {
	meter := provider.Meter(meterScope)

	metrics, err := newMetricsFromMeter(meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	return metrics, nil
}

func newMetricsFromMeter(meter metric.Meter) (*ragMetricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		"http.server.request_count",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request_count: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http.server.duration: %w", err)
	}

	askOutcomes, err := meter.Int64Counter(
		"ask_requests_total",
		metric.WithDescription("Ask requests by outcome (success, invalid_input, provider_error, timeout)"),
	)
	if err != nil {
		return nil, fmt.Errorf("ask_requests_total: %w", err)
	}

	askDuration, err := meter.Float64Histogram(
		"ask_duration_seconds",
		metric.WithDescription("End-to-end ask request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("ask_duration_seconds: %w", err)
	}

	retrievalCandidates, err := meter.Int64Histogram(
		"retrieval_candidate_count",
		metric.WithDescription("Number of candidate chunks fetched per retrieval"),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval_candidate_count: %w", err)
	}

	retrievalResults, err := meter.Int64Histogram(
		"retrieval_result_count",
		metric.WithDescription("Number of chunks returned per retrieval after ranking"),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval_result_count: %w", err)
	}

	retrievalDuration, err := meter.Float64Histogram(
		"retrieval_duration_seconds",
		metric.WithDescription("Retrieval phase duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval_duration_seconds: %w", err)
	}

	generationOutcomes, err := meter.Int64Counter(
		"generation_outcomes_total",
		metric.WithDescription("Generation outcomes by result (success, failed_final) and attempt count"),
	)
	if err != nil {
		return nil, fmt.Errorf("generation_outcomes_total: %w", err)
	}

	generationDuration, err := meter.Float64Histogram(
		"generation_duration_seconds",
		metric.WithDescription("Generation phase duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("generation_duration_seconds: %w", err)
	}

	feedbackOutcomes, err := meter.Int64Counter(
		"feedback_submissions_total",
		metric.WithDescription("Feedback submissions by status (correct, incorrect)"),
	)
	if err != nil {
		return nil, fmt.Errorf("feedback_submissions_total: %w", err)
	}

	workflowMemoryCreated, err := meter.Int64Counter(
		"workflow_memory_created_total",
		metric.WithDescription("Workflow memory creation attempts by outcome (success, conflict, failed, skipped)"),
	)
	if err != nil {
		return nil, fmt.Errorf("workflow_memory_created_total: %w", err)
	}

	chunkWeightAdjustments, err := meter.Int64Counter(
		"chunk_weight_adjustments_total",
		metric.WithDescription("Accuracy weight adjustments by direction (increase, decrease)"),
	)
	if err != nil {
		return nil, fmt.Errorf("chunk_weight_adjustments_total: %w", err)
	}

	return &ragMetricsImpl{
		requestCount:           requestCount,
		requestDuration:        requestDuration,
		askOutcomes:            askOutcomes,
		askDuration:            askDuration,
		retrievalCandidates:    retrievalCandidates,
		retrievalResults:       retrievalResults,
		retrievalDuration:      retrievalDuration,
		generationOutcomes:     generationOutcomes,
		generationDuration:     generationDuration,
		feedbackOutcomes:       feedbackOutcomes,
		workflowMemoryCreated:  workflowMemoryCreated,
		chunkWeightAdjustments: chunkWeightAdjustments,
	}, nil
}

type ragMetricsImpl struct {
	requestCount           metric.Int64Counter
	requestDuration        metric.Float64Histogram
	askOutcomes            metric.Int64Counter
	askDuration            metric.Float64Histogram
	retrievalCandidates    metric.Int64Histogram
	retrievalResults       metric.Int64Histogram
	retrievalDuration      metric.Float64Histogram
	generationOutcomes     metric.Int64Counter
	generationDuration     metric.Float64Histogram
	feedbackOutcomes       metric.Int64Counter
	workflowMemoryCreated  metric.Int64Counter
	chunkWeightAdjustments metric.Int64Counter
}

func (m *ragMetricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *ragMetricsImpl) RecordAsk(ctx context.Context, outcome string, duration time.Duration) {
	outcome = normalizeAskOutcome(outcome)
	m.askOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.askDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *ragMetricsImpl) RecordRetrieval(ctx context.Context, candidateCount, resultCount int, duration time.Duration) {
	m.retrievalCandidates.Record(ctx, int64(candidateCount))
	m.retrievalResults.Record(ctx, int64(resultCount))
	m.retrievalDuration.Record(ctx, duration.Seconds())
}

func (m *ragMetricsImpl) RecordGeneration(ctx context.Context, outcome string, attempts int, duration time.Duration) {
	outcome = normalizeGenerationOutcome(outcome)
	m.generationOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("attempts", attempts),
	))
	m.generationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *ragMetricsImpl) RecordFeedback(ctx context.Context, status string) {
	status = normalizeFeedbackStatus(status)
	m.feedbackOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *ragMetricsImpl) RecordWorkflowMemoryCreated(ctx context.Context, outcome string) {
	outcome = normalizeWorkflowMemoryOutcome(outcome)
	m.workflowMemoryCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *ragMetricsImpl) RecordChunkWeightAdjusted(ctx context.Context, direction string) {
	direction = normalizeWeightDirection(direction)
	m.chunkWeightAdjustments.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

func normalizeAskOutcome(s string) string {
	switch s {
	case "success", "provider_error", "timeout", "invalid_input":
		return s
	default:
		return "unknown"
	}
}

func normalizeGenerationOutcome(s string) string {
	switch s {
	case "success", "failed_final":
		return s
	default:
		return "unknown"
	}
}

func normalizeFeedbackStatus(s string) string {
	switch s {
	case "correct", "incorrect":
		return s
	default:
		return "unknown"
	}
}

func normalizeWorkflowMemoryOutcome(s string) string {
	switch s {
	case "success", "conflict", "failed", "skipped":
		return s
	default:
		return "unknown"
	}
}

func normalizeWeightDirection(s string) string {
	switch s {
	case "increase", "decrease", "manual":
		return s
	default:
		return "unknown"
	}
}
