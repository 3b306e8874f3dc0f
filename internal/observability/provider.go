package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/formbricks/ragcore/internal/config"
)

// newResource returns a resource with service name "ragcore" merged with default.
func newResource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("ragcore"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("merge resource: %w", err)
	}

	return res, nil
}

// durationHistogramBounds are second-based buckets for the *_duration_seconds
// instruments (ask, retrieval, generation, http.server.duration). OTel's
// default boundaries are millisecond-oriented and would bucket everything
// into the top bin for sub-second RAG latencies.
var durationHistogramBounds = []float64{0, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.3, 0.5, 0.75, 1, 2.5, 5, 7.5, 10}

func durationViews() []sdkmetric.View {
	names := []string{"http.server.duration", "ask_duration_seconds", "retrieval_duration_seconds", "generation_duration_seconds"}

	views := make([]sdkmetric.View, 0, len(names))
	for _, name := range names {
		views = append(views, sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationHistogramBounds}},
		))
	}

	return views
}

// NewMeterProvider creates a MeterProvider for the exporter selected by
// cfg.OtelMetricsExporter ("otlp" pushes to an OTLP collector, "prometheus"
// exposes a pull endpoint returned as metricsHandler). Any other value
// (including empty) disables metrics and returns all nils.
func NewMeterProvider(cfg *config.Config) (provider *sdkmetric.MeterProvider, metricsHandler http.Handler, err error) {
	if cfg == nil {
		//nolint:nilnil // intentional: metrics disabled, caller checks for nil
		return nil, nil, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	switch cfg.OtelMetricsExporter {
	case "otlp":
		// SDK reads OTEL_EXPORTER_OTLP_ENDPOINT (and scheme/insecure) from env.
		exp, err := otlpmetrichttp.New(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}

		const metricExportInterval = 60 * time.Second

		reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricExportInterval))

		opts := append([]sdkmetric.Option{sdkmetric.WithResource(res), sdkmetric.WithReader(reader)}, viewOptions(durationViews())...)

		return sdkmetric.NewMeterProvider(opts...), nil, nil
	case "prometheus":
		reg := prometheus.NewRegistry()

		exp, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		opts := append(
			[]sdkmetric.Option{sdkmetric.WithResource(res), sdkmetric.WithReader(exp), sdkmetric.WithCardinalityLimit(cardinalityLimit)},
			viewOptions(durationViews())...,
		)

		provider := sdkmetric.NewMeterProvider(opts...)

		return provider, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
	default:
		//nolint:nilnil // unknown/empty exporter value: treat as disabled, caller checks for nil
		return nil, nil, nil
	}
}

func viewOptions(views []sdkmetric.View) []sdkmetric.Option {
	opts := make([]sdkmetric.Option, 0, len(views))
	for _, v := range views {
		opts = append(opts, sdkmetric.WithView(v))
	}

	return opts
}

// ShutdownMeterProvider flushes and shuts down the MeterProvider. Safe to call with nil.
func ShutdownMeterProvider(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// NewTracerProvider creates a TracerProvider when tracing is enabled.
// When cfg.OtelTracesExporter is empty, returns (nil, nil).
func NewTracerProvider(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if cfg == nil || cfg.OtelTracesExporter == "" {
		//nolint:nilnil // intentional: tracing disabled, caller checks for nil
		return nil, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var opts []sdktrace.TracerProviderOption

	opts = append(opts, sdktrace.WithResource(res))

	switch cfg.OtelTracesExporter {
	case "otlp":
		exp, err := newOTLPTraceExporter(context.Background())
		if err != nil {
			return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exp))
	case "stdout":
		exp, err := newStdoutTraceExporter()
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		//nolint:nilnil // unknown exporter value: treat as disabled, caller checks for nil
		return nil, nil
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
