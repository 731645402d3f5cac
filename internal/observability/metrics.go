package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages the engine's metrics.
type MetricsCollector struct {
	meter metric.Meter

	extractRequests metric.Int64Counter
	toolCalls       metric.Int64Counter
	parseErrors     metric.Int64Counter
	streamDeltas    metric.Int64Counter
	extractLatency  metric.Float64Histogram
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewMetricsCollector creates a metrics collector backed by the Prometheus
// exporter. With Enabled false every recording method is a no-op.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("pycall")

	extractRequests, err := meter.Int64Counter(
		"pycall.extract.requests.total",
		metric.WithDescription("Total batch extraction requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create extract_requests counter: %w", err)
	}

	toolCalls, err := meter.Int64Counter(
		"pycall.tool_calls.total",
		metric.WithDescription("Total tool calls extracted"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool_calls counter: %w", err)
	}

	parseErrors, err := meter.Int64Counter(
		"pycall.parse.errors.total",
		metric.WithDescription("Terminal parse errors by kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create parse_errors counter: %w", err)
	}

	streamDeltas, err := meter.Int64Counter(
		"pycall.stream.deltas.total",
		metric.WithDescription("Streaming deltas emitted"),
		metric.WithUnit("{delta}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stream_deltas counter: %w", err)
	}

	extractLatency, err := meter.Float64Histogram(
		"pycall.extract.duration",
		metric.WithDescription("Batch extraction latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create extract_duration histogram: %w", err)
	}

	return &MetricsCollector{
		meter:           meter,
		extractRequests: extractRequests,
		toolCalls:       toolCalls,
		parseErrors:     parseErrors,
		streamDeltas:    streamDeltas,
		extractLatency:  extractLatency,
	}, nil
}

// Handler returns the Prometheus scrape handler.
func (m *MetricsCollector) Handler() http.Handler {
	return promclient.Handler()
}

// RecordExtract records one batch extraction with its call count and latency.
func (m *MetricsCollector) RecordExtract(ctx context.Context, calls int, duration time.Duration) {
	if m.extractRequests == nil {
		return
	}
	m.extractRequests.Add(ctx, 1)
	m.toolCalls.Add(ctx, int64(calls))
	m.extractLatency.Record(ctx, float64(duration)/float64(time.Millisecond))
}

// RecordParseError records a terminal parse error by kind.
func (m *MetricsCollector) RecordParseError(ctx context.Context, kind string) {
	if m.parseErrors == nil {
		return
	}
	m.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordStreamDelta records one emitted streaming delta.
func (m *MetricsCollector) RecordStreamDelta(ctx context.Context) {
	if m.streamDeltas == nil {
		return
	}
	m.streamDeltas.Add(ctx, 1)
}
