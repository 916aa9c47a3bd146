package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type memoryMetricExporter struct {
	mu      sync.Mutex
	exports int
}

func (e *memoryMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *memoryMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *memoryMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports++
	return nil
}

func (e *memoryMetricExporter) ForceFlush(context.Context) error { return nil }
func (e *memoryMetricExporter) Shutdown(context.Context) error   { return nil }

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), config.Default().Telemetry, "test")
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.Nil(t, tel.LoggerProvider())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), config.TelemetryConfig{Enabled: true, Endpoint: "localhost:4317"}, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service name")

	_, err = New(context.Background(), config.TelemetryConfig{Enabled: true, ServiceName: "ragchat"}, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestNew_EnabledWithExporters(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	metrics := &memoryMetricExporter{}

	cfg := config.Default().Telemetry
	cfg.Enabled = true

	tel, err := New(context.Background(), cfg, "1.2.3", WithSpanExporter(spans), WithMetricExporter(metrics))
	require.NoError(t, err)
	assert.True(t, tel.Enabled())
	degraded, lastErr := tel.Degraded()
	assert.False(t, degraded)
	assert.NoError(t, lastErr)
	assert.NotNil(t, tel.LoggerProvider())

	_, span := tel.Tracer("test").Start(context.Background(), "op")
	span.End()

	counter, err := tel.Meter("test").Int64Counter("ops")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, tel.ForceFlush(context.Background()))

	// The in-memory exporter resets on shutdown, so inspect first.
	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "op", got[0].Name)

	metrics.mu.Lock()
	assert.GreaterOrEqual(t, metrics.exports, 1)
	metrics.mu.Unlock()

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.Enabled())
	assert.NotNil(t, tel.Tracer("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("otel:4318"))
}
