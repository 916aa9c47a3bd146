package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := &Metrics{
		meter:  mp.Meter(embeddingsInstrumentationName),
		logger: zap.NewNop(),
	}
	m.init()
	return m, reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "all-MiniLM-L6-v2", "embed_documents", 100*time.Millisecond, 10, nil)
	m.RecordGeneration(ctx, "all-MiniLM-L6-v2", "embed_query", 50*time.Millisecond, 1, nil)
	m.RecordGeneration(ctx, "all-MiniLM-L6-v2", "embed_documents", 25*time.Millisecond, 5, errors.New("generation failed"))

	got := collect(t, reader)

	duration, ok := got["ragchat.embedding.generation_duration_seconds"]
	if !ok {
		t.Fatal("duration histogram not found")
	}
	if hist, ok := duration.Data.(metricdata.Histogram[float64]); ok {
		var total uint64
		for _, dp := range hist.DataPoints {
			total += dp.Count
		}
		if total != 3 {
			t.Errorf("expected 3 duration recordings, got %d", total)
		}
		if len(hist.DataPoints) != 2 {
			t.Errorf("expected 2 model/operation series, got %d", len(hist.DataPoints))
		}
	}

	if _, ok := got["ragchat.embedding.batch_size"]; !ok {
		t.Error("batch size histogram not found")
	}

	errs, ok := got["ragchat.embedding.errors_total"]
	if !ok {
		t.Fatal("errors counter not found")
	}
	if sum, ok := errs.Data.(metricdata.Sum[int64]); ok {
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		if total != 1 {
			t.Errorf("expected 1 error, got %d", total)
		}
	}
}

func TestInstrumented(t *testing.T) {
	m, reader := newTestMetrics(t)
	hp, err := NewHashProvider(32)
	if err != nil {
		t.Fatal(err)
	}
	p := Instrument(hp, m)
	ctx := context.Background()

	if _, err := p.EmbedDocuments(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.EmbedQuery(ctx, ""); err == nil {
		t.Fatal("expected error for empty query")
	}
	if p.Dimension() != 32 {
		t.Errorf("Dimension() = %d, want 32", p.Dimension())
	}

	got := collect(t, reader)
	errs, ok := got["ragchat.embedding.errors_total"]
	if !ok {
		t.Fatal("errors counter not found")
	}
	sum := errs.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("expected one failed embed_query, got %+v", sum.DataPoints)
	}
}
