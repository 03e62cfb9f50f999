package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "riskgov", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())

	// Should not fail even when disabled
	ctx, finish := p.TrackOperation(context.Background(), "risk.assess")
	require.NotNil(t, ctx)
	p.RecordAssessment(ctx, "SEASONAL_OPTIMIZATION", "ALLOWED")
	p.RecordTransition(ctx, "CLEAR", "OBSERVED")
	p.RecordCollectorFailure(ctx, "legal")
	p.RecordDecision(ctx, "publish_plan", "ALLOWED")
	finish(errors.New("boom"))

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	ctx, finish := p.TrackOperation(context.Background(), "noop")
	require.NotNil(t, ctx)
	finish(nil)
	p.RecordAssessment(ctx, "a", "b")
	p.RecordTransition(ctx, "a", "b")
	p.RecordCollectorFailure(ctx, "a")
	p.RecordDecision(ctx, "a", "b")
	require.NoError(t, p.Shutdown(ctx))
}

func newCapturing(t *testing.T) (*Provider, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})

	p, err := NewWithProviders(tp, mp)
	require.NoError(t, err)
	return p, reader, sr
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", name, m.Data)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestTrackOperation_RecordsSpanAndRED(t *testing.T) {
	p, reader, sr := newCapturing(t)
	ctx := context.Background()

	_, finish := p.TrackOperation(ctx, "risk.assess", attribute.String("riskgov.company.id", "acme"))
	finish(nil)
	_, finish = p.TrackOperation(ctx, "risk.assess")
	finish(errors.New("collector down"))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "risk.assess", spans[0].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)

	require.Equal(t, int64(2), sumOf(t, reader, "riskgov.operations.total"))
	require.Equal(t, int64(1), sumOf(t, reader, "riskgov.errors.total"))
	require.Equal(t, int64(0), sumOf(t, reader, "riskgov.operations.active"))
}

func TestDomainCounters(t *testing.T) {
	p, reader, _ := newCapturing(t)
	ctx := context.Background()

	p.RecordAssessment(ctx, "MANAGED_REGENERATIVE", "BLOCKED")
	p.RecordAssessment(ctx, "MANAGED_REGENERATIVE", "ALLOWED")
	p.RecordTransition(ctx, "CLEAR", "BLOCKED")
	p.RecordCollectorFailure(ctx, "finance")
	p.RecordDecision(ctx, "publish_plan", "BLOCKED")

	require.Equal(t, int64(2), sumOf(t, reader, "riskgov.assessments.total"))
	require.Equal(t, int64(1), sumOf(t, reader, "riskgov.transitions.total"))
	require.Equal(t, int64(1), sumOf(t, reader, "riskgov.collector.failures.total"))
	require.Equal(t, int64(1), sumOf(t, reader, "riskgov.decisions.total"))
}

func TestTargetAttributes(t *testing.T) {
	attrs := TargetAttributes("acme", "field", "north-40")
	require.Len(t, attrs, 3)
	require.Equal(t, "riskgov.target.id", string(attrs[2].Key))
	require.Equal(t, "north-40", attrs[2].Value.AsString())
}
