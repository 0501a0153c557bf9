package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	ResetForTesting()
	cleanup, err := Init(Config{})
	require.NoError(t, err)
	cleanup()

	assert.Nil(t, BookTracer())
	assert.Nil(t, EngineTracer())
	assert.NotNil(t, MeterProvider())
}

func TestStartOrderSpan_WithoutTracer(t *testing.T) {
	ResetForTesting()

	ctx, span := StartOrderSpan(context.Background(), SpanAddOrder)
	require.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid())
	AddAttributes(span, attribute.String(AttributeOrderID, "1"))
	span.End()
	assert.NotNil(t, ctx)
}

func TestStartOrderSpan_RoutesTracers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	InitForTesting(tp.Tracer("test"))
	t.Cleanup(ResetForTesting)

	_, span := StartOrderSpan(context.Background(), SpanCancelOrder,
		attribute.String(AttributeOrderID, "9"),
	)
	AddAttributes(span, attribute.String(AttributeCancelResult, "CANCELED"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanCancelOrder, ended[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "9", attrs[AttributeOrderID])
	assert.Equal(t, "CANCELED", attrs[AttributeCancelResult])
}

func TestBookMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewBookMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSubmit(ctx, "BTC-USD", "FILLED", 2, 7, 0)
	m.RecordCancel(ctx, "BTC-USD", "NOT_FOUND")

	var nilMetrics *BookMetrics
	nilMetrics.RecordSubmit(ctx, "BTC-USD", "FILLED", 1, 1, 0)
	nilMetrics.RecordCancel(ctx, "BTC-USD", "CANCELED")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			found[metric.Name] = true
		}
	}
	assert.True(t, found["orderbook.submitted_orders.total"])
	assert.True(t, found["orderbook.traded_volume.total"])
	assert.True(t, found["orderbook.canceled_orders.total"])
	assert.True(t, found["orderbook.submit.duration"])

	assert.NotNil(t, GetBookMetrics())
}
