package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/erain9/limitbook/pkg/otel"
)

var (
	bookMetrics     *BookMetrics
	bookMetricsOnce sync.Once
)

// BookMetrics holds metrics for order book operations
type BookMetrics struct {
	submittedTotal metric.Int64Counter
	fillsTotal     metric.Int64Counter
	tradedVolume   metric.Int64Counter
	canceledTotal  metric.Int64Counter
	submitLatency  metric.Float64Histogram
}

// NewBookMetrics creates the book instruments on meter
func NewBookMetrics(meter metric.Meter) (*BookMetrics, error) {
	submittedTotal, err := meter.Int64Counter(
		"orderbook.submitted_orders.total",
		metric.WithDescription("Total number of orders submitted for matching"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	fillsTotal, err := meter.Int64Counter(
		"orderbook.fills.total",
		metric.WithDescription("Total number of fills against resting orders"),
		metric.WithUnit("{fill}"),
	)
	if err != nil {
		return nil, err
	}

	tradedVolume, err := meter.Int64Counter(
		"orderbook.traded_volume.total",
		metric.WithDescription("Total quantity executed"),
		metric.WithUnit("{lot}"),
	)
	if err != nil {
		return nil, err
	}

	canceledTotal, err := meter.Int64Counter(
		"orderbook.canceled_orders.total",
		metric.WithDescription("Total number of cancel requests by result"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	submitLatency, err := meter.Float64Histogram(
		"orderbook.submit.duration",
		metric.WithDescription("Latency (seconds) of order submission including matching"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &BookMetrics{
		submittedTotal: submittedTotal,
		fillsTotal:     fillsTotal,
		tradedVolume:   tradedVolume,
		canceledTotal:  canceledTotal,
		submitLatency:  submitLatency,
	}, nil
}

// GetBookMetrics returns the BookMetrics singleton built on the global
// meter provider. Instruments are no-ops until a provider is installed.
func GetBookMetrics() *BookMetrics {
	bookMetricsOnce.Do(func() {
		m, err := NewBookMetrics(MeterProvider().Meter(instrumentationName))
		if err != nil {
			bookMetrics = &BookMetrics{}
			return
		}
		bookMetrics = m
	})
	return bookMetrics
}

// RecordSubmit records one submission, its fills and its latency
func (m *BookMetrics) RecordSubmit(ctx context.Context, instrument, status string, fills int, volume uint64, took time.Duration) {
	if m == nil || m.submittedTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
		attribute.String(AttributeOrderStatus, status),
	)
	m.submittedTotal.Add(ctx, 1, attrs)
	m.fillsTotal.Add(ctx, int64(fills), attrs)
	m.tradedVolume.Add(ctx, int64(volume), attrs)
	m.submitLatency.Record(ctx, took.Seconds(), attrs)
}

// RecordCancel records one cancel request and its result
func (m *BookMetrics) RecordCancel(ctx context.Context, instrument, result string) {
	if m == nil || m.canceledTotal == nil {
		return
	}

	m.canceledTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
		attribute.String(AttributeCancelResult, result),
	))
}
