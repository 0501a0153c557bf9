package otel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Instrumentation scopes. Book mutations and matching get separate tracers
// so a collector can sample them independently.
const (
	ScopeBook   = "limitbook/book"
	ScopeEngine = "limitbook/engine"
)

var (
	mu           sync.RWMutex
	bookTracer   trace.Tracer
	engineTracer trace.Tracer
	meters       *sdkmetric.MeterProvider
)

// Config holds the telemetry settings
type Config struct {
	Enabled         bool
	ServiceName     string
	ServiceVersion  string
	Endpoint        string
	ExportInterval  time.Duration
	ShutdownTimeout time.Duration
	RuntimeMetrics  bool
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "limitbook"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Init installs trace and meter providers exporting over OTLP/gRPC. When
// disabled it installs nothing and every span and instrument stays a no-op.
// The returned function flushes and shuts the providers down.
func Init(cfg Config) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	cfg = cfg.withDefaults()

	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("collector connection %s: %w", cfg.Endpoint, err)
	}

	ctx := context.Background()
	res := bookResource(ctx, cfg)

	traceExp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(cfg.ExportInterval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	mu.Lock()
	bookTracer = tp.Tracer(ScopeBook)
	engineTracer = tp.Tracer(ScopeEngine)
	meters = mp
	mu.Unlock()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx), conn.Close())
	}

	if cfg.RuntimeMetrics {
		if err := StartRuntimeMetrics(); err != nil {
			shutdown()
			return nil, fmt.Errorf("runtime metrics: %w", err)
		}
	}
	return shutdown, nil
}

// bookResource describes this process. Detector failures fall back to the
// SDK default resource.
func bookResource(ctx context.Context, cfg Config) *sdkresource.Resource {
	detected, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
		sdkresource.WithHost(),
		sdkresource.WithProcess(),
	)
	if err != nil {
		return sdkresource.Default()
	}
	merged, err := sdkresource.Merge(sdkresource.Default(), detected)
	if err != nil {
		return detected
	}
	return merged
}

// BookTracer returns the tracer for book mutations, or nil before Init
func BookTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return bookTracer
}

// EngineTracer returns the tracer for matching, or nil before Init
func EngineTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return engineTracer
}

// MeterProvider returns the provider installed by Init, falling back to the
// global one
func MeterProvider() metric.MeterProvider {
	mu.RLock()
	defer mu.RUnlock()
	if meters != nil {
		return meters
	}
	return otel.GetMeterProvider()
}

// ResetForTesting clears the tracers installed by Init or InitForTesting
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	bookTracer = nil
	engineTracer = nil
	meters = nil
}

// InitForTesting routes both scopes to tracer
func InitForTesting(tracer trace.Tracer) {
	mu.Lock()
	defer mu.Unlock()
	bookTracer = tracer
	engineTracer = tracer
}
