package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "petanco-intake-api"

// Config selects where intake spans are exported.
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector, e.g. "http://localhost:14268/api/traces"
	ServiceName string
	Version     string
	Environment string
}

// Tracer starts spans for the intake pipeline.
type Tracer struct {
	tracer trace.Tracer
}

var (
	mu       sync.RWMutex
	current  *Tracer
	provider *tracesdk.TracerProvider
)

// InitTracing exports spans to Jaeger. Disabled tracing installs a no-op
// tracer so call sites never branch.
func InitTracing(cfg Config) (*Tracer, error) {
	if !cfg.Enabled {
		return setCurrent(&Tracer{tracer: noop.NewTracerProvider().Tracer(DefaultServiceName)}, nil), nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}
	return install(cfg, exp)
}

// install registers a batching provider around exp as the process-wide
// provider and propagator.
func install(cfg Config, exp tracesdk.SpanExporter) (*Tracer, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return setCurrent(&Tracer{tracer: tp.Tracer(cfg.ServiceName)}, tp), nil
}

func setCurrent(t *Tracer, tp *tracesdk.TracerProvider) *Tracer {
	mu.Lock()
	defer mu.Unlock()
	current, provider = t, tp
	return t
}

func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetTracer returns the tracer from InitTracing. Before initialization it
// falls back to the global otel provider.
func GetTracer() *Tracer {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return &Tracer{tracer: otel.Tracer(DefaultServiceName)}
	}
	return current
}

// Shutdown flushes pending spans. It is a no-op when tracing is disabled.
func Shutdown(ctx context.Context) error {
	mu.RLock()
	tp := provider
	mu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
