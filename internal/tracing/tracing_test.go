package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestInitTracing_Disabled(t *testing.T) {
	tr, err := InitTracing(Config{Enabled: false})
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}

	ctx, span := tr.StartSpan(context.Background(), "test")
	defer span.End()

	if ctx == nil {
		t.Fatal("Expected a context")
	}
	if span.SpanContext().IsValid() {
		t.Error("Expected a no-op span")
	}
	if GetTracer() != tr {
		t.Error("Expected GetTracer to return the initialized tracer")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInstall_ExportsSpansWithServiceName(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr, err := install(Config{Environment: "test", Version: "1.2.3"}, exp)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
		setCurrent(nil, nil)
	})

	_, span := tr.StartSpan(context.Background(), "store.Save")
	span.End()

	if err := provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 exported span, got %d", len(spans))
	}
	if spans[0].Name != "store.Save" {
		t.Errorf("Unexpected span name: %q", spans[0].Name)
	}

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			service = kv.Value.AsString()
		}
	}
	if service != DefaultServiceName {
		t.Errorf("Expected service name %q, got %q", DefaultServiceName, service)
	}
}
