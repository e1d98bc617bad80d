package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "flagprops", "test")
	if err != nil {
		t.Fatalf("InitTracing() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}

func TestNewTracerProvider_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := newTracerProvider(exporter, "flagprops", "test")
	ctx := context.Background()

	_, span := tp.Tracer("test").Start(ctx, "properties.match")
	span.End()

	if err := tp.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush() error: %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "properties.match" {
		t.Fatalf("exported spans = %v", spans)
	}

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "flagprops" {
		t.Errorf("service.name = %q, want flagprops", service)
	}

	if err := tp.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
