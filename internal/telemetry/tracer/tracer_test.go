package tracer

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewDisabled(t *testing.T) {
	shutdown, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestStartSpanRecorded(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	rec := tracetest.NewSpanRecorder()
	shutdown, err := New(Config{Enabled: true, ServiceName: "devmesh-test"}, sdktrace.WithSpanProcessor(rec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer shutdown(context.Background())

	_, span := StartSpan(context.Background(), "proxy.read", attribute.String("device", "dev1"))
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Name() != "proxy.read" {
		t.Errorf("span name = %q, want %q", ended[0].Name(), "proxy.read")
	}
	var found bool
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "device" && kv.Value.AsString() == "dev1" {
			found = true
		}
	}
	if !found {
		t.Errorf("span attributes = %v, want device=dev1", ended[0].Attributes())
	}
}
