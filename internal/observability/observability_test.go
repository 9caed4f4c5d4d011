package observability_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petasbytes/fsagent/internal/observability"
)

func TestSetup_NoExporter(t *testing.T) {
	shutdown, err := observability.Setup(observability.Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, err := observability.Setup(observability.Config{Exporter: "jaeger"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetup_StdoutWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := observability.Setup(observability.Config{
		ServiceName: "fsagent-test",
		Exporter:    observability.ExporterStdout,
		Output:      &buf,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "tool.read_file")
	span.End()

	if err := observability.Shutdown(shutdown, time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "tool.read_file") || !strings.Contains(out, "fsagent-test") {
		t.Fatalf("span or resource missing from output:\n%s", out)
	}
}

func TestNewTracerProvider_Resource(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := observability.NewTracerProvider(
		observability.Config{ServiceName: "svc", ServiceVersion: "1.2.3"},
		sdktrace.WithSpanProcessor(sr),
	)
	_, span := tp.Tracer("test").Start(context.Background(), "x")
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	found := false
	for _, kv := range spans[0].Resource().Attributes() {
		if string(kv.Key) == "service.version" && kv.Value.AsString() == "1.2.3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("service.version missing: %v", spans[0].Resource().Attributes())
	}
}

func TestShutdown_Nil(t *testing.T) {
	if err := observability.Shutdown(nil, time.Second); err != nil {
		t.Fatal(err)
	}
}
