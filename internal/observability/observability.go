// Package observability installs the OpenTelemetry tracer provider.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Exporter names accepted by Setup.
const (
	ExporterNone   = ""
	ExporterStdout = "stdout"
)

// Config configures Setup.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Exporter is ExporterNone or ExporterStdout.
	Exporter string

	// Output receives stdout-exported spans. Defaults to stderr so stdout
	// stays free for command output and the MCP transport.
	Output io.Writer

	// SampleRate is the fraction of traces kept, 1.0 when zero.
	SampleRate float64
}

// ShutdownFunc flushes and stops whatever Setup installed.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider for cfg.Exporter. With no exporter
// the global no-op provider is left in place.
func Setup(cfg Config) (ShutdownFunc, error) {
	switch cfg.Exporter {
	case ExporterNone, "none":
		return noopShutdown, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("observability: unknown trace exporter %q", cfg.Exporter)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("observability: stdout exporter: %w", err)
	}

	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// NewTracerProvider builds a provider with the service resource and sampler
// from cfg plus any extra options (exporters, span processors).
func NewTracerProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "fsagent"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate == 0 || cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate < 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// Shutdown runs fn with a bounded timeout and ignores a nil fn.
func Shutdown(fn ShutdownFunc, timeout time.Duration) error {
	if fn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("observability: shutdown: %w", err)
	}
	return nil
}
