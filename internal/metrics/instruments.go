package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName scopes every meter and tracer in this module.
const InstrumentationName = "github.com/petasbytes/fsagent"

// Instruments are the counters and histograms recorded by the dispatcher and runner.
type Instruments struct {
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
	modelCalls   metric.Int64Counter
	modelLatency metric.Float64Histogram
	agentSteps   metric.Int64Counter
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)
	if in.toolCalls, err = meter.Int64Counter("fsagent.tool.calls",
		metric.WithDescription("Tool dispatches by tool and result code"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if in.toolDuration, err = meter.Float64Histogram("fsagent.tool.duration",
		metric.WithDescription("Tool execution time"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if in.modelCalls, err = meter.Int64Counter("fsagent.model.calls",
		metric.WithDescription("Model API calls by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if in.modelLatency, err = meter.Float64Histogram("fsagent.model.latency",
		metric.WithDescription("Model API round-trip time"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if in.agentSteps, err = meter.Int64Counter("fsagent.agent.steps",
		metric.WithDescription("Agent loop iterations"),
		metric.WithUnit("{step}"),
	); err != nil {
		return nil, err
	}
	return &in, nil
}

var (
	defaultOnce sync.Once
	defaultInst *Instruments
)

// Default returns instruments bound to the global meter provider. If creation
// fails the returned value records nothing.
func Default() *Instruments {
	defaultOnce.Do(func() {
		in, err := New(otel.Meter(InstrumentationName))
		if err != nil {
			in = nil
		}
		defaultInst = in
	})
	return defaultInst
}

// RecordTool records one tool dispatch. code is empty on success.
func (in *Instruments) RecordTool(ctx context.Context, tool, code string, d time.Duration) {
	if in == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool), attribute.String("code", code))
	in.toolCalls.Add(ctx, 1, attrs)
	in.toolDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

// RecordModelCall records one model round trip.
func (in *Instruments) RecordModelCall(ctx context.Context, model string, err error, d time.Duration) {
	if in == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("outcome", outcome))
	in.modelCalls.Add(ctx, 1, attrs)
	in.modelLatency.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

// RecordStep counts one agent loop iteration.
func (in *Instruments) RecordStep(ctx context.Context) {
	if in == nil {
		return
	}
	in.agentSteps.Add(ctx, 1)
}
