package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petasbytes/fsagent/internal/audit"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/metrics"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/internal/telemetry"
	"github.com/petasbytes/fsagent/tools"
)

// Dispatcher routes ToolRequests to a fixed tool registry. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	defs     []tools.ToolDefinition
	byName   map[string]tools.ToolDefinition
	recorder audit.Recorder
	inst     *metrics.Instruments
	tracer   trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder stores an audit record for every dispatch.
func WithRecorder(r audit.Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithInstruments overrides the metric instruments.
func WithInstruments(in *metrics.Instruments) Option {
	return func(d *Dispatcher) { d.inst = in }
}

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// New builds a Dispatcher over defs. Later definitions with a duplicate name are ignored.
func New(defs []tools.ToolDefinition, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		byName:   make(map[string]tools.ToolDefinition, len(defs)),
		recorder: audit.Nop{},
		inst:     metrics.Default(),
		tracer:   otel.Tracer(metrics.InstrumentationName),
	}
	for _, def := range defs {
		if _, dup := d.byName[def.Name]; dup {
			continue
		}
		d.byName[def.Name] = def
		d.defs = append(d.defs, def)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Definitions returns the registered tools in registration order.
func (d *Dispatcher) Definitions() []tools.ToolDefinition {
	out := make([]tools.ToolDefinition, len(d.defs))
	copy(out, d.defs)
	return out
}

// Dispatch runs exactly one tool. It never returns an error and never panics:
// every failure is reported through the result's Code.
func (d *Dispatcher) Dispatch(ctx context.Context, req ToolRequest) (res ToolResult) {
	ctx, requestID := telemetry.EnsureRequestID(ctx)
	ctx, span := d.tracer.Start(ctx, "tool."+req.Tool,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tool.name", req.Tool),
			attribute.String("request.id", requestID),
		),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Add(logging.RequestID(requestID)).
				Add(logging.ToolName(req.Tool)).
				Add(logging.Str("panic", fmt.Sprint(r))).
				Msg("tool panicked")
			res = ToolResult{Success: false, Message: "internal error", Code: safety.CodeInternal, Err: fmt.Errorf("panic: %v", r)}
		}
		d.observe(ctx, span, req, res, requestID, time.Since(start))
	}()

	def, ok := d.byName[req.Tool]
	if !ok {
		return Failure(safety.UnsupportedTool(req.Tool))
	}
	if err := ctx.Err(); err != nil {
		return ToolResult{Success: false, Message: "request cancelled", Code: safety.CodeInternal, Err: err}
	}

	out, err := def.Function(ctx, req.Arguments)
	if err != nil {
		if safety.CodeOf(err) == safety.CodeInternal {
			logging.Error().
				Add(logging.RequestID(requestID)).
				Add(logging.ToolName(req.Tool)).
				Add(logging.ErrorField(err)).
				Msg("tool failed with an untyped error")
		}
		return Failure(err)
	}
	if def.ReadOnly {
		return ToolResult{Success: true, Message: fmt.Sprintf("%s succeeded", req.Tool), Data: out}
	}
	return ToolResult{Success: true, Message: out}
}

// observe emits the log line, span status, metrics, telemetry event and audit record.
func (d *Dispatcher) observe(ctx context.Context, span trace.Span, req ToolRequest, res ToolResult, requestID string, elapsed time.Duration) {
	defer span.End()

	span.SetAttributes(attribute.Bool("tool.success", res.Success))
	if res.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(attribute.String("tool.code", res.Code))
		span.SetStatus(codes.Error, res.Code)
	}

	d.inst.RecordTool(ctx, req.Tool, res.Code, elapsed)

	level := logging.Info
	if !res.Success {
		level = logging.Warn
	}
	level().Add(logging.Component("dispatch")).
		Add(logging.RequestID(requestID)).
		Add(logging.ToolName(req.Tool)).
		Add(logging.Success(res.Success)).
		Add(logging.Code(res.Code)).
		Add(logging.Duration(elapsed)).
		Msg("tool dispatched")

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"tool_name":   req.Tool,
		"duration_ms": elapsed.Milliseconds(),
		"input_size":  len(req.Arguments),
		"output_size": len(res.Content()),
		"request_id":  requestID,
		"turn_id":     turnID,
		"error":       nil,
	}
	if !res.Success {
		fields["error"] = res.Code
	}
	telemetry.Emit("tool_exec", fields)

	err := d.recorder.Record(context.WithoutCancel(ctx), audit.Call{
		RequestID: requestID,
		Tool:      req.Tool,
		Code:      res.Code,
		Success:   res.Success,
		Duration:  elapsed,
	})
	if err != nil {
		logging.Warn().
			Add(logging.RequestID(requestID)).
			Add(logging.ErrorField(err)).
			Msg("audit record failed")
	}
}
