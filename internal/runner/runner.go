package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/metrics"
	"github.com/petasbytes/fsagent/internal/provider"
	"github.com/petasbytes/fsagent/internal/resilience"
	"github.com/petasbytes/fsagent/internal/telemetry"
	"github.com/petasbytes/fsagent/internal/windowing"
	"github.com/petasbytes/fsagent/tools"
)

// ErrOverBudget is returned when the newest message group cannot fit the token budget.
var ErrOverBudget = errors.New("windowing: newest group exceeds the token budget; raise token_budget or tighten tool caps")

const (
	defaultMaxTokens   = 1024
	defaultTokenBudget = 60000
	defaultMaxSteps    = 20
)

// Runner sends budgeted conversation windows to the model and executes the
// tool calls it returns through a Dispatcher.
type Runner struct {
	client     *anthropic.Client
	dispatcher *dispatch.Dispatcher

	model     anthropic.Model
	maxTokens int64
	budget    int
	maxSteps  int
	system    string
	pin       bool
	out       io.Writer

	caller *resilience.Caller[*anthropic.Message]
	inst   *metrics.Instruments
	tracer trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithModel selects the model; empty keeps provider.DefaultModel.
func WithModel(name string) Option {
	return func(r *Runner) { r.model = provider.ModelOrDefault(name) }
}

// WithMaxTokens caps the output tokens per model call.
func WithMaxTokens(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxTokens = int64(n)
		}
	}
}

// WithTokenBudget sets the input-token budget for the send window.
func WithTokenBudget(n int) Option {
	return func(r *Runner) { r.budget = n }
}

// WithMaxSteps bounds the number of model calls in Run.
func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(s string) Option {
	return func(r *Runner) { r.system = s }
}

// WithoutPinning lets the window drop the first message once the budget runs out.
// Interactive chats use it; one-shot instructions keep the pin.
func WithoutPinning() Option {
	return func(r *Runner) { r.pin = false }
}

// WithOutput echoes assistant text to w as it arrives.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithResilience overrides the retry and circuit breaker settings for model calls.
func WithResilience(cfg resilience.Config) Option {
	return func(r *Runner) { r.caller = resilience.New[*anthropic.Message](cfg) }
}

// WithInstruments overrides the metric instruments.
func WithInstruments(in *metrics.Instruments) Option {
	return func(r *Runner) { r.inst = in }
}

// New returns a Runner over client and d.
func New(client *anthropic.Client, d *dispatch.Dispatcher, opts ...Option) *Runner {
	r := &Runner{
		client:     client,
		dispatcher: d,
		model:      provider.DefaultModel,
		maxTokens:  defaultMaxTokens,
		budget:     defaultTokenBudget,
		maxSteps:   defaultMaxSteps,
		pin:        true,
		inst:       metrics.Default(),
		tracer:     otel.Tracer(metrics.InstrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.caller == nil {
		r.caller = resilience.New[*anthropic.Message](resilience.DefaultConfig())
	}
	return r
}

// Model returns the configured model id.
func (r *Runner) Model() anthropic.Model { return r.model }

// BreakerState reports the model-call circuit breaker state.
func (r *Runner) BreakerState() string { return r.caller.State() }

// RunOneStep sends the prepared window of conv and executes any tool_use
// blocks in the reply. It returns the assistant message and the tool_result
// blocks to append as the next user message; no results means the model is done.
func (r *Runner) RunOneStep(ctx context.Context, conv []anthropic.MessageParam) (*anthropic.Message, []anthropic.ContentBlockParamUnion, error) {
	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = telemetry.NewTurnID()
		ctx = telemetry.WithTurnID(ctx, turnID)
	}

	counter := windowing.HeuristicCounter{}
	var (
		window []anthropic.MessageParam
		stats  windowing.Stats
	)
	if r.pin {
		window, stats = windowing.PreparePinnedWindow(conv, r.budget, counter)
	} else {
		window, stats = windowing.PrepareSendWindow(conv, r.budget, counter)
	}

	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"model":              string(r.model),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
		"pinned":             stats.Pinned,
	})
	logging.Debug().
		Add(logging.Component("runner")).
		Add(logging.Str("turn_id", turnID)).
		Add(logging.Int("budget", stats.Budget)).
		Add(logging.Int("est_total", stats.Total)).
		Add(logging.Int("groups_in", stats.IncludedGroups)).
		Add(logging.Int("groups_skip", stats.SkippedGroups)).
		Msg("window prepared")

	// With tool caps the newest group should always fit. If not, treat it as
	// a misconfiguration and fail before calling the model.
	if stats.OverBudgetNewest {
		return nil, nil, ErrOverBudget
	}

	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages:  window,
	}
	if r.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.system}}
	}
	// Calibration runs measure raw conversation cost, so no tools are offered.
	if !telemetry.CalibrationModeEnabled() {
		params.Tools = tools.ToAnthropic(r.dispatcher.Definitions())
	}

	msg, err := r.callModel(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	toolResults := []anthropic.ContentBlockParamUnion{}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if r.out != nil && v.Text != "" {
				fmt.Fprintf(r.out, "\u001b[93mAgent\u001b[0m: %s\n", v.Text)
			}
		case anthropic.ToolUseBlock:
			res := r.dispatcher.Dispatch(ctx, dispatch.ToolRequest{
				Tool:      v.Name,
				Arguments: json.RawMessage(v.JSON.Input.Raw()),
			})
			toolResults = append(toolResults, anthropic.NewToolResultBlock(v.ID, res.Content(), !res.Success))
		}
	}
	return msg, toolResults, nil
}

func (r *Runner) callModel(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	ctx, span := r.tracer.Start(ctx, "model.messages",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("model", string(r.model)),
			attribute.Int("messages", len(params.Messages)),
		),
	)
	defer span.End()

	start := time.Now()
	msg, err := r.caller.Do(ctx, func(ctx context.Context) (*anthropic.Message, error) {
		m, err := r.client.Messages.New(ctx, params)
		if err != nil && !provider.Transient(err) {
			return nil, resilience.Permanent(err)
		}
		return m, err
	})
	elapsed := time.Since(start)
	r.inst.RecordModelCall(ctx, string(r.model), err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		logging.Error().
			Add(logging.Component("runner")).
			Add(logging.Str("model", string(r.model))).
			Add(logging.Str("breaker", r.caller.State())).
			Add(logging.Duration(elapsed)).
			Add(logging.ErrorField(err)).
			Msg("model call failed")
		return nil, fmt.Errorf("model call: %w", err)
	}
	span.SetAttributes(
		attribute.String("stop_reason", string(msg.StopReason)),
		attribute.Int64("usage.input_tokens", msg.Usage.InputTokens),
		attribute.Int64("usage.output_tokens", msg.Usage.OutputTokens),
	)
	return msg, nil
}
