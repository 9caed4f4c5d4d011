package runner

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/telemetry"
)

// ErrStepLimit is returned by Run when the model is still calling tools after MaxSteps.
var ErrStepLimit = errors.New("agent stopped: step limit reached")

// Answer is the outcome of Run.
type Answer struct {
	// Text joins the assistant text produced during the run.
	Text string
	// Steps counts model calls.
	Steps int
	// Transcript is the full conversation including tool traffic.
	Transcript []anthropic.MessageParam
}

// Run executes one instruction to completion.
func (r *Runner) Run(ctx context.Context, instruction string) (Answer, error) {
	if _, ok := telemetry.TurnIDFromContext(ctx); !ok {
		ctx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())
	}
	telemetry.EmitLocalFeatures(ctx, instruction)
	conv := []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(instruction))}
	return r.Continue(ctx, conv)
}

// Continue runs the tool loop on conv, whose last message must be the
// user's turn. The returned transcript extends conv. On error the partial
// transcript and text are still returned.
func (r *Runner) Continue(ctx context.Context, conv []anthropic.MessageParam) (Answer, error) {
	if _, ok := telemetry.TurnIDFromContext(ctx); !ok {
		ctx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())
	}
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	requestID, _ := telemetry.RequestIDFromContext(ctx)

	var texts []string
	ans := func(steps int) Answer {
		return Answer{Text: strings.Join(texts, "\n"), Steps: steps, Transcript: conv}
	}

	for step := 1; step <= r.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return ans(step - 1), err
		}

		msg, toolResults, err := r.RunOneStep(ctx, conv)
		if err != nil {
			return ans(step - 1), err
		}
		conv = append(conv, msg.ToParam())
		for _, b := range msg.Content {
			if tb, ok := b.AsAny().(anthropic.TextBlock); ok && strings.TrimSpace(tb.Text) != "" {
				texts = append(texts, tb.Text)
			}
		}

		r.inst.RecordStep(ctx)
		telemetry.Emit("agent_step", map[string]any{
			"turn_id":     turnID,
			"step":        step,
			"tool_calls":  len(toolResults),
			"stop_reason": string(msg.StopReason),
		})
		logging.Info().
			Add(logging.Component("runner")).
			Add(logging.RequestID(requestID)).
			Add(logging.Step(step)).
			Add(logging.Int("tool_calls", len(toolResults))).
			Msg("agent step")

		if len(toolResults) == 0 {
			return ans(step), nil
		}
		conv = append(conv, anthropic.NewUserMessage(toolResults...))
	}
	return ans(r.maxSteps), ErrStepLimit
}
