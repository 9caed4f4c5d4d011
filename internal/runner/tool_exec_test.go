package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/fsagent/internal/runner"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/internal/telemetry"
	"github.com/petasbytes/fsagent/tools"
)

func listConv() []anthropic.MessageParam {
	return []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("please list files"))}
}

func TestRunner_ToolExec_JSONL_Success(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	fake := replay(ok(toolReply("t1", "list_directory", `{"path":"."}`)))
	r, _ := newRunner(t, fake)

	before := len(readEventLines(t))
	if _, _, err := r.RunOneStep(context.Background(), listConv()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := len(readEventLines(t)) - before; got < 2 { // window_prepared + tool_exec
		t.Fatalf("expected at least 2 new events, got %d", got)
	}

	exec := lastEvent(t, "tool_exec")
	if exec == nil {
		t.Fatal("no tool_exec event found")
	}
	if exec["tool_name"] != "list_directory" {
		t.Errorf("tool_name: want list_directory, got %v", exec["tool_name"])
	}
	if v, ok := exec["duration_ms"].(float64); !ok || v < 0 {
		t.Errorf("duration_ms should be >= 0, got %v", exec["duration_ms"])
	}
	if v, ok := exec["input_size"].(float64); !ok || v <= 0 {
		t.Errorf("input_size should be > 0, got %v", exec["input_size"])
	}
	if v, ok := exec["output_size"].(float64); !ok || v <= 0 {
		t.Errorf("output_size should be > 0, got %v", exec["output_size"])
	}
	if _, ok := exec["error"]; !ok {
		t.Errorf("missing error field")
	} else if exec["error"] != nil {
		t.Errorf("error should be null on success, got %v", exec["error"])
	}
	if s, ok := exec["turn_id"].(string); !ok || strings.TrimSpace(s) == "" {
		t.Errorf("turn_id missing or empty: %v", exec["turn_id"])
	}

	wp := lastEvent(t, "window_prepared")
	if wp == nil {
		t.Fatal("no window_prepared event found")
	}
	if exec["turn_id"] != wp["turn_id"] {
		t.Errorf("turn_id mismatch between tool_exec and window_prepared: %v vs %v", exec["turn_id"], wp["turn_id"])
	}
}

func TestRunner_ToolExec_JSONL_HandlerError(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	errTool := tools.ToolDefinition{
		Name:        "err_tool",
		Description: "always errors",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(context.Context, json.RawMessage) (string, error) {
			return "", fmt.Errorf("boom")
		},
	}
	d, _ := newWorkspace(t, errTool)
	fake := replay(ok(toolReply("e1", "err_tool", `{"x":1}`)))
	r := runner.New(newClientWithTransport(fake), d, runner.WithTokenBudget(1000))

	_, results, err := r.RunOneStep(context.Background(), listConv())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tr := results[0].OfToolResult; tr == nil || !tr.IsError.Value {
		t.Fatalf("expected an error tool_result, got %+v", results[0])
	}

	exec := lastEvent(t, "tool_exec")
	if exec == nil {
		t.Fatal("no tool_exec event found")
	}
	if exec["tool_name"] != "err_tool" {
		t.Errorf("tool_name: want err_tool, got %v", exec["tool_name"])
	}
	if exec["error"] != safety.CodeInternal {
		t.Errorf("error = %v, want %s", exec["error"], safety.CodeInternal)
	}
}

func TestRunner_ToolExec_JSONL_ToolNotFound(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	fake := replay(ok(toolReply("nf1", "does_not_exist", `{"a":1}`)))
	r, _ := newRunner(t, fake)

	_, results, err := r.RunOneStep(context.Background(), listConv())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	tr := results[0].OfToolResult
	if !tr.IsError.Value || !strings.Contains(tr.Content[0].OfText.Text, safety.CodeUnsupportedTool) {
		t.Fatalf("expected unsupported tool result, got %+v", tr)
	}

	exec := lastEvent(t, "tool_exec")
	if exec == nil {
		t.Fatal("no tool_exec event found")
	}
	if exec["error"] != safety.CodeUnsupportedTool {
		t.Errorf("error = %v, want %s", exec["error"], safety.CodeUnsupportedTool)
	}
}

func TestRunner_ToolExec_Gating_Off_NoWrites(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "0")
	dir := useStateDir(t)
	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}

	fake := replay(ok(toolReply("t1", "list_directory", `{"path":"."}`)))
	r, _ := newRunner(t, fake)
	if _, _, err := r.RunOneStep(context.Background(), listConv()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no state directory when AGT_OBSERVE_JSON is off")
	}
}

func TestRunner_ToolExec_JSONL_TurnID_Propagation(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	fake := replay(ok(toolReply("t1", "list_directory", `{"path":"."}`)))
	r, _ := newRunner(t, fake)

	ctx := telemetry.WithTurnID(context.Background(), "turn-xyz")
	if _, _, err := r.RunOneStep(ctx, listConv()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	wp, exec := lastEvent(t, "window_prepared"), lastEvent(t, "tool_exec")
	if wp == nil || exec == nil {
		t.Fatal("missing window_prepared or tool_exec")
	}
	if wp["turn_id"] != "turn-xyz" {
		t.Errorf("window_prepared turn_id = %v", wp["turn_id"])
	}
	if exec["turn_id"] != "turn-xyz" {
		t.Errorf("tool_exec turn_id = %v", exec["turn_id"])
	}
}

func TestRunner_ToolExec_Privacy_NoRawPayloadLeak(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	secret := "__SECRET_NEVER_APPEAR__"
	fake := replay(ok(toolReply("t1", "create_file", fmt.Sprintf(`{"path":"s.txt","content":%q}`, secret))))
	r, _ := newRunner(t, fake)

	if _, _, err := r.RunOneStep(context.Background(), listConv()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, line := range readEventLines(t) {
		if strings.Contains(line, secret) {
			t.Fatalf("raw payload leaked into telemetry: %q", line)
		}
	}
}

func TestRun_EmitsAgentSteps(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	fake := replay(ok(toolReply("t1", "list_directory", `{}`)), ok(textReply("done")))
	r, _ := newRunner(t, fake)
	if _, err := r.Run(context.Background(), "list"); err != nil {
		t.Fatal(err)
	}

	var steps []map[string]any
	for _, line := range readEventLines(t) {
		var m map[string]any
		_ = json.Unmarshal([]byte(line), &m)
		if m["event"] == "agent_step" {
			steps = append(steps, m)
		}
	}
	if len(steps) != 2 {
		t.Fatalf("agent_step events = %d, want 2", len(steps))
	}
	if steps[0]["tool_calls"] != float64(1) || steps[1]["tool_calls"] != float64(0) {
		t.Fatalf("unexpected tool_calls: %v, %v", steps[0]["tool_calls"], steps[1]["tool_calls"])
	}
	if steps[0]["turn_id"] != steps[1]["turn_id"] {
		t.Fatal("steps of one run should share a turn id")
	}
}

func TestRun_CalibrationEmitsLocalFeatures(t *testing.T) {
	t.Setenv("AGT_CALIBRATION_MODE", "1")
	t.Setenv("AGT_OBSERVE_JSON", "1")
	useStateDir(t)

	fake := replay(ok(textReply("hello")))
	r, _ := newRunner(t, fake)
	if _, err := r.Run(context.Background(), "say hello"); err != nil {
		t.Fatal(err)
	}

	lf, step := lastEvent(t, "local_features"), lastEvent(t, "agent_step")
	if lf == nil || step == nil {
		t.Fatal("expected local_features and agent_step events")
	}
	if lf["turn_id"] != step["turn_id"] {
		t.Fatalf("turn ids differ: %v vs %v", lf["turn_id"], step["turn_id"])
	}
	for _, line := range readEventLines(t) {
		if strings.Contains(line, "say hello") {
			t.Fatalf("instruction text leaked: %q", line)
		}
	}
}
