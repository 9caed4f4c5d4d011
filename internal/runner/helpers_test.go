package runner_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/fsops"
	"github.com/petasbytes/fsagent/internal/provider"
	"github.com/petasbytes/fsagent/internal/resilience"
	"github.com/petasbytes/fsagent/internal/runner"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/tools"
)

type fakeResponse struct {
	status int
	body   string
}

// fakeTransport replays responses in order; the last one repeats.
type fakeTransport struct {
	mu        sync.Mutex
	responses []fakeResponse
	bodies    [][]byte
}

func replay(responses ...fakeResponse) *fakeTransport {
	return &fakeTransport{responses: responses}
}

func ok(body string) fakeResponse { return fakeResponse{status: http.StatusOK, body: body} }

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	f.mu.Lock()
	i := min(len(f.bodies), len(f.responses)-1)
	f.bodies = append(f.bodies, b)
	r := f.responses[i]
	f.mu.Unlock()

	resp := &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func (f *fakeTransport) lastBody(t *testing.T) []byte {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		t.Fatal("no request captured")
	}
	return f.bodies[len(f.bodies)-1]
}

func newClientWithTransport(rt http.RoundTripper) *anthropic.Client {
	return provider.NewAnthropicClient(provider.Options{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: rt},
	})
}

// newWorkspace returns a dispatcher over a fresh temp safe root.
func newWorkspace(t *testing.T, defs ...tools.ToolDefinition) (*dispatch.Dispatcher, string) {
	t.Helper()
	ws, err := fsops.Open(t.TempDir(), safety.WithDenied(".git"))
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if defs == nil {
		defs = tools.Registry(ws)
	}
	return dispatch.New(defs), ws.Root()
}

// newRunner wires a runner with fast, single-attempt model calls.
func newRunner(t *testing.T, rt http.RoundTripper, opts ...runner.Option) (*runner.Runner, string) {
	t.Helper()
	d, root := newWorkspace(t)
	base := []runner.Option{
		runner.WithTokenBudget(1000),
		runner.WithResilience(resilience.Config{MaxAttempts: 1, InitialDelay: time.Millisecond}),
	}
	return runner.New(newClientWithTransport(rt), d, append(base, opts...)...), root
}

// useStateDir points telemetry at a temp directory and returns it.
func useStateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGT_STATE_DIR", dir)
	return dir
}

func readEventLines(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(os.Getenv("AGT_STATE_DIR"), "events.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			lines = append(lines, s)
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan events: %v", err)
	}
	return lines
}

// lastEvent returns the newest event with the given name, or nil.
func lastEvent(t *testing.T, name string) map[string]any {
	t.Helper()
	lines := readEventLines(t)
	for i := len(lines) - 1; i >= 0; i-- {
		var m map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &m); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if m["event"] == name {
			return m
		}
	}
	return nil
}

type contentItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Content   []contentItem   `json:"content,omitempty"`
}

type reqBody struct {
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
	Messages []struct {
		Role    string        `json:"role"`
		Content []contentItem `json:"content"`
	} `json:"messages"`
}

func decodeRequest(t *testing.T, b []byte) reqBody {
	t.Helper()
	var rb reqBody
	if err := json.Unmarshal(b, &rb); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, string(b))
	}
	return rb
}

const emptyReply = `{"role":"assistant","content":[],"stop_reason":"end_turn"}`

func textReply(s string) string {
	b, _ := json.Marshal(s)
	return `{"role":"assistant","content":[{"type":"text","text":` + string(b) + `}],"stop_reason":"end_turn"}`
}

func toolReply(id, name, input string) string {
	return `{"role":"assistant","content":[{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":` + input + `}],"stop_reason":"tool_use"}`
}
