package tools_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/fsagent/internal/fsops"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/tools"
)

// Shared workspace for all tool tests; each test works under its own subdirectory.
var (
	sharedDir string
	sharedWS  *fsops.Workspace
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "tools-tests-")
	if err != nil {
		panic(err)
	}
	ws, err := fsops.Open(dir, safety.WithDenied(".git", ".agent"))
	if err != nil {
		panic(err)
	}
	sharedDir, sharedWS = ws.Root(), ws

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// rel builds a per-test relative path.
func rel(t *testing.T, elems ...string) string {
	return filepath.Join(append([]string{t.Name()}, elems...)...)
}

// prepare creates the per-test directory and returns its absolute path.
func prepare(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return dir
}

func call(t *testing.T, name string, in any) (string, error) {
	t.Helper()
	def, ok := tools.Lookup(tools.Registry(sharedWS), name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	var raw json.RawMessage
	switch v := in.(type) {
	case string:
		raw = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raw = b
	}
	return def.Function(t.Context(), raw)
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := safety.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}
