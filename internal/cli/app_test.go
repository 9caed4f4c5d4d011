package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/petasbytes/fsagent/internal/config"
	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/safety"
)

// isolate clears every setting the config layer reads from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"AGT_SAFE_ROOT", "AGT_MODEL", "AGT_MAX_STEPS", "AGT_MAX_TOKENS", "AGT_TOKEN_BUDGET",
		"AGT_ADDR", "AGT_LOG_LEVEL", "AGT_LOG_FORMAT", "AGT_AUDIT_DB",
		"AGT_TRACE_EXPORTER", "AGT_RATE_LIMIT", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("AGT_OBSERVE_JSON", "0")
	t.Setenv("AGT_STATE_DIR", t.TempDir())
	return t.TempDir()
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr).WithInput(strings.NewReader(""))
	err := app.ExecuteWithArgs(context.Background(), args)
	return stdout.String(), stderr.String(), err
}

func TestApp_Version(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "fsagent version") {
		t.Errorf("version output missing 'fsagent version', got: %s", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"safe root", "serve", "run", "chat", "tool", "mcp", "audit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestApp_ToolCreatesFile(t *testing.T) {
	root := isolate(t)
	if err := os.Mkdir(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "--safe-root", root, "tool", "create_file", `{"path":"notes/a.txt","content":"hi"}`)
	if err != nil {
		t.Fatalf("tool failed: %v\n%s", err, out)
	}
	var res dispatch.ToolResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a ToolResult: %v\n%s", err, out)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if b, err := os.ReadFile(filepath.Join(root, "notes", "a.txt")); err != nil || string(b) != "hi" {
		t.Fatalf("file = %q, %v", b, err)
	}
}

func TestApp_ToolEscapeFails(t *testing.T) {
	root := isolate(t)

	out, _, err := execute(t, "--safe-root", root, "tool", "create_file", `{"path":"../evil.txt","content":"x"}`)
	if err == nil || err.Error() != safety.CodePathEscapesRoot {
		t.Fatalf("err = %v, want %s", err, safety.CodePathEscapesRoot)
	}
	if !strings.Contains(out, safety.CodePathEscapesRoot) {
		t.Fatalf("output = %s", out)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(root), "evil.txt")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("file was created outside the root")
	}
}

func TestApp_ToolsLists(t *testing.T) {
	root := isolate(t)

	out, _, err := execute(t, "--safe-root", root, "tools")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"list_directory", "read_file", "rename_file", "find_files"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools output missing %s", want)
		}
	}
}

func TestApp_AuditShowsToolCalls(t *testing.T) {
	root := isolate(t)
	db := filepath.Join(t.TempDir(), "state", "audit.db")

	if _, _, err := execute(t, "--safe-root", root, "--audit-db", db, "tool", "create_directory", `{"path":"d"}`); err != nil {
		t.Fatal(err)
	}
	_, _, _ = execute(t, "--safe-root", root, "--audit-db", db, "tool", "read_file", `{"path":"missing.txt"}`)

	out, _, err := execute(t, "--audit-db", db, "--safe-root", root, "audit", "-n", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "create_directory") || !strings.Contains(out, "read_file") {
		t.Fatalf("audit output missing calls:\n%s", out)
	}
	if !strings.Contains(out, safety.CodeFileSystem) {
		t.Fatalf("audit output missing failure code:\n%s", out)
	}
}

func TestApp_AuditRequiresDatabase(t *testing.T) {
	root := isolate(t)
	if _, _, err := execute(t, "--safe-root", root, "audit"); err == nil {
		t.Fatal("expected error without an audit database")
	}
}

func TestApp_RunRequiresAPIKey(t *testing.T) {
	root := isolate(t)
	_, _, err := execute(t, "--safe-root", root, "run", "list files")
	if !errors.Is(err, config.ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestApp_RunRequiresInstruction(t *testing.T) {
	root := isolate(t)
	if _, _, err := execute(t, "--safe-root", root, "run"); err == nil {
		t.Fatal("expected error for empty instruction")
	}
}

func TestApp_MissingSafeRoot(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--safe-root", filepath.Join(t.TempDir(), "nope"), "tools")
	if !errors.Is(err, safety.ErrRootInvalid) {
		t.Fatalf("err = %v, want ErrRootInvalid", err)
	}
}

func TestApp_InvalidFlagValue(t *testing.T) {
	root := isolate(t)
	_, _, err := execute(t, "--safe-root", root, "--log-format", "xml", "tools")
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestApp_ConfigFile(t *testing.T) {
	root := isolate(t)
	cfgPath := filepath.Join(t.TempDir(), "fsagent.yaml")
	if err := os.WriteFile(cfgPath, []byte("safe_root: "+root+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "from-config.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "-c", cfgPath, "tool", "list_directory")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "from-config.txt") {
		t.Fatalf("listing did not use the configured root:\n%s", out)
	}
}

func TestDeniedPaths(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	cases := []struct {
		name            string
		stateDir, audit string
		want            []string
	}{
		{"nothing local", "", "", []string{".git"}},
		{"state outside", outside, filepath.Join(outside, "audit.db"), []string{".git"}},
		{"in-memory audit", filepath.Join(root, ".agent"), ":memory:", []string{".git", ".agent"}},
		{
			"audit inside root",
			filepath.Join(root, ".agent"),
			filepath.Join(root, "data", "audit.db"),
			[]string{".git", ".agent", "data/audit.db", "data/audit.db-wal", "data/audit.db-shm", "data/audit.db-journal"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := deniedPaths(root, tc.stateDir, tc.audit)
			for i := range got {
				got[i] = filepath.ToSlash(got[i])
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("deniedPaths = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApp_AuditSideFilesDenied(t *testing.T) {
	root := isolate(t)
	db := filepath.Join(root, "audit.db")

	for _, side := range []string{"audit.db-wal", "audit.db-shm", "audit.db-journal"} {
		for _, name := range []string{"read_file", "delete_file"} {
			args := fmt.Sprintf(`{"path":%q}`, side)
			_, _, err := execute(t, "--safe-root", root, "--audit-db", db, "tool", name, args)
			if err == nil || !strings.Contains(err.Error(), safety.CodePathDenied) {
				t.Fatalf("%s %s: err = %v", name, side, err)
			}
		}
	}
}
