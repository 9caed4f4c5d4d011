package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/petasbytes/fsagent/internal/audit"
	"github.com/petasbytes/fsagent/internal/config"
	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/fsops"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/observability"
	"github.com/petasbytes/fsagent/internal/provider"
	"github.com/petasbytes/fsagent/internal/runner"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/internal/telemetry"
	"github.com/petasbytes/fsagent/tools"
)

// env is the wired runtime shared by the commands.
type env struct {
	cfg        config.Config
	ws         *fsops.Workspace
	dispatcher *dispatch.Dispatcher
	recorder   audit.Recorder
	shutdown   observability.ShutdownFunc
}

// setup installs logging and tracing, opens the workspace and the audit
// store, and builds the dispatcher. Callers must Close the result.
func (a *App) setup(cfg config.Config) (*env, error) {
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: a.stderr})
	telemetry.SetDir(cfg.StateDir)

	shutdown, err := observability.Setup(observability.Config{
		ServiceName:    "fsagent",
		ServiceVersion: Version,
		Exporter:       cfg.Trace,
		Output:         a.stderr,
	})
	if err != nil {
		return nil, err
	}

	ws, err := fsops.Open(cfg.SafeRoot, safety.WithDenied(deniedPaths(cfg.SafeRoot, cfg.StateDir, cfg.AuditDB)...))
	if err != nil {
		_ = observability.Shutdown(shutdown, time.Second)
		return nil, err
	}

	var rec audit.Recorder = audit.Nop{}
	if cfg.AuditDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.AuditDB), 0o755); err != nil {
			_ = observability.Shutdown(shutdown, time.Second)
			return nil, fmt.Errorf("audit db directory: %w", err)
		}
		store, err := audit.Open(cfg.AuditDB)
		if err != nil {
			_ = observability.Shutdown(shutdown, time.Second)
			return nil, err
		}
		rec = store
	}

	logging.Debug().
		Add(logging.Component("cli")).
		Add(logging.Str("safe_root", ws.Root())).
		Add(logging.Str("audit_db", cfg.AuditDB)).
		Msg("workspace ready")

	return &env{
		cfg:        cfg,
		ws:         ws,
		dispatcher: dispatch.New(tools.Registry(ws), dispatch.WithRecorder(rec)),
		recorder:   rec,
		shutdown:   shutdown,
	}, nil
}

// Close flushes traces and closes the audit store.
func (e *env) Close() error {
	return errors.Join(
		observability.Shutdown(e.shutdown, 5*time.Second),
		e.recorder.Close(),
	)
}

// runner builds an agent runner. It fails without an API key.
func (e *env) runner(opts ...runner.Option) (*runner.Runner, error) {
	if err := e.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client := provider.NewAnthropicClient(provider.Options{APIKey: e.cfg.APIKey})
	base := []runner.Option{
		runner.WithModel(e.cfg.Model),
		runner.WithMaxTokens(e.cfg.MaxTokens),
		runner.WithTokenBudget(e.cfg.TokenBudget),
		runner.WithMaxSteps(e.cfg.MaxSteps),
		runner.WithSystemPrompt(runner.SystemPrompt(e.ws.Root(), e.dispatcher.Definitions())),
	}
	return runner.New(client, e.dispatcher, append(base, opts...)...), nil
}

// sqliteSideFiles are the suffixes SQLite appends for the files it keeps next
// to a database while it is open.
var sqliteSideFiles = []string{"-wal", "-shm", "-journal"}

// deniedPaths blocks .git plus the state directory and the audit database
// with its SQLite side files, when those live inside the root.
func deniedPaths(root, stateDir, auditDB string) []string {
	out := []string{".git"}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return out
	}
	if r, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = r
	}
	if rel, ok := relInside(absRoot, stateDir); ok {
		out = append(out, rel)
	}
	if auditDB == ":memory:" {
		return out
	}
	if rel, ok := relInside(absRoot, auditDB); ok {
		out = append(out, rel)
		for _, suffix := range sqliteSideFiles {
			out = append(out, rel+suffix)
		}
	}
	return out
}

// relInside returns p relative to absRoot when p lies strictly below it.
func relInside(absRoot, p string) (string, bool) {
	if p == "" {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	if !safety.Within(absRoot, abs) || abs == absRoot {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, abs)
	return rel, err == nil
}
