// Package cli provides the fsagent command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petasbytes/fsagent/internal/config"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalOptions are flags shared by every command. Set flags override the
// config file and environment.
type globalOptions struct {
	configPath string
	safeRoot   string
	stateDir   string
	auditDB    string
	logLevel   string
	logFormat  string
	trace      string
	model      string
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	opts   globalOptions
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "fsagent",
		Short: "File agent confined to a safe root directory",
		Long: `fsagent lets a language model create, read, rename and delete files, but only
inside one safe root directory. Every path is resolved against that root and
anything that would leave it is refused before the file system is touched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := app.root.PersistentFlags()
	pf.StringVarP(&app.opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	pf.StringVar(&app.opts.safeRoot, "safe-root", "", "Directory every file operation is confined to")
	pf.StringVar(&app.opts.stateDir, "state-dir", "", "Directory for events, history and other local state")
	pf.StringVar(&app.opts.auditDB, "audit-db", "", "SQLite file recording every tool call")
	pf.StringVar(&app.opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&app.opts.logFormat, "log-format", "", "Log format (console or json)")
	pf.StringVar(&app.opts.trace, "trace", "", "Trace exporter (none or stdout)")
	pf.StringVar(&app.opts.model, "model", "", "Model id")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newServeCmd(),
		app.newRunCmd(),
		app.newChatCmd(),
		app.newToolCmd(),
		app.newToolsCmd(),
		app.newMCPCmd(),
		app.newAuditCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader used by chat and by run when no instruction is given.
func (a *App) WithInput(r io.Reader) *App {
	a.stdin = r
	a.root.SetIn(r)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the config file and environment, then applies set flags.
func (a *App) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	for _, f := range []struct {
		name string
		src  string
		dst  *string
	}{
		{"safe-root", a.opts.safeRoot, &cfg.SafeRoot},
		{"state-dir", a.opts.stateDir, &cfg.StateDir},
		{"audit-db", a.opts.auditDB, &cfg.AuditDB},
		{"log-level", a.opts.logLevel, &cfg.LogLevel},
		{"log-format", a.opts.logFormat, &cfg.LogFormat},
		{"trace", a.opts.trace, &cfg.Trace},
		{"model", a.opts.model, &cfg.Model},
	} {
		if flags.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "fsagent version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}
