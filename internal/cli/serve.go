package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/petasbytes/fsagent/internal/config"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/mcpserver"
	"github.com/petasbytes/fsagent/internal/runner"
	"github.com/petasbytes/fsagent/internal/server"
)

func (a *App) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent and the file tools over HTTP",
		Long: `Serve starts the HTTP API:

  POST /agent          {"msg": "..."} runs one instruction through the model
  POST /tools/{name}   runs a single tool with the request body as arguments
  GET  /tools          lists the tools and their input schemas
  GET  /health         liveness

Without ANTHROPIC_API_KEY the tool endpoints still work and /agent answers 503.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			e, err := a.setup(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			var agent server.Agent
			r, err := e.runner()
			switch {
			case err == nil:
				agent = r
			case errors.Is(err, config.ErrNoAPIKey):
				logging.Warn().
					Add(logging.Component("cli")).
					Msg("ANTHROPIC_API_KEY not set; /agent is disabled")
			default:
				return err
			}

			srv := server.New(agent, e.dispatcher, server.Config{RateLimit: cfg.RateLimit, Version: Version})
			return srv.ListenAndServe(cmd.Context(), cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func (a *App) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the file tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			e, err := a.setup(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			srv := mcpserver.New(e.dispatcher, mcpserver.Config{
				Version:      Version,
				Instructions: runner.SystemPrompt(e.ws.Root(), e.dispatcher.Definitions()),
			})
			return srv.ServeStdio(cmd.Context())
		},
	}
}
