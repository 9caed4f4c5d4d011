package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petasbytes/fsagent/internal/dispatch"
)

func (a *App) newToolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool <name> [arguments-json]",
		Short: "Run a single tool directly, without the model",
		Long: `Tool dispatches one request through the same path guard the agent uses and
prints the ToolResult as JSON. The command fails when the tool fails.

Examples:
  fsagent tool list_directory
  fsagent tool create_file '{"path":"notes/a.txt","content":"hi"}'`,
		Args: cobra.RangeArgs(1, 2),
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

			req := dispatch.ToolRequest{Tool: args[0], Arguments: json.RawMessage("{}")}
			if len(args) == 2 {
				req.Arguments = json.RawMessage(args[1])
			}
			res := e.dispatcher.Dispatch(cmd.Context(), req)

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Code)
			}
			return nil
		},
	}
}

func (a *App) newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
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

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, d := range e.dispatcher.Definitions() {
				fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description)
			}
			return tw.Flush()
		},
	}
}
