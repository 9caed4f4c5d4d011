package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type runOptions struct {
	jsonOutput bool
	maxSteps   int
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Run one instruction to completion and print the answer",
		Long: `Run sends a single instruction to the model and executes the tool calls it
makes until it answers. The instruction is read from stdin when no argument is given.

Examples:
  fsagent run "create notes/todo.txt containing 'buy milk'"
  echo "list every .go file" | fsagent run --safe-root ./src`,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.Join(args, " ")
			if strings.TrimSpace(instruction) == "" {
				b, err := io.ReadAll(a.stdin)
				if err != nil {
					return fmt.Errorf("read instruction: %w", err)
				}
				instruction = string(b)
			}
			instruction = strings.TrimSpace(instruction)
			if instruction == "" {
				return errors.New("an instruction is required")
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.maxSteps > 0 {
				cfg.MaxSteps = opts.maxSteps
			}
			e, err := a.setup(cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.runner()
			if err != nil {
				return err
			}
			ans, err := r.Run(cmd.Context(), instruction)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"answer": ans.Text, "steps": ans.Steps})
			}
			_, _ = fmt.Fprintln(a.stdout, ans.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the answer as JSON")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum model calls (overrides config)")
	return cmd
}
