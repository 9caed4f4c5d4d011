package cli

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/petasbytes/fsagent/internal/runner"
	"github.com/petasbytes/fsagent/internal/telemetry"
	"github.com/petasbytes/fsagent/memory"
)

type chatOptions struct {
	historyPath string
	fresh       bool
}

func (a *App) newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent interactively",
		Long: `Chat reads instructions line by line and keeps the conversation between turns.
The text of each turn is saved to the history file so a later session can pick it up.
Type "exit" or press Ctrl-D to leave.`,
		Args: cobra.NoArgs,
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

			r, err := e.runner(runner.WithoutPinning(), runner.WithOutput(a.stdout))
			if err != nil {
				return err
			}

			path := opts.historyPath
			if path == "" {
				path = filepath.Join(cfg.StateDir, "conversation.json")
			}
			return a.chat(cmd.Context(), r, path, opts.fresh)
		},
	}

	cmd.Flags().StringVar(&opts.historyPath, "history", "", "Conversation file (default <state-dir>/conversation.json)")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "Ignore any saved conversation")
	return cmd
}

func (a *App) chat(ctx context.Context, r *runner.Runner, path string, fresh bool) error {
	var persisted []memory.Message
	if !fresh {
		var err error
		persisted, err = memory.LoadConversation(path)
		if err != nil {
			fmt.Fprintf(a.stderr, "warning: %v\n", err)
		}
	}
	conv := memory.ToParams(persisted)

	inputCh := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(a.stdin)
		for sc.Scan() {
			select {
			case inputCh <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(inputCh)
	}()

	fmt.Fprintf(a.stdout, "Chat with %s (type exit or Ctrl-D to quit)\n", r.Model())
	for {
		fmt.Fprint(a.stdout, "\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stdout)
			return nil
		case line, ok = <-inputCh:
		}
		if !ok {
			fmt.Fprintln(a.stdout)
			return <-scanErr
		}

		user := strings.TrimSpace(line)
		switch user {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		turnCtx := telemetry.WithTurnID(ctx, telemetry.NewTurnID())
		telemetry.EmitLocalFeatures(turnCtx, user)

		next := append(conv[:len(conv):len(conv)], anthropic.NewUserMessage(anthropic.NewTextBlock(user)))
		ans, err := r.Continue(turnCtx, next)
		if err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
			continue
		}
		conv = ans.Transcript

		persisted = memory.AppendTurn(persisted, user, ans.Text)
		if err := memory.SaveConversation(path, persisted); err != nil {
			fmt.Fprintf(a.stderr, "warning: failed to save conversation: %v\n", err)
		}
	}
}
