package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petasbytes/fsagent/internal/audit"
)

func (a *App) newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent tool calls from the audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.AuditDB == "" {
				return errors.New("no audit database configured (set audit_db, AGT_AUDIT_DB or --audit-db)")
			}
			store, err := audit.Open(cfg.AuditDB)
			if err != nil {
				return err
			}
			defer store.Close()

			calls, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTOOL\tRESULT\tDURATION\tREQUEST")
			for _, c := range calls {
				result := "ok"
				if !c.Success {
					result = c.Code
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					c.CreatedAt.Local().Format(time.DateTime), c.Tool, result, c.Duration, c.RequestID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of calls to show")
	return cmd
}
