package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	configx "github.com/tanpawarit/interviewforge/pkg/config"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored interview runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loadLogger()
			if err != nil {
				return err
			}
			appCfg, err := configx.New[AppConfig]("INTERVIEWFORGE")
			if err != nil {
				return fmt.Errorf("load app config: %w", err)
			}
			store, closer, err := openStore(cmd.Context(), *appCfg, logger)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer()
			}
			return printHistory(cmd.OutOrStdout(), store.ListRuns())
		},
	}
}

func printHistory(w io.Writer, runs []contractx.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCOMPLETED\tROLE\tCANDIDATE\tQUESTIONS\tFALLBACKS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.RunID,
			run.CompletedAt.Format(time.RFC3339),
			run.Role,
			run.Profile.Name,
			len(run.Transcript),
			run.Metrics.Fallbacks,
		)
	}
	return tw.Flush()
}
