package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-starload/internal/db"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs from the run log",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10,
		"number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection, 1)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureRunLog(ctx, pool); err != nil {
		return err
	}
	runs, err := db.RecentRuns(ctx, pool, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	cmd.Println(fmt.Sprintf("%-36s  %-19s  %-9s  %-16s  %10s  %8s",
		"RUN", "STARTED", "STATUS", "PHASE", "FACTS", "ERRORS"))
	for _, r := range runs {
		cmd.Println(fmt.Sprintf("%-36s  %-19s  %-9s  %-16s  %10d  %8d",
			r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status, r.Phase, r.FactsCommitted, r.ErrorsTotal))
		if r.ErrorMessage != nil {
			cmd.Println("  " + *r.ErrorMessage)
		}
	}
	return nil
}
