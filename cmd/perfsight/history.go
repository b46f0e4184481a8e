package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perfsight/perfsight/internal/report"
	"github.com/perfsight/perfsight/internal/store"
)

var (
	historyHost  string
	historyLimit int
	historyShow  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analysis runs",
	Long: `History lists persisted analysis runs from the result store. Use --show
with a run ID to print that run's full report.

Persistence is off unless store.path is set in the config.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyHost, "host", "", "Filter runs by hostname")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Print the full report for one run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("no result store configured (set store.path in the config)")
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening result store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating result store: %w", err)
	}

	out := cmd.OutOrStdout()

	if historyShow != "" {
		run, err := db.GetRun(cmd.Context(), historyShow)
		if err != nil {
			return err
		}
		report.WriteText(out, run.Metrics, &run.Result)
		return nil
	}

	runs, err := db.ListRuns(cmd.Context(), historyHost, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Fprintf(out, "%-38s %-14s %-10s %-9s %s\n", "RUN", "HOST", "TIER", "SCORE", "WHEN")
	for _, r := range runs {
		fmt.Fprintf(out, "%-38s %-14s %-10s %-9.1f %s\n",
			r.ID, r.Hostname, r.Result.QualityTier, r.Result.ConsensusScore,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
