package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/history"
	"github.com/farid/spf-sync/internal/util"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous reconciliation runs",
	Long: `List the runs recorded in the local history database, newest
first, with their defect counts, write counts and health scores.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	limit, _ := cmd.Flags().GetInt("limit")
	dbPath := viper.GetString("history-db")

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		util.InfoLog("No history database yet at %s", dbPath)
		return nil
	}

	db, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		util.InfoLog("No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODE\tFILES\tORPHANS\tMISMATCHES\tWRITES\tSCORE\tRESULT")
	for _, run := range runs {
		result := "pass"
		if !run.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			humanize.Time(run.StartedAt), run.Mode,
			humanize.Comma(int64(run.Files)),
			run.OrphanedRefs, run.StatusMismatches,
			run.Writes, run.HealthScore, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total, _ := db.CountRuns()
	if total > len(runs) {
		util.InfoLog("Showing %d of %d runs (use --limit to see more)", len(runs), total)
	}

	return nil
}
