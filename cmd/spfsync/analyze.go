package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/farid/spf-sync/internal/reconcile"
	"github.com/farid/spf-sync/internal/util"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect consistency defects without changing anything",
	Long: `Load a snapshot of the files, locations and borrowings collections
and run all defect detection passes:

- Orphaned location references (file points at a missing location)
- Files without a storage location
- Unused locations (warning only)
- File status / location availability mismatches
- Borrowing records that disagree with their file

A JSON report is written under the artifacts directory. Nothing is
written to the document database.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	applyLogFlags()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer closeStore()

	rec := reconcile.New(&reconcile.Config{
		Store:        store,
		Collections:  collections(),
		ShowProgress: util.IsTerminal(os.Stderr.Fd()),
	})

	util.InfoLog("=== Consistency Analysis ===")
	startedAt := time.Now()

	report, err := rec.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	finishReport(report, startedAt)

	if !report.Passed {
		return fmt.Errorf("%d unresolved consistency errors: %w", len(report.Errors), util.ErrValidationFailed)
	}
	return nil
}
