package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/reconcile"
	"github.com/farid/spf-sync/internal/util"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Detect defects, apply corrective writes and re-validate",
	Long: `Run the full reconciliation pipeline:

1. Load a snapshot of all collections
2. Detect consistency defects
3. Apply corrective mutations in sequential batches:
   - clear orphaned location references (status becomes needs-location)
   - assign a per-department default location to files without one
   - recompute location availability and usage statistics
4. Re-validate against a fresh snapshot

All mutations are idempotent; running fix twice produces no additional
writes. A single failed write is recorded and does not abort the run.
Unused locations are reported but never deleted.

Use --dry-run to see planned mutations without writing.`,
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().Bool("dry-run", false, "show planned mutations without writing")
	fixCmd.Flags().Int("batch-size", 0, "writes per batch (default from config)")
	viper.BindPFlag("batch-size", fixCmd.Flags().Lookup("batch-size"))
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	applyLogFlags()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer closeStore()

	rec := reconcile.New(&reconcile.Config{
		Store:        store,
		Collections:  collections(),
		BatchSize:    viper.GetInt("batch-size"),
		DryRun:       dryRun,
		ShowProgress: util.IsTerminal(os.Stderr.Fd()),
	})

	util.InfoLog("=== Consistency Repair ===")
	if dryRun {
		util.InfoLog("DRY-RUN mode: no documents will be written")
	}
	startedAt := time.Now()

	report, err := rec.Repair(ctx)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	finishReport(report, startedAt)

	if !report.Passed {
		return fmt.Errorf("%d unresolved consistency errors remain: %w", len(report.Errors), util.ErrValidationFailed)
	}
	return nil
}
