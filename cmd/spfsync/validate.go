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

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a standalone health check against the collections",
	Long: `Run the defect detection passes as a health check and report a
0-100 health score plus a pass/fail verdict.

Pass requires zero orphaned references and zero status mismatches.
Files without a location, unused locations and borrowing mismatches are
warnings and do not affect the verdict. Nothing is written to the
document database.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	util.InfoLog("=== Health Check ===")
	startedAt := time.Now()

	report, err := rec.Validate(ctx)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	finishReport(report, startedAt)

	if !report.Passed {
		return fmt.Errorf("%d unresolved consistency errors: %w", len(report.Errors), util.ErrValidationFailed)
	}
	return nil
}
