package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/health"
	"github.com/farid/spf-sync/internal/history"
	"github.com/farid/spf-sync/internal/snapshot"
	"github.com/farid/spf-sync/internal/util"
)

// applyLogFlags sets the log level from the global flags
func applyLogFlags() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// openStore connects to the configured Firestore project and wraps it
// with the configured retry policy. The returned closer releases the
// client.
func openStore(ctx context.Context) (docstore.Store, func() error, error) {
	fs, err := docstore.NewFirestore(ctx, viper.GetString("project"), viper.GetString("credentials"))
	if err != nil {
		return nil, nil, err
	}
	return docstore.WithRetry(fs, retryPolicy()), fs.Close, nil
}

func retryPolicy() *docstore.RetryPolicy {
	return &docstore.RetryPolicy{
		MaxAttempts: viper.GetInt("retry.max-attempts"),
		InitialWait: viper.GetDuration("retry.initial-wait"),
		MaxWait:     viper.GetDuration("retry.max-wait"),
	}
}

func collections() snapshot.Collections {
	return snapshot.Collections{
		Files:      viper.GetString("collections.files"),
		Locations:  viper.GetString("collections.locations"),
		Borrowings: viper.GetString("collections.borrowings"),
	}
}

// finishReport writes the report artifacts, records the run in the
// history database and prints the console summary. Artifact and history
// failures are warnings: the report itself is already in hand and the
// caller still gets a verdict.
func finishReport(report *health.Report, startedAt time.Time) {
	duration := time.Since(startedAt)

	reportDir := health.ReportDir(viper.GetString("artifacts"))
	jsonPath := filepath.Join(reportDir, "report.json")
	if err := health.WriteJSON(report, jsonPath); err != nil {
		util.WarnLog("Failed to write JSON report: %v", err)
		jsonPath = ""
	} else {
		util.InfoLog("Report saved to: %s", jsonPath)
	}
	if err := health.WriteMarkdown(report, filepath.Join(reportDir, "summary.md")); err != nil {
		util.WarnLog("Failed to write summary: %v", err)
	}

	db, err := history.Open(viper.GetString("history-db"))
	if err != nil {
		util.WarnLog("Failed to open history database: %v", err)
	} else {
		defer db.Close()
		if err := db.InsertRun(history.RunFromReport(report, startedAt, duration, jsonPath)); err != nil {
			util.WarnLog("Failed to record run: %v", err)
		}
	}

	printSummary(report, duration)
}

func printSummary(report *health.Report, duration time.Duration) {
	util.InfoLog("")
	util.InfoLog("=== Reconciliation Summary ===")
	util.InfoLog("Total time: %v", duration.Round(time.Millisecond))
	util.InfoLog("Collections: %d files, %d locations, %d borrowings",
		report.Counts.Files, report.Counts.Locations, report.Counts.Borrowings)
	util.InfoLog("Health score: %d/100", report.HealthScore)

	if report.Counts.OrphanedRefs > 0 {
		util.WarnLog("Orphaned references: %d", report.Counts.OrphanedRefs)
	}
	if report.Counts.StatusMismatches > 0 {
		util.WarnLog("Status mismatches: %d", report.Counts.StatusMismatches)
	}
	if report.Counts.MissingLocations > 0 {
		util.WarnLog("Files without location: %d", report.Counts.MissingLocations)
	}
	if report.Counts.UnusedLocations > 0 {
		util.InfoLog("Unused locations: %d (warning only)", report.Counts.UnusedLocations)
	}
	if report.Counts.BorrowingMismatches > 0 {
		util.WarnLog("Borrowing mismatches: %d", report.Counts.BorrowingMismatches)
	}

	if report.Fix != nil {
		util.InfoLog("")
		util.InfoLog("Applied fixes:")
		util.InfoLog("  Orphaned references cleared: %d", report.Fix.OrphansCleared)
		util.InfoLog("  Default locations assigned: %d (created %d)",
			report.Fix.LocationsAssigned, report.Fix.DefaultsCreated)
		util.InfoLog("  Locations updated: %d", report.Fix.LocationsUpdated)
		util.InfoLog("  Writes: %d in %d batches", report.Fix.Writes, report.Fix.Batches)
		if len(report.Fix.Failures) > 0 {
			util.ErrorLog("  Failed writes: %d", len(report.Fix.Failures))
		}
	}

	util.InfoLog("")
	if report.Passed {
		util.SuccessLog("Validation PASSED")
	} else {
		util.ErrorLog("Validation FAILED (%d unresolved errors)", len(report.Errors))
	}
}
