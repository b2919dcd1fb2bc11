package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ReportDir returns a timestamped directory under the artifacts root
// for one run's report files.
func ReportDir(artifactsRoot string) string {
	return filepath.Join(artifactsRoot, "reports", time.Now().Format("20060102-150405"))
}

// WriteJSON writes the machine-readable report. This file is the stable
// contract for automation.
func WriteJSON(report *Report, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.WriteFile(outputPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteMarkdown writes the cosmetic human-readable summary
func WriteMarkdown(report *Report, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# SPF Sync - Reconciliation Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.Mode != "" {
		md.WriteString(fmt.Sprintf("**Mode:** %s\n\n", report.Mode))
	}

	verdict := "PASSED"
	if !report.Passed {
		verdict = "FAILED"
	}
	md.WriteString(fmt.Sprintf("**Health score:** %d/100 — **%s**\n\n", report.HealthScore, verdict))
	md.WriteString("---\n\n")

	md.WriteString("## Collections\n\n")
	md.WriteString("| Collection | Documents |\n")
	md.WriteString("|------------|-----------|\n")
	md.WriteString(fmt.Sprintf("| files | %s |\n", humanize.Comma(int64(report.Counts.Files))))
	md.WriteString(fmt.Sprintf("| locations | %s |\n", humanize.Comma(int64(report.Counts.Locations))))
	md.WriteString(fmt.Sprintf("| borrowings | %s |\n", humanize.Comma(int64(report.Counts.Borrowings))))
	md.WriteString("\n")

	md.WriteString("## Findings\n\n")
	md.WriteString("| Category | Count |\n")
	md.WriteString("|----------|-------|\n")
	md.WriteString(fmt.Sprintf("| Orphaned references | %d |\n", report.Counts.OrphanedRefs))
	md.WriteString(fmt.Sprintf("| Status mismatches | %d |\n", report.Counts.StatusMismatches))
	md.WriteString(fmt.Sprintf("| Files without location | %d |\n", report.Counts.MissingLocations))
	md.WriteString(fmt.Sprintf("| Unused locations | %d |\n", report.Counts.UnusedLocations))
	md.WriteString(fmt.Sprintf("| Borrowing mismatches | %d |\n", report.Counts.BorrowingMismatches))
	if report.Counts.SkippedDocs > 0 {
		md.WriteString(fmt.Sprintf("| Skipped documents | %d |\n", report.Counts.SkippedDocs))
	}
	md.WriteString("\n")

	if report.Fix != nil {
		md.WriteString("## Applied fixes\n\n")
		md.WriteString("| Fix | Count |\n")
		md.WriteString("|-----|-------|\n")
		md.WriteString(fmt.Sprintf("| Orphaned references cleared | %d |\n", report.Fix.OrphansCleared))
		md.WriteString(fmt.Sprintf("| Default locations assigned | %d |\n", report.Fix.LocationsAssigned))
		md.WriteString(fmt.Sprintf("| Default locations created | %d |\n", report.Fix.DefaultsCreated))
		md.WriteString(fmt.Sprintf("| Locations updated | %d |\n", report.Fix.LocationsUpdated))
		md.WriteString(fmt.Sprintf("| Writes | %d (%d batches) |\n", report.Fix.Writes, report.Fix.Batches))
		if len(report.Fix.Failures) > 0 {
			md.WriteString(fmt.Sprintf("| Failed writes | %d |\n", len(report.Fix.Failures)))
		}
		md.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		md.WriteString("## Errors\n\n")
		md.WriteString("| Category | Subject | Detail |\n")
		md.WriteString("|----------|---------|--------|\n")
		for _, issue := range report.Errors {
			md.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", issue.Category, issue.Subject, issue.Detail))
		}
		md.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		md.WriteString("## Warnings\n\n")
		md.WriteString("| Category | Subject | Detail |\n")
		md.WriteString("|----------|---------|--------|\n")
		for _, issue := range report.Warnings {
			md.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", issue.Category, issue.Subject, issue.Detail))
		}
		md.WriteString("\n")
	}

	if len(report.Successes) > 0 {
		md.WriteString("## Passed checks\n\n")
		for _, s := range report.Successes {
			md.WriteString(fmt.Sprintf("- %s\n", s))
		}
		md.WriteString("\n")
	}

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
