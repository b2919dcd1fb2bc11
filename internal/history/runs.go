package history

import (
	"time"

	"github.com/farid/spf-sync/internal/health"
)

// Run is one recorded reconciliation run
type Run struct {
	ID                  int64
	StartedAt           time.Time
	Duration            time.Duration
	Mode                string
	Files               int
	Locations           int
	Borrowings          int
	OrphanedRefs        int
	MissingLocations    int
	UnusedLocations     int
	StatusMismatches    int
	BorrowingMismatches int
	Writes              int
	FailedWrites        int
	HealthScore         int
	Passed              bool
	ReportPath          string
}

// RunFromReport flattens a health report into a Run row
func RunFromReport(report *health.Report, startedAt time.Time, duration time.Duration, reportPath string) *Run {
	run := &Run{
		StartedAt:           startedAt,
		Duration:            duration,
		Mode:                report.Mode,
		Files:               report.Counts.Files,
		Locations:           report.Counts.Locations,
		Borrowings:          report.Counts.Borrowings,
		OrphanedRefs:        report.Counts.OrphanedRefs,
		MissingLocations:    report.Counts.MissingLocations,
		UnusedLocations:     report.Counts.UnusedLocations,
		StatusMismatches:    report.Counts.StatusMismatches,
		BorrowingMismatches: report.Counts.BorrowingMismatches,
		HealthScore:         report.HealthScore,
		Passed:              report.Passed,
		ReportPath:          reportPath,
	}
	if report.Fix != nil {
		run.Writes = report.Fix.Writes
		run.FailedWrites = len(report.Fix.Failures)
	}
	return run
}

// InsertRun records a completed run
func (s *Store) InsertRun(run *Run) error {
	passed := 0
	if run.Passed {
		passed = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO runs
		(started_at, duration_ms, mode, files, locations, borrowings,
		 orphaned_refs, missing_locations, unused_locations,
		 status_mismatches, borrowing_mismatches, writes, failed_writes,
		 health_score, passed, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.Duration.Milliseconds(), run.Mode,
		run.Files, run.Locations, run.Borrowings,
		run.OrphanedRefs, run.MissingLocations, run.UnusedLocations,
		run.StatusMismatches, run.BorrowingMismatches, run.Writes, run.FailedWrites,
		run.HealthScore, passed, run.ReportPath)

	return err
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, duration_ms, mode, files, locations, borrowings,
		       orphaned_refs, missing_locations, unused_locations,
		       status_mismatches, borrowing_mismatches, writes, failed_writes,
		       health_score, passed, COALESCE(report_path, '')
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var durationMs int64
		var passed int

		err := rows.Scan(&run.ID, &run.StartedAt, &durationMs, &run.Mode,
			&run.Files, &run.Locations, &run.Borrowings,
			&run.OrphanedRefs, &run.MissingLocations, &run.UnusedLocations,
			&run.StatusMismatches, &run.BorrowingMismatches, &run.Writes, &run.FailedWrites,
			&run.HealthScore, &passed, &run.ReportPath)
		if err != nil {
			return nil, err
		}

		run.Duration = time.Duration(durationMs) * time.Millisecond
		run.Passed = passed == 1
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// CountRuns returns the total number of recorded runs
func (s *Store) CountRuns() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}
