package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/farid/spf-sync/internal/fix"
	"github.com/farid/spf-sync/internal/health"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(mode string, startedAt time.Time, score int, passed bool) *Run {
	return &Run{
		StartedAt:    startedAt,
		Duration:     1200 * time.Millisecond,
		Mode:         mode,
		Files:        42,
		Locations:    7,
		Borrowings:   5,
		OrphanedRefs: 1,
		HealthScore:  score,
		Passed:       passed,
		ReportPath:   "artifacts/reports/20260830-120000",
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed on fresh database: %v", err)
	}

	count, err := store.CountRuns()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty runs table, got %d", count)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := first.InsertRun(sampleRun("analyze", time.Now(), 90, true)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	first.Close()

	// Reopening must not re-run migrations or lose data
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer second.Close()

	count, err := second.CountRuns()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 run after reopen, got %d", count)
	}
}

func TestInsertAndListRuns(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := sampleRun("fix", base.Add(time.Duration(i)*time.Hour), 80+i, i == 2)
		if err := store.InsertRun(run); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not ordered newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
	if runs[0].HealthScore != 82 || !runs[0].Passed {
		t.Errorf("unexpected newest run: score=%d passed=%t", runs[0].HealthScore, runs[0].Passed)
	}
	if runs[0].Duration != 1200*time.Millisecond {
		t.Errorf("duration not round-tripped: %v", runs[0].Duration)
	}
	if runs[0].Mode != "fix" || runs[0].Files != 42 {
		t.Errorf("fields not round-tripped: %+v", runs[0])
	}
}

func TestListRunsHonorsLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := store.InsertRun(sampleRun("analyze", base.Add(time.Duration(i)*time.Minute), 100, true)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs with limit 2, got %d", len(runs))
	}
}

func TestRunFromReport(t *testing.T) {
	report := &health.Report{
		Mode:        "fix",
		HealthScore: 75,
		Passed:      false,
		Counts: health.Counts{
			Files:            10,
			Locations:        3,
			Borrowings:       2,
			OrphanedRefs:     1,
			StatusMismatches: 2,
		},
		Fix: &health.FixSummary{
			Writes: 4,
			Failures: []fix.FailedWrite{
				{Collection: "files", ID: "f1", Reason: "denied"},
			},
		},
	}

	started := time.Now()
	run := RunFromReport(report, started, 2*time.Second, "artifacts/reports/x")

	if run.Mode != "fix" || run.HealthScore != 75 || run.Passed {
		t.Errorf("report fields not carried over: %+v", run)
	}
	if run.Writes != 4 || run.FailedWrites != 1 {
		t.Errorf("fix summary not flattened: writes=%d failed=%d", run.Writes, run.FailedWrites)
	}
	if run.OrphanedRefs != 1 || run.StatusMismatches != 2 {
		t.Errorf("counts not carried over: %+v", run)
	}
}
