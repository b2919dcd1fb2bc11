package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/model"
)

func seedBrokenDataset(m *docstore.Memory) {
	// One orphan, one missing location, one status mismatch
	m.Seed("files", "f1", map[string]any{"status": model.StatusAvailable, "location_id": "gone"})
	m.Seed("files", "f2", map[string]any{"status": model.StatusAvailable, "department": "Kewangan"})
	m.Seed("files", "f3", map[string]any{"status": model.StatusBorrowed, "location_id": "L1"})
	m.Seed("locations", "L1", map[string]any{"name": "Rak A", "type": model.LocationRack, "is_available": true})
	m.Seed("borrowings", "b1", map[string]any{"file_id": "f3", "status": model.BorrowingActive})
}

func TestAnalyzeReportsWithoutWriting(t *testing.T) {
	m := docstore.NewMemory()
	seedBrokenDataset(m)

	report, err := New(&Config{Store: m}).Analyze(context.Background())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if report.Mode != "analyze" {
		t.Errorf("expected mode analyze, got %s", report.Mode)
	}
	if report.Passed {
		t.Error("broken dataset must not pass")
	}
	if report.Counts.OrphanedRefs != 1 || report.Counts.StatusMismatches != 1 {
		t.Errorf("unexpected counts: %+v", report.Counts)
	}
	if m.Writes() != 0 {
		t.Errorf("analyze must not write, got %d writes", m.Writes())
	}
}

func TestValidateMode(t *testing.T) {
	m := docstore.NewMemory()

	report, err := New(&Config{Store: m}).Validate(context.Background())
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if report.Mode != "validate" {
		t.Errorf("expected mode validate, got %s", report.Mode)
	}
	if !report.Passed {
		t.Error("empty dataset has nothing inconsistent and must pass")
	}
}

func TestRepairFixesAndRevalidates(t *testing.T) {
	m := docstore.NewMemory()
	seedBrokenDataset(m)

	report, err := New(&Config{Store: m}).Repair(context.Background())
	if err != nil {
		t.Fatalf("repair failed: %v", err)
	}

	if report.Mode != "fix" {
		t.Errorf("expected mode fix, got %s", report.Mode)
	}
	// The report reflects the post-mutation state
	if !report.Passed {
		t.Errorf("expected repaired dataset to pass, errors: %v", report.Errors)
	}
	if report.Counts.OrphanedRefs != 0 || report.Counts.StatusMismatches != 0 {
		t.Errorf("defects remain after repair: %+v", report.Counts)
	}
	if report.Fix == nil {
		t.Fatal("expected fix summary attached")
	}
	if report.Fix.OrphansCleared != 1 || report.Fix.LocationsAssigned != 1 || report.Fix.LocationsUpdated == 0 {
		t.Errorf("unexpected fix summary: %+v", report.Fix)
	}

	// Second repair must be a no-op
	writes := m.Writes()
	again, err := New(&Config{Store: m}).Repair(context.Background())
	if err != nil {
		t.Fatalf("second repair failed: %v", err)
	}
	if m.Writes() != writes {
		t.Errorf("second repair wrote %d documents", m.Writes()-writes)
	}
	if !again.Passed {
		t.Errorf("second repair must pass, errors: %v", again.Errors)
	}
}

func TestRepairDryRun(t *testing.T) {
	m := docstore.NewMemory()
	seedBrokenDataset(m)

	report, err := New(&Config{Store: m, DryRun: true}).Repair(context.Background())
	if err != nil {
		t.Fatalf("dry-run repair failed: %v", err)
	}

	if report.Mode != "fix(dry-run)" {
		t.Errorf("expected mode fix(dry-run), got %s", report.Mode)
	}
	// The report shows the pre-mutation defects
	if report.Passed {
		t.Error("dry run must report the defects it would fix")
	}
	if report.Counts.OrphanedRefs != 1 {
		t.Errorf("expected pre-fix counts, got %+v", report.Counts)
	}
	if m.Writes() != 0 {
		t.Errorf("dry run must not write, got %d writes", m.Writes())
	}
}

func TestRepairFailsOnLoadError(t *testing.T) {
	m := docstore.NewMemory()
	m.FailCollection("files", docstore.ErrTransport)

	_, err := New(&Config{Store: m}).Repair(context.Background())
	if !errors.Is(err, docstore.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
