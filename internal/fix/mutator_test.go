package fix

import (
	"context"
	"errors"
	"testing"

	"github.com/farid/spf-sync/internal/detect"
	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/model"
	"github.com/farid/spf-sync/internal/snapshot"
)

func seedFile(m *docstore.Memory, id, status, locationID, department string) {
	data := map[string]any{"status": status}
	if locationID != "" {
		data["location_id"] = locationID
	}
	if department != "" {
		data["department"] = department
	}
	m.Seed("files", id, data)
}

func seedLocation(m *docstore.Memory, id string, available bool) {
	m.Seed("locations", id, map[string]any{
		"name":         "loc " + id,
		"type":         model.LocationSlot,
		"is_available": available,
	})
}

func loadSnapshot(t *testing.T, m *docstore.Memory) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.New(&snapshot.Config{Store: m}).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return snap
}

func runFix(t *testing.T, m *docstore.Memory, cfg *Config) *Result {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Store = m

	snap := loadSnapshot(t, m)
	findings := detect.Detect(snap)

	result, err := New(cfg).Fix(context.Background(), snap, findings)
	if err != nil {
		t.Fatalf("fix failed: %v", err)
	}
	return result
}

func TestFixOrphanedReference(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "L9", "")

	result := runFix(t, m, nil)

	if result.OrphansCleared != 1 {
		t.Fatalf("expected 1 orphan cleared, got %d", result.OrphansCleared)
	}

	doc, err := m.Get(context.Background(), "files", "f1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data["location_id"] != nil {
		t.Errorf("expected location_id cleared, got %v", doc.Data["location_id"])
	}
	if doc.Data["status"] != model.StatusNeedsLocation {
		t.Errorf("expected status needs-location, got %v", doc.Data["status"])
	}

	// Re-detection must show no orphans, only the missing-location warning
	after := detect.Detect(loadSnapshot(t, m))
	if len(after.OrphanedRefs) != 0 {
		t.Errorf("expected no orphans after fix, got %d", len(after.OrphanedRefs))
	}
	if len(after.MissingLocations) != 1 {
		t.Errorf("expected missing-location warning after fix, got %d", len(after.MissingLocations))
	}
	if after.HasErrors() {
		t.Error("no errors should remain after fix")
	}
}

func TestFixMissingLocationAssignsDefault(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f2", model.StatusAvailable, "", "Kewangan")

	result := runFix(t, m, nil)

	if result.LocationsAssigned != 1 || result.DefaultsCreated != 1 {
		t.Fatalf("expected 1 assignment and 1 created default, got %+v", result)
	}

	snap := loadSnapshot(t, m)
	file := snap.Files["f2"]
	if !file.HasLocation() {
		t.Fatal("expected f2 to have a location")
	}
	if file.Status != model.StatusAvailable {
		t.Errorf("expected status available, got %s", file.Status)
	}

	loc := snap.Locations[file.LocationID]
	if loc == nil {
		t.Fatal("assigned location not found")
	}
	if loc.DepartmentDefault != "Kewangan" {
		t.Errorf("expected department_default Kewangan, got %q", loc.DepartmentDefault)
	}
}

func TestEnsureDefaultLocationIdempotent(t *testing.T) {
	m := docstore.NewMemory()
	mutator := New(&Config{Store: m})
	snap := loadSnapshot(t, m)

	first, err := mutator.EnsureDefaultLocation(context.Background(), snap, "Pentadbiran")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := mutator.EnsureDefaultLocation(context.Background(), snap, "Pentadbiran")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if first != second {
		t.Errorf("expected same default location, got %s and %s", first, second)
	}

	docs, _ := m.GetAll(context.Background(), "locations")
	if len(docs) != 1 {
		t.Errorf("expected exactly one default location, got %d", len(docs))
	}
}

func TestFixStatusMismatches(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f3", model.StatusBorrowed, "L1", "")
	seedLocation(m, "L1", true)
	seedFile(m, "f4", model.StatusAvailable, "L2", "")
	seedLocation(m, "L2", false)

	result := runFix(t, m, nil)

	if result.LocationsUpdated != 2 {
		t.Fatalf("expected 2 location updates, got %d", result.LocationsUpdated)
	}

	snap := loadSnapshot(t, m)
	if snap.Locations["L1"].Available {
		t.Error("L1 holds a borrowed file and must be unavailable")
	}
	if !snap.Locations["L2"].Available {
		t.Error("L2 holds no borrowed files and must be available")
	}

	want := model.UsageStats{Total: 1, Borrowed: 1}
	if snap.Locations["L1"].Stats != want {
		t.Errorf("expected L1 stats %+v, got %+v", want, snap.Locations["L1"].Stats)
	}

	if detect.Detect(snap).HasErrors() {
		t.Error("no mismatches should remain after fix")
	}
}

func TestFixUnusedLocationNotDeleted(t *testing.T) {
	m := docstore.NewMemory()
	seedLocation(m, "L2", true)

	result := runFix(t, m, nil)

	if result.Writes != 0 {
		t.Errorf("expected no writes for an unused but consistent location, got %d", result.Writes)
	}

	if _, err := m.Get(context.Background(), "locations", "L2"); err != nil {
		t.Error("unused location must never be deleted")
	}

	after := detect.Detect(loadSnapshot(t, m))
	if len(after.UnusedLocations) != 1 {
		t.Errorf("unused location should still be reported, got %d", len(after.UnusedLocations))
	}
	if after.HasErrors() {
		t.Error("unused locations are warnings and must not fail validation")
	}
}

func TestFixIdempotence(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "gone", "")
	seedFile(m, "f2", model.StatusAvailable, "", "Kewangan")
	seedFile(m, "f3", model.StatusBorrowed, "L1", "")
	seedLocation(m, "L1", true)
	seedLocation(m, "L2", false)

	runFix(t, m, nil)
	writesAfterFirst := m.Writes()
	if writesAfterFirst == 0 {
		t.Fatal("first run should have written something")
	}

	result := runFix(t, m, nil)

	if m.Writes() != writesAfterFirst {
		t.Errorf("second run wrote %d additional documents", m.Writes()-writesAfterFirst)
	}
	if result.Writes != 0 || result.DefaultsCreated != 0 {
		t.Errorf("second run should be a no-op, got %+v", result)
	}

	if detect.Detect(loadSnapshot(t, m)).HasErrors() {
		t.Error("no errors should remain")
	}
}

func TestFixPartialFailure(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "gone1", "")
	seedFile(m, "f2", model.StatusAvailable, "gone2", "")
	m.FailDoc("files", "f1", docstore.ErrPermissionDenied)

	result := runFix(t, m, nil)

	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].ID != "f1" {
		t.Errorf("expected failure on f1, got %s", result.Failures[0].ID)
	}

	// The healthy sibling must still have been fixed
	doc, err := m.Get(context.Background(), "files", "f2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data["status"] != model.StatusNeedsLocation {
		t.Errorf("expected f2 fixed despite f1 failing, got status %v", doc.Data["status"])
	}
}

func TestFixTransportFailureDropsRemaining(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "gone1", "")
	seedFile(m, "f2", model.StatusAvailable, "gone2", "")
	m.FailBatches(docstore.ErrTransport)

	result := runFix(t, m, nil)

	if result.Writes != 0 {
		t.Errorf("expected no writes on transport failure, got %d", result.Writes)
	}
	if len(result.Failures) != 2 {
		t.Errorf("expected all pending writes recorded as failures, got %d", len(result.Failures))
	}
}

func TestFixBatching(t *testing.T) {
	m := docstore.NewMemory()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedFile(m, "f-"+id, model.StatusAvailable, "gone-"+id, "")
	}

	result := runFix(t, m, &Config{BatchSize: 2})

	if result.Batches != 3 {
		t.Errorf("expected 3 batches for 5 writes at size 2, got %d", result.Batches)
	}
	if result.Writes != 5 {
		t.Errorf("expected 5 writes, got %d", result.Writes)
	}
}

func TestFixDryRun(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "gone", "")
	seedFile(m, "f2", model.StatusAvailable, "", "Kewangan")

	result := runFix(t, m, &Config{DryRun: true})

	if m.Writes() != 0 {
		t.Errorf("dry run must not write, got %d writes", m.Writes())
	}
	if result.OrphansCleared != 1 {
		t.Errorf("dry run should still report planned orphan fixes, got %d", result.OrphansCleared)
	}

	// Defects must still be present in the store
	after := detect.Detect(loadSnapshot(t, m))
	if !after.HasErrors() {
		t.Error("dry run must leave defects in place")
	}
}

func TestFixSkipsNeedsLocationFiles(t *testing.T) {
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusNeedsLocation, "", "Kewangan")

	result := runFix(t, m, nil)

	if result.LocationsAssigned != 0 {
		t.Errorf("needs-location files await manual placement, got %d assignments", result.LocationsAssigned)
	}
	if m.Writes() != 0 {
		t.Errorf("expected no writes, got %d", m.Writes())
	}
}

func TestFixResultErrorsNeverAbort(t *testing.T) {
	// Even when every write fails, Fix returns a result, not an error
	m := docstore.NewMemory()
	seedFile(m, "f1", model.StatusAvailable, "gone", "")
	m.FailDoc("files", "f1", errors.New("backend exploded"))

	snap := loadSnapshot(t, m)
	findings := detect.Detect(snap)

	result, err := New(&Config{Store: m}).Fix(context.Background(), snap, findings)
	if err != nil {
		t.Fatalf("expected result with failures, got error: %v", err)
	}
	if len(result.Failures) == 0 {
		t.Error("expected failures to be recorded")
	}
}
