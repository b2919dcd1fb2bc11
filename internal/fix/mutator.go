// Package fix applies corrective mutations for detected consistency
// defects. All mutations are idempotent: a second run over already-fixed
// data produces zero writes.
package fix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farid/spf-sync/internal/detect"
	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/model"
	"github.com/farid/spf-sync/internal/snapshot"
	"github.com/farid/spf-sync/internal/util"
)

// FallbackDepartment is used for files with no department when a
// default location has to be assigned.
const FallbackDepartment = "unassigned"

// Mutator applies batched corrective writes to the store
type Mutator struct {
	store       docstore.Store
	collections snapshot.Collections
	batchSize   int
	dryRun      bool
	now         func() time.Time
}

// Config holds mutator configuration
type Config struct {
	Store       docstore.Store
	Collections snapshot.Collections
	BatchSize   int // 0 = DefaultBatchSize
	DryRun      bool
	Now         func() time.Time // test hook
}

// New creates a new Mutator
func New(cfg *Config) *Mutator {
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > docstore.MaxBatchSize {
		batchSize = docstore.DefaultBatchSize
	}
	colls := cfg.Collections
	if colls.Files == "" {
		colls = snapshot.DefaultCollections()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Mutator{
		store:       cfg.Store,
		collections: colls,
		batchSize:   batchSize,
		dryRun:      cfg.DryRun,
		now:         now,
	}
}

// FailedWrite records a mutation that could not be applied
type FailedWrite struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// Result summarizes one mutation run
type Result struct {
	OrphansCleared    int
	LocationsAssigned int
	DefaultsCreated   int
	LocationsUpdated  int
	Writes            int
	Batches           int
	Failures          []FailedWrite
}

// Fix applies corrective mutations for the given findings. The snapshot
// is updated in place so the availability recomputation sees the effect
// of the earlier passes. Per-document failures are collected in the
// result and never abort the run; only a transport-level batch failure
// stops the remaining batches.
func (m *Mutator) Fix(ctx context.Context, snap *snapshot.Snapshot, findings *detect.Findings) (*Result, error) {
	result := &Result{}
	var ops []docstore.Operation

	// Pass 1: clear orphaned location references
	for _, orphan := range findings.OrphanedRefs {
		file, ok := snap.Files[orphan.FileID]
		if !ok {
			continue
		}

		util.DebugLog("Clearing orphaned reference on file %s (missing location %s)",
			orphan.FileID, orphan.MissingLocationID)

		ops = append(ops, docstore.Operation{
			Kind:       docstore.OpUpdate,
			Collection: m.collections.Files,
			ID:         orphan.FileID,
			Fields: map[string]any{
				"location_id": nil,
				"status":      model.StatusNeedsLocation,
				"sync_note":   fmt.Sprintf("location reference cleared: %s no longer exists", orphan.MissingLocationID),
				"synced_at":   m.now(),
			},
		})

		file.LocationID = ""
		file.Status = model.StatusNeedsLocation
		result.OrphansCleared++
	}

	// Pass 2: assign department defaults to files without a location.
	// Files flagged needs-location are waiting for manual placement and
	// are left alone; without this, pass 1's correction would be undone
	// on the next run.
	for _, missing := range findings.MissingLocations {
		file, ok := snap.Files[missing.FileID]
		if !ok || file.Status == model.StatusNeedsLocation {
			continue
		}

		dept := file.Department
		if dept == "" {
			dept = FallbackDepartment
		}

		existed := defaultLocationID(snap, dept) != ""
		locID, err := m.EnsureDefaultLocation(ctx, snap, dept)
		if err != nil {
			result.fail(m.collections.Locations, dept, err)
			continue
		}
		if !existed && locID != "" {
			result.DefaultsCreated++
		}
		if locID == "" {
			// dry run without an existing default; nothing to assign to
			result.LocationsAssigned++
			continue
		}

		ops = append(ops, docstore.Operation{
			Kind:       docstore.OpUpdate,
			Collection: m.collections.Files,
			ID:         file.DocID,
			Fields: map[string]any{
				"location_id": locID,
				"status":      model.StatusAvailable,
				"sync_note":   fmt.Sprintf("assigned default location for department %s", dept),
				"synced_at":   m.now(),
			},
		})

		file.LocationID = locID
		file.Status = model.StatusAvailable
		result.LocationsAssigned++
	}

	// Pass 3: recompute availability and usage stats per location
	borrowed := detect.BorrowedCounts(snap)
	for _, loc := range snap.OrderedLocations() {
		wantAvailable := borrowed[loc.DocID] == 0
		wantStats := detect.UsageStats(snap, loc.DocID)

		if loc.Available == wantAvailable && loc.Stats == wantStats {
			continue
		}

		util.DebugLog("Location %s: is_available %t -> %t, stats %+v",
			loc.DocID, loc.Available, wantAvailable, wantStats)

		ops = append(ops, docstore.Operation{
			Kind:       docstore.OpUpdate,
			Collection: m.collections.Locations,
			ID:         loc.DocID,
			Fields: map[string]any{
				"is_available": wantAvailable,
				"usage_stats":  wantStats.StatsFields(),
				"synced_at":    m.now(),
			},
		})

		loc.Available = wantAvailable
		loc.Stats = wantStats
		result.LocationsUpdated++
	}

	m.flush(ctx, ops, result)
	return result, nil
}

// EnsureDefaultLocation returns the id of the default location for a
// department, creating it when absent. Calling it twice for the same
// department reuses the first location. Returns an empty id in dry-run
// mode when the location does not exist yet.
func (m *Mutator) EnsureDefaultLocation(ctx context.Context, snap *snapshot.Snapshot, department string) (string, error) {
	if id := defaultLocationID(snap, department); id != "" {
		return id, nil
	}

	if m.dryRun {
		util.InfoLog("[dry-run] would create default location for department %s", department)
		return "", nil
	}

	fields := map[string]any{
		"name":               fmt.Sprintf("Default (%s)", department),
		"type":               model.LocationSlot,
		"is_available":       true,
		"department_default": department,
		"description":        "auto-created default location",
		"created_at":         m.now(),
	}

	id, err := m.store.Create(ctx, m.collections.Locations, fields)
	if err != nil {
		return "", fmt.Errorf("create default location for %s: %w", department, err)
	}

	loc := &model.LocationRecord{
		DocID:             id,
		Name:              fields["name"].(string),
		Type:              model.LocationSlot,
		Available:         true,
		DepartmentDefault: department,
	}
	snap.Locations[id] = loc
	snap.LocationOrder = append(snap.LocationOrder, id)

	util.InfoLog("Created default location %s for department %s", id, department)
	return id, nil
}

func defaultLocationID(snap *snapshot.Snapshot, department string) string {
	for _, loc := range snap.OrderedLocations() {
		if loc.DepartmentDefault == department {
			return loc.DocID
		}
	}
	return ""
}

// flush commits the queued operations in sequential batches. A batch
// that fails with a per-document error is retried entry by entry so one
// bad document doesn't sink its batchmates; a transport failure drops
// the remaining batches.
func (m *Mutator) flush(ctx context.Context, ops []docstore.Operation, result *Result) {
	if len(ops) == 0 {
		return
	}

	if m.dryRun {
		util.InfoLog("[dry-run] would apply %d writes in %d batches",
			len(ops), (len(ops)+m.batchSize-1)/m.batchSize)
		return
	}

	total := (len(ops) + m.batchSize - 1) / m.batchSize

	for start := 0; start < len(ops); start += m.batchSize {
		end := start + m.batchSize
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[start:end]
		result.Batches++

		err := m.store.BatchWrite(ctx, batch)
		if err == nil {
			result.Writes += len(batch)
			util.DebugLog("Committed batch %d/%d (%d writes)", result.Batches, total, len(batch))
			continue
		}

		if errors.Is(err, docstore.ErrTransport) || ctx.Err() != nil {
			util.ErrorLog("Batch %d/%d failed, dropping remaining writes: %v", result.Batches, total, err)
			for _, op := range ops[start:] {
				result.fail(op.Collection, op.ID, err)
			}
			return
		}

		util.WarnLog("Batch %d/%d rejected, retrying entries individually: %v", result.Batches, total, err)
		for _, op := range batch {
			if uerr := m.applySingle(ctx, op); uerr != nil {
				result.fail(op.Collection, op.ID, uerr)
				continue
			}
			result.Writes++
		}
	}
}

func (m *Mutator) applySingle(ctx context.Context, op docstore.Operation) error {
	switch op.Kind {
	case docstore.OpUpdate:
		return m.store.Update(ctx, op.Collection, op.ID, op.Fields)
	case docstore.OpCreate:
		_, err := m.store.Create(ctx, op.Collection, op.Fields)
		return err
	default:
		return fmt.Errorf("unsupported single-op kind %d", op.Kind)
	}
}

func (r *Result) fail(collection, id string, err error) {
	util.ErrorLog("Write failed for %s/%s: %v", collection, id, err)
	r.Failures = append(r.Failures, FailedWrite{
		Collection: collection,
		ID:         id,
		Reason:     err.Error(),
	})
}
