// Package reconcile wires the load, detect, fix and validate phases
// into the linear reconciliation pipeline. Runs are triggered on
// demand; there is no scheduler or worker pool here.
//
// Concurrent writers are an accepted limitation: a user editing records
// through the web UI while a run is in flight can race with the
// mutator, and there is no distributed locking to prevent it. Likewise,
// cancelling a run does not recall batch commits already issued to the
// store; those apply regardless.
package reconcile

import (
	"context"
	"time"

	"github.com/farid/spf-sync/internal/detect"
	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/fix"
	"github.com/farid/spf-sync/internal/health"
	"github.com/farid/spf-sync/internal/snapshot"
	"github.com/farid/spf-sync/internal/util"
)

// Reconciler runs reconciliation passes against a document store. It
// holds no state across runs; every run loads a fresh snapshot.
type Reconciler struct {
	store       docstore.Store
	collections snapshot.Collections
	batchSize   int
	dryRun      bool
	progress    bool
}

// Config holds reconciler configuration
type Config struct {
	Store        docstore.Store
	Collections  snapshot.Collections
	BatchSize    int
	DryRun       bool
	ShowProgress bool
}

// New creates a Reconciler. The store is the only collaborator; wrap it
// with docstore.WithRetry before passing it in if retries are wanted.
func New(cfg *Config) *Reconciler {
	colls := cfg.Collections
	if colls.Files == "" {
		colls = snapshot.DefaultCollections()
	}
	return &Reconciler{
		store:       cfg.Store,
		collections: colls,
		batchSize:   cfg.BatchSize,
		dryRun:      cfg.DryRun,
		progress:    cfg.ShowProgress,
	}
}

func (r *Reconciler) load(ctx context.Context) (*snapshot.Snapshot, error) {
	loader := snapshot.New(&snapshot.Config{
		Store:        r.store,
		Collections:  r.collections,
		ShowProgress: r.progress,
	})
	return loader.Load(ctx)
}

// Analyze loads a snapshot and reports defects without writing anything
func (r *Reconciler) Analyze(ctx context.Context) (*health.Report, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	findings := detect.Detect(snap)
	util.InfoLog("Detection complete: %d findings across %d files, %d locations",
		findings.Total(), len(snap.Files), len(snap.Locations))

	report := health.Build(snap, findings)
	report.Mode = "analyze"
	return report, nil
}

// Validate is Analyze under its health-check name; kept separate so the
// two commands read naturally at call sites.
func (r *Reconciler) Validate(ctx context.Context) (*health.Report, error) {
	report, err := r.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	report.Mode = "validate"
	return report, nil
}

// Repair detects defects, applies corrective mutations and re-validates
// against a fresh snapshot. The returned report reflects the state
// after mutation; partial write failures appear in its error list
// rather than failing the call.
func (r *Reconciler) Repair(ctx context.Context) (*health.Report, error) {
	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	findings := detect.Detect(snap)
	util.InfoLog("Detection complete: %d findings", findings.Total())

	// Fix mutates the snapshot in place, so the dry-run report has to
	// be built from the pre-mutation state.
	var report *health.Report
	if r.dryRun {
		report = health.Build(snap, findings)
	}

	mutator := fix.New(&fix.Config{
		Store:       r.store,
		Collections: r.collections,
		BatchSize:   r.batchSize,
		DryRun:      r.dryRun,
	})

	start := time.Now()
	result, err := mutator.Fix(ctx, snap, findings)
	if err != nil {
		return nil, err
	}
	util.InfoLog("Mutation complete in %v: %d writes, %d failures",
		time.Since(start).Round(time.Millisecond), result.Writes, len(result.Failures))

	if r.dryRun {
		report.Mode = "fix(dry-run)"
	} else {
		// Re-validate from the store, not from the mutated in-memory maps
		after, err := r.load(ctx)
		if err != nil {
			return nil, err
		}
		report = health.Build(after, detect.Detect(after))
		report.Mode = "fix"
	}
	report.AttachFix(result)
	return report, nil
}
