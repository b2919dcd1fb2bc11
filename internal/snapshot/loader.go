// Package snapshot loads point-in-time copies of the files, locations
// and borrowings collections into memory for the detection passes.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/model"
	"github.com/farid/spf-sync/internal/util"
)

// Collections names the three source collections
type Collections struct {
	Files      string
	Locations  string
	Borrowings string
}

// DefaultCollections returns the production collection names
func DefaultCollections() Collections {
	return Collections{
		Files:      "files",
		Locations:  "locations",
		Borrowings: "borrowings",
	}
}

// SkippedDoc records a document that could not be decoded
type SkippedDoc struct {
	Collection string
	ID         string
	Reason     string
}

// Snapshot is one logical point-in-time view of the collections. Maps
// are keyed by document id; the order slices preserve store iteration
// order for detection. Read-only after Load returns.
type Snapshot struct {
	Files     map[string]*model.FileRecord
	FileOrder []string

	Locations     map[string]*model.LocationRecord
	LocationOrder []string

	Borrowings []*model.BorrowingRecord

	Skipped  []SkippedDoc
	LoadedAt time.Time
}

// OrderedFiles returns files in store iteration order
func (s *Snapshot) OrderedFiles() []*model.FileRecord {
	out := make([]*model.FileRecord, 0, len(s.FileOrder))
	for _, id := range s.FileOrder {
		out = append(out, s.Files[id])
	}
	return out
}

// OrderedLocations returns locations in store iteration order
func (s *Snapshot) OrderedLocations() []*model.LocationRecord {
	out := make([]*model.LocationRecord, 0, len(s.LocationOrder))
	for _, id := range s.LocationOrder {
		out = append(out, s.Locations[id])
	}
	return out
}

// Loader pulls full collection snapshots from the store
type Loader struct {
	store        docstore.Store
	collections  Collections
	showProgress bool
}

// Config holds loader configuration
type Config struct {
	Store        docstore.Store
	Collections  Collections
	ShowProgress bool
}

// New creates a new Loader
func New(cfg *Config) *Loader {
	colls := cfg.Collections
	if colls.Files == "" {
		colls = DefaultCollections()
	}
	return &Loader{
		store:        cfg.Store,
		collections:  colls,
		showProgress: cfg.ShowProgress,
	}
}

// Load fetches all three collections concurrently and decodes them into
// a Snapshot. A failed collection fetch aborts the whole load; a
// document that fails to decode is skipped and recorded.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	var fileDocs, locationDocs, borrowingDocs []docstore.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fileDocs, err = l.store.GetAll(gctx, l.collections.Files)
		if err != nil {
			return fmt.Errorf("load %s: %w", l.collections.Files, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		locationDocs, err = l.store.GetAll(gctx, l.collections.Locations)
		if err != nil {
			return fmt.Errorf("load %s: %w", l.collections.Locations, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		borrowingDocs, err = l.store.GetAll(gctx, l.collections.Borrowings)
		if err != nil {
			return fmt.Errorf("load %s: %w", l.collections.Borrowings, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	util.DebugLog("Fetched %d files, %d locations, %d borrowings in %v",
		len(fileDocs), len(locationDocs), len(borrowingDocs),
		time.Since(start).Round(time.Millisecond))

	snap := &Snapshot{
		Files:     make(map[string]*model.FileRecord, len(fileDocs)),
		Locations: make(map[string]*model.LocationRecord, len(locationDocs)),
		LoadedAt:  start,
	}

	bar := l.newBar(len(fileDocs) + len(locationDocs) + len(borrowingDocs))

	for _, doc := range fileDocs {
		if bar != nil {
			bar.Add(1)
		}
		f, err := model.DecodeFile(doc)
		if err != nil {
			snap.skip(l.collections.Files, doc.ID, err)
			continue
		}
		snap.Files[f.DocID] = f
		snap.FileOrder = append(snap.FileOrder, f.DocID)
	}

	for _, doc := range locationDocs {
		if bar != nil {
			bar.Add(1)
		}
		loc, err := model.DecodeLocation(doc)
		if err != nil {
			snap.skip(l.collections.Locations, doc.ID, err)
			continue
		}
		snap.Locations[loc.DocID] = loc
		snap.LocationOrder = append(snap.LocationOrder, loc.DocID)
	}

	for _, doc := range borrowingDocs {
		if bar != nil {
			bar.Add(1)
		}
		b, err := model.DecodeBorrowing(doc)
		if err != nil {
			snap.skip(l.collections.Borrowings, doc.ID, err)
			continue
		}
		snap.Borrowings = append(snap.Borrowings, b)
	}

	if bar != nil {
		bar.Finish()
	}

	if len(snap.Skipped) > 0 {
		util.WarnLog("Skipped %d malformed documents", len(snap.Skipped))
	}

	return snap, nil
}

func (l *Loader) newBar(total int) *progressbar.ProgressBar {
	if !l.showProgress || total == 0 || !util.IsTerminal(os.Stderr.Fd()) || util.IsQuiet() {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Loading snapshot"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (s *Snapshot) skip(collection, id string, err error) {
	util.DebugLog("Skipping %s/%s: %v", collection, id, err)
	s.Skipped = append(s.Skipped, SkippedDoc{
		Collection: collection,
		ID:         id,
		Reason:     err.Error(),
	})
}
