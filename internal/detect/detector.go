// Package detect classifies consistency defects between the files,
// locations and borrowings collections. All functions are pure: they
// read a snapshot and emit findings, nothing else.
package detect

import (
	"github.com/farid/spf-sync/internal/model"
	"github.com/farid/spf-sync/internal/snapshot"
)

// MismatchKind distinguishes the two directions of a file/location
// availability disagreement.
type MismatchKind string

const (
	// File is borrowed but its location still claims to be available
	KindBorrowingMismatch MismatchKind = "borrowing_status_mismatch"

	// File is available but its location claims to be occupied
	KindAvailabilityMismatch MismatchKind = "availability_mismatch"
)

// Borrowing defect kinds. These are warnings; borrowings are checked
// against files but never mutated.
const (
	BorrowingMissingFile      = "missing_file"
	BorrowingActiveFileIdle   = "active_but_file_not_borrowed"
	BorrowingReturnedFileBusy = "returned_but_file_still_borrowed"
)

// OrphanedRef is a file pointing at a location that does not exist
type OrphanedRef struct {
	FileID            string
	MissingLocationID string
}

// MissingLocation is a file with no location assigned at all
type MissingLocation struct {
	FileID string
}

// UnusedLocation is a location no file references (warning only)
type UnusedLocation struct {
	LocationID string
}

// StatusMismatch is a file whose status disagrees with the availability
// flag of its (existing) location.
type StatusMismatch struct {
	FileID     string
	LocationID string
	Kind       MismatchKind
}

// BorrowingMismatch is a borrowing whose status disagrees with the
// referenced file, or references a file that does not exist.
type BorrowingMismatch struct {
	BorrowingID string
	FileID      string
	Kind        string
}

// Findings holds every defect found in one detection pass. Slice order
// follows snapshot iteration order and is not a stable contract.
type Findings struct {
	OrphanedRefs        []OrphanedRef
	MissingLocations    []MissingLocation
	UnusedLocations     []UnusedLocation
	StatusMismatches    []StatusMismatch
	BorrowingMismatches []BorrowingMismatch
}

// HasErrors reports whether error-level defects remain. Unused
// locations, missing-location files and borrowing mismatches are
// warnings and do not count.
func (f *Findings) HasErrors() bool {
	return len(f.OrphanedRefs) > 0 || len(f.StatusMismatches) > 0
}

// Total returns the number of findings across all categories
func (f *Findings) Total() int {
	return len(f.OrphanedRefs) + len(f.MissingLocations) + len(f.UnusedLocations) +
		len(f.StatusMismatches) + len(f.BorrowingMismatches)
}

// Detect runs all defect passes over a snapshot
func Detect(snap *snapshot.Snapshot) *Findings {
	findings := &Findings{}

	referenced := make(map[string]bool, len(snap.Locations))

	for _, file := range snap.OrderedFiles() {
		if !file.HasLocation() {
			findings.MissingLocations = append(findings.MissingLocations, MissingLocation{
				FileID: file.DocID,
			})
			continue
		}

		loc, ok := snap.Locations[file.LocationID]
		if !ok {
			findings.OrphanedRefs = append(findings.OrphanedRefs, OrphanedRef{
				FileID:            file.DocID,
				MissingLocationID: file.LocationID,
			})
			continue
		}

		referenced[loc.DocID] = true

		switch {
		case file.Status == model.StatusBorrowed && loc.Available:
			findings.StatusMismatches = append(findings.StatusMismatches, StatusMismatch{
				FileID:     file.DocID,
				LocationID: loc.DocID,
				Kind:       KindBorrowingMismatch,
			})
		case file.Status == model.StatusAvailable && !loc.Available:
			findings.StatusMismatches = append(findings.StatusMismatches, StatusMismatch{
				FileID:     file.DocID,
				LocationID: loc.DocID,
				Kind:       KindAvailabilityMismatch,
			})
		}
	}

	for _, loc := range snap.OrderedLocations() {
		if !referenced[loc.DocID] {
			findings.UnusedLocations = append(findings.UnusedLocations, UnusedLocation{
				LocationID: loc.DocID,
			})
		}
	}

	for _, b := range snap.Borrowings {
		file, ok := snap.Files[b.FileID]
		if !ok {
			findings.BorrowingMismatches = append(findings.BorrowingMismatches, BorrowingMismatch{
				BorrowingID: b.DocID,
				FileID:      b.FileID,
				Kind:        BorrowingMissingFile,
			})
			continue
		}

		switch {
		case b.Status == model.BorrowingActive && file.Status != model.StatusBorrowed:
			findings.BorrowingMismatches = append(findings.BorrowingMismatches, BorrowingMismatch{
				BorrowingID: b.DocID,
				FileID:      b.FileID,
				Kind:        BorrowingActiveFileIdle,
			})
		case b.Status == model.BorrowingReturned && file.Status == model.StatusBorrowed:
			findings.BorrowingMismatches = append(findings.BorrowingMismatches, BorrowingMismatch{
				BorrowingID: b.DocID,
				FileID:      b.FileID,
				Kind:        BorrowingReturnedFileBusy,
			})
		}
	}

	return findings
}

// BorrowedCounts returns, for every location, the number of files at
// that location with borrowed status. Locations holding no borrowed
// files map to zero, including unreferenced ones.
func BorrowedCounts(snap *snapshot.Snapshot) map[string]int {
	counts := make(map[string]int, len(snap.Locations))
	for id := range snap.Locations {
		counts[id] = 0
	}
	for _, file := range snap.Files {
		if !file.HasLocation() {
			continue
		}
		if _, ok := snap.Locations[file.LocationID]; !ok {
			continue
		}
		if file.Status == model.StatusBorrowed {
			counts[file.LocationID]++
		}
	}
	return counts
}

// UsageStats recomputes the derived per-location counters from the
// files collection.
func UsageStats(snap *snapshot.Snapshot, locationID string) model.UsageStats {
	var stats model.UsageStats
	for _, file := range snap.Files {
		if file.LocationID != locationID {
			continue
		}
		stats.Total++
		switch file.Status {
		case model.StatusAvailable:
			stats.Available++
		case model.StatusBorrowed:
			stats.Borrowed++
		case model.StatusArchived:
			stats.Archived++
		}
	}
	return stats
}
