// Package health scores a snapshot's referential consistency and builds
// the machine-readable reconciliation report.
package health

import (
	"fmt"
	"math"
	"time"

	"github.com/farid/spf-sync/internal/detect"
	"github.com/farid/spf-sync/internal/fix"
	"github.com/farid/spf-sync/internal/snapshot"
)

// Issue is a single error or warning entry in the report
type Issue struct {
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail,omitempty"`
}

// Counts holds the raw per-category numbers of one detection pass
type Counts struct {
	Files      int `json:"files"`
	Locations  int `json:"locations"`
	Borrowings int `json:"borrowings"`

	OrphanedRefs        int `json:"orphaned_refs"`
	MissingLocations    int `json:"missing_locations"`
	UnusedLocations     int `json:"unused_locations"`
	StatusMismatches    int `json:"status_mismatches"`
	BorrowingMismatches int `json:"borrowing_mismatches"`
	SkippedDocs         int `json:"skipped_docs"`

	ValidReferences      int `json:"valid_references"`
	InvalidReferences    int `json:"invalid_references"`
	ConsistentStatuses   int `json:"consistent_statuses"`
	InconsistentStatuses int `json:"inconsistent_statuses"`
}

// FixSummary carries mutation results into the report
type FixSummary struct {
	OrphansCleared    int               `json:"orphans_cleared"`
	LocationsAssigned int               `json:"locations_assigned"`
	DefaultsCreated   int               `json:"defaults_created"`
	LocationsUpdated  int               `json:"locations_updated"`
	Writes            int               `json:"writes"`
	Batches           int               `json:"batches"`
	Failures          []fix.FailedWrite `json:"failures,omitempty"`
}

// Report is the machine-readable output of a reconciliation run. The
// JSON form is the stable contract; console text is cosmetic.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Mode        string      `json:"mode"`
	Counts      Counts      `json:"counts"`
	HealthScore int         `json:"health_score"`
	Passed      bool        `json:"passed"`
	Errors      []Issue     `json:"errors"`
	Warnings    []Issue     `json:"warnings"`
	Successes   []string    `json:"successes"`
	Fix         *FixSummary `json:"fix,omitempty"`
}

// Score computes the 0-100 health score from reference and status check
// counts. A zero denominator (no comparable data) scores 0.
func Score(valid, invalid, consistent, inconsistent int) int {
	denom := valid + invalid + consistent + inconsistent
	if denom == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(valid+consistent) / float64(denom)))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Build assembles a report from a detection pass over a snapshot.
// Passed is true iff no orphaned references and no status mismatches
// remain; everything else is a warning.
func Build(snap *snapshot.Snapshot, findings *detect.Findings) *Report {
	counts := Counts{
		Files:      len(snap.Files),
		Locations:  len(snap.Locations),
		Borrowings: len(snap.Borrowings),

		OrphanedRefs:        len(findings.OrphanedRefs),
		MissingLocations:    len(findings.MissingLocations),
		UnusedLocations:     len(findings.UnusedLocations),
		StatusMismatches:    len(findings.StatusMismatches),
		BorrowingMismatches: len(findings.BorrowingMismatches),
		SkippedDocs:         len(snap.Skipped),
	}

	withLocation := 0
	for _, f := range snap.Files {
		if f.HasLocation() {
			withLocation++
		}
	}
	counts.InvalidReferences = counts.OrphanedRefs
	counts.ValidReferences = withLocation - counts.OrphanedRefs
	counts.InconsistentStatuses = counts.StatusMismatches
	counts.ConsistentStatuses = counts.ValidReferences - counts.StatusMismatches

	report := &Report{
		GeneratedAt: time.Now(),
		Counts:      counts,
		HealthScore: Score(counts.ValidReferences, counts.InvalidReferences,
			counts.ConsistentStatuses, counts.InconsistentStatuses),
		Passed:    !findings.HasErrors(),
		Errors:    []Issue{},
		Warnings:  []Issue{},
		Successes: []string{},
	}

	for _, o := range findings.OrphanedRefs {
		report.Errors = append(report.Errors, Issue{
			Category: "orphaned_reference",
			Subject:  o.FileID,
			Detail:   fmt.Sprintf("references missing location %s", o.MissingLocationID),
		})
	}
	for _, m := range findings.StatusMismatches {
		report.Errors = append(report.Errors, Issue{
			Category: string(m.Kind),
			Subject:  m.FileID,
			Detail:   fmt.Sprintf("disagrees with location %s", m.LocationID),
		})
	}
	for _, m := range findings.MissingLocations {
		report.Warnings = append(report.Warnings, Issue{
			Category: "missing_location",
			Subject:  m.FileID,
			Detail:   "file has no storage location assigned",
		})
	}
	for _, u := range findings.UnusedLocations {
		report.Warnings = append(report.Warnings, Issue{
			Category: "unused_location",
			Subject:  u.LocationID,
			Detail:   "no file references this location",
		})
	}
	for _, b := range findings.BorrowingMismatches {
		report.Warnings = append(report.Warnings, Issue{
			Category: "borrowing_" + b.Kind,
			Subject:  b.BorrowingID,
			Detail:   fmt.Sprintf("file %s", b.FileID),
		})
	}
	for _, s := range snap.Skipped {
		report.Warnings = append(report.Warnings, Issue{
			Category: "skipped_document",
			Subject:  s.Collection + "/" + s.ID,
			Detail:   s.Reason,
		})
	}

	if counts.OrphanedRefs == 0 {
		report.Successes = append(report.Successes, "all location references valid")
	}
	if counts.StatusMismatches == 0 {
		report.Successes = append(report.Successes, "all file statuses consistent with locations")
	}
	if counts.MissingLocations == 0 {
		report.Successes = append(report.Successes, "every file has a storage location")
	}
	if counts.BorrowingMismatches == 0 {
		report.Successes = append(report.Successes, "borrowings consistent with file statuses")
	}

	return report
}

// AttachFix adds a mutation summary to the report, surfacing failed
// writes as report errors so partial failures are never swallowed.
func (r *Report) AttachFix(result *fix.Result) {
	r.Fix = &FixSummary{
		OrphansCleared:    result.OrphansCleared,
		LocationsAssigned: result.LocationsAssigned,
		DefaultsCreated:   result.DefaultsCreated,
		LocationsUpdated:  result.LocationsUpdated,
		Writes:            result.Writes,
		Batches:           result.Batches,
		Failures:          result.Failures,
	}
	for _, f := range result.Failures {
		r.Errors = append(r.Errors, Issue{
			Category: "write_failed",
			Subject:  f.Collection + "/" + f.ID,
			Detail:   f.Reason,
		})
		r.Passed = false
	}
}
