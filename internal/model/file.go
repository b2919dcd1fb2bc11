// Package model defines the record types stored in the SPF Tongod
// collections and the decoding from raw store documents.
package model

import (
	"fmt"
	"time"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/util"
)

// File status values
const (
	StatusAvailable     = "available"
	StatusBorrowed      = "borrowed"
	StatusArchived      = "archived"
	StatusNeedsLocation = "needs-location"
)

// FileRecord is a tracked physical file. LocationID is the foreign key
// into the locations collection; empty means no location assigned.
type FileRecord struct {
	DocID      string
	FileID     string // human-readable id, e.g. FILE2024001
	Title      string
	Reference  string
	Department string
	DocType    string
	Year       int
	Status     string
	LocationID string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DecodeFile builds a FileRecord from a raw document. A document without
// a usable status is malformed; everything else decodes best-effort.
// An empty-string location_id is normalized to unset.
func DecodeFile(doc docstore.Document) (*FileRecord, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: file document without id", util.ErrMalformedDocument)
	}

	status := asString(doc.Data, "status")
	switch status {
	case StatusAvailable, StatusBorrowed, StatusArchived, StatusNeedsLocation:
	case "":
		return nil, fmt.Errorf("%w: file %s has no status", util.ErrMalformedDocument, doc.ID)
	default:
		return nil, fmt.Errorf("%w: file %s has unknown status %q", util.ErrMalformedDocument, doc.ID, status)
	}

	return &FileRecord{
		DocID:      doc.ID,
		FileID:     asString(doc.Data, "file_id"),
		Title:      asString(doc.Data, "title"),
		Reference:  asString(doc.Data, "reference_number"),
		Department: asString(doc.Data, "department"),
		DocType:    asString(doc.Data, "document_type"),
		Year:       asInt(doc.Data, "document_year"),
		Status:     status,
		LocationID: asString(doc.Data, "location_id"),
		CreatedBy:  asString(doc.Data, "created_by"),
		CreatedAt:  asTime(doc.Data, "created_at"),
		UpdatedAt:  asTime(doc.Data, "updated_at"),
	}, nil
}

// HasLocation reports whether the file has a location assigned
func (f *FileRecord) HasLocation() bool {
	return f.LocationID != ""
}
