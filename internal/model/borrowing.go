package model

import (
	"fmt"
	"time"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/util"
)

// Borrowing status values
const (
	BorrowingActive   = "borrowed"
	BorrowingReturned = "returned"
)

// BorrowingRecord joins a file to a borrower for a period. The
// reconciler checks its status against the referenced file but never
// mutates borrowings.
type BorrowingRecord struct {
	DocID      string
	FileID     string // document id of the borrowed file
	Borrower   string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt time.Time
	Status     string
}

// DecodeBorrowing builds a BorrowingRecord from a raw document
func DecodeBorrowing(doc docstore.Document) (*BorrowingRecord, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: borrowing document without id", util.ErrMalformedDocument)
	}

	status := asString(doc.Data, "status")
	if status != BorrowingActive && status != BorrowingReturned {
		return nil, fmt.Errorf("%w: borrowing %s has unknown status %q", util.ErrMalformedDocument, doc.ID, status)
	}

	fileID := asString(doc.Data, "file_id")
	if fileID == "" {
		return nil, fmt.Errorf("%w: borrowing %s has no file reference", util.ErrMalformedDocument, doc.ID)
	}

	return &BorrowingRecord{
		DocID:      doc.ID,
		FileID:     fileID,
		Borrower:   asString(doc.Data, "borrower"),
		BorrowedAt: asTime(doc.Data, "borrowed_date"),
		DueAt:      asTime(doc.Data, "due_date"),
		ReturnedAt: asTime(doc.Data, "returned_date"),
		Status:     status,
	}, nil
}
