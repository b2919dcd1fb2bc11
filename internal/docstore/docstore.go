// Package docstore abstracts the document database that holds the SPF
// Tongod collections. The reconciliation core only ever talks to the
// Store interface; the Firestore implementation lives behind it so tests
// can run against the in-memory store.
package docstore

import (
	"context"
	"errors"
)

const (
	// MaxBatchSize is the hard per-batch write ceiling of the backing store.
	MaxBatchSize = 500

	// DefaultBatchSize leaves headroom below the ceiling.
	DefaultBatchSize = 400
)

// Sentinel errors mapped from store failures
var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransport        = errors.New("transport error")
)

// Document is a raw document as returned by the store: an opaque id plus
// the schema-free field map.
type Document struct {
	ID   string
	Data map[string]any
}

// OpKind is the kind of a batched write operation
type OpKind int

const (
	OpUpdate OpKind = iota
	OpCreate
	OpDelete
)

// Operation is a single entry in a batched write. Update merges Fields
// into the existing document; a nil value in Fields is stored as an
// explicit null, not a deletion.
type Operation struct {
	Kind       OpKind
	Collection string
	ID         string // ignored for OpCreate
	Fields     map[string]any
}

// Store is the document database client surface the reconciler depends on.
type Store interface {
	// GetAll returns every document in a collection, in store iteration order.
	GetAll(ctx context.Context, collection string) ([]Document, error)

	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Create adds a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// BatchWrite applies up to MaxBatchSize operations. The batch fails or
	// applies atomically as a whole; the caller owns splitting larger sets.
	BatchWrite(ctx context.Context, ops []Operation) error
}
