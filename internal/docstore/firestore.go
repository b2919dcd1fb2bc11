package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on top of Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore connects to Firestore for the given project. An empty
// credentialsFile falls back to application default credentials.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect firestore: %v", ErrTransport, err)
	}

	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client connection
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

// GetAll returns every document in a collection
func (f *FirestoreStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	iter := f.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapFirestoreErr(fmt.Sprintf("read collection %s", collection), err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}

	return docs, nil
}

// Get returns a single document by id
func (f *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, mapFirestoreErr(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Update merges fields into an existing document
func (f *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return mapFirestoreErr(fmt.Sprintf("update %s/%s", collection, id), err)
	}
	return nil
}

// Create adds a new document with a store-assigned id
func (f *FirestoreStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref := f.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, fields); err != nil {
		return "", mapFirestoreErr(fmt.Sprintf("create in %s", collection), err)
	}
	return ref.ID, nil
}

// BatchWrite commits up to MaxBatchSize operations in one atomic batch
func (f *FirestoreStore) BatchWrite(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds store limit of %d", len(ops), MaxBatchSize)
	}

	batch := f.client.Batch()
	for _, op := range ops {
		coll := f.client.Collection(op.Collection)
		switch op.Kind {
		case OpUpdate:
			batch.Set(coll.Doc(op.ID), op.Fields, firestore.MergeAll)
		case OpCreate:
			batch.Create(coll.NewDoc(), op.Fields)
		case OpDelete:
			batch.Delete(coll.Doc(op.ID))
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return mapFirestoreErr(fmt.Sprintf("commit batch of %d", len(ops)), err)
	}
	return nil
}

// mapFirestoreErr translates gRPC status codes into the package sentinels
// so callers can branch with errors.Is.
func mapFirestoreErr(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w: %v", op, ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
	}
}
