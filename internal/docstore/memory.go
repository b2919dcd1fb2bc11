package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Store. It preserves insertion order per
// collection, counts writes, and supports failure injection, which makes
// it the test double for the reconciliation pipeline.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	failAll     map[string]error  // collection -> error on GetAll
	failDoc     map[string]error  // "collection/id" -> error on Update
	failBatch   error             // error on every BatchWrite
	writes      int
}

type memCollection struct {
	order []string
	docs  map[string]map[string]any
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		failAll:     make(map[string]error),
		failDoc:     make(map[string]error),
	}
}

func (m *Memory) coll(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]map[string]any)}
		m.collections[name] = c
	}
	return c
}

// Seed inserts a document with a fixed id, bypassing write counting
func (m *Memory) Seed(collection, id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = cloneFields(data)
}

// FailCollection makes GetAll on a collection return the given error
func (m *Memory) FailCollection(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll[collection] = err
}

// FailDoc makes Update on a specific document return the given error
func (m *Memory) FailDoc(collection, id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDoc[collection+"/"+id] = err
}

// FailBatches makes every BatchWrite return the given error
func (m *Memory) FailBatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBatch = err
}

// Writes returns the number of individual document writes applied
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// GetAll returns the collection in insertion order
func (m *Memory) GetAll(_ context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failAll[collection]; err != nil {
		return nil, err
	}

	c := m.coll(collection)
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Data: cloneFields(c.docs[id])})
	}
	return docs, nil
}

// Get returns a single document or ErrNotFound
func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(collection)
	data, ok := c.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Data: cloneFields(data)}, nil
}

// Update merges fields into an existing document
func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyUpdate(collection, id, fields)
}

func (m *Memory) applyUpdate(collection, id string, fields map[string]any) error {
	if err := m.failDoc[collection+"/"+id]; err != nil {
		return err
	}

	c := m.coll(collection)
	doc, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.writes++
	return nil
}

// Create adds a new document with a generated id
func (m *Memory) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyCreate(collection, fields)
}

func (m *Memory) applyCreate(collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	c := m.coll(collection)
	c.order = append(c.order, id)
	c.docs[id] = cloneFields(fields)
	m.writes++
	return id, nil
}

// BatchWrite applies all operations or none of them
func (m *Memory) BatchWrite(_ context.Context, ops []Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failBatch != nil {
		return m.failBatch
	}
	if len(ops) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds store limit of %d", len(ops), MaxBatchSize)
	}

	// Validate before applying so a failed batch leaves no partial state
	for _, op := range ops {
		switch op.Kind {
		case OpUpdate:
			if err := m.failDoc[op.Collection+"/"+op.ID]; err != nil {
				return err
			}
			if _, ok := m.coll(op.Collection).docs[op.ID]; !ok {
				return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		case OpDelete:
			if _, ok := m.coll(op.Collection).docs[op.ID]; !ok {
				return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case OpUpdate:
			if err := m.applyUpdate(op.Collection, op.ID, op.Fields); err != nil {
				return err
			}
		case OpCreate:
			if _, err := m.applyCreate(op.Collection, op.Fields); err != nil {
				return err
			}
		case OpDelete:
			c := m.coll(op.Collection)
			delete(c.docs, op.ID)
			for i, id := range c.order {
				if id == op.ID {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
			m.writes++
		}
	}
	return nil
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
