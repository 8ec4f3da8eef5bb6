package table

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/attest/core"
)

// Store provides the tables extracted from a document.
type Store interface {
	// Tables returns the tables of docID in extraction order.
	// An unknown document yields an empty slice and no error.
	Tables(ctx context.Context, docID string) ([]core.Table, error)
}

// MemoryStore is a session-scoped Store held in memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	byDoc map[string][]core.Table
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byDoc: make(map[string][]core.Table)}
}

// Add validates and stores tables. Nothing is stored if any table is invalid.
func (s *MemoryStore) Add(tables ...core.Table) error {
	for i := range tables {
		if err := core.ValidateTable(&tables[i]); err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tables {
		s.byDoc[t.DocID] = append(s.byDoc[t.DocID], cloneTable(t))
	}
	return nil
}

// Tables implements Store.
func (s *MemoryStore) Tables(ctx context.Context, docID string) ([]core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byDoc[docID]
	out := make([]core.Table, len(stored))
	for i, t := range stored {
		out[i] = cloneTable(t)
	}
	return out, nil
}

// Docs returns the IDs of documents with at least one table, sorted.
func (s *MemoryStore) Docs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]string, 0, len(s.byDoc))
	for id := range s.byDoc {
		docs = append(docs, id)
	}
	slices.Sort(docs)
	return docs
}

// All returns every stored table ordered by document ID.
func (s *MemoryStore) All() []core.Table {
	var out []core.Table
	for _, doc := range s.Docs() {
		s.mu.RLock()
		for _, t := range s.byDoc[doc] {
			out = append(out, cloneTable(t))
		}
		s.mu.RUnlock()
	}
	return out
}

// Len returns the number of stored tables.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tables := range s.byDoc {
		n += len(tables)
	}
	return n
}

// Reset drops every table.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDoc = make(map[string][]core.Table)
}

// Collect gathers the tables of each document in docIDs from store, in order.
func Collect(ctx context.Context, store Store, docIDs []string) ([]core.Table, error) {
	if store == nil {
		return nil, nil
	}
	var out []core.Table
	for _, id := range docIDs {
		tables, err := store.Tables(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading tables for %s: %w", id, err)
		}
		out = append(out, tables...)
	}
	return out, nil
}

func cloneTable(t core.Table) core.Table {
	t.Columns = slices.Clone(t.Columns)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = slices.Clone(r)
	}
	t.Rows = rows
	return t
}
