package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/search"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/table"
)

// Session is the isolation boundary for one user interaction context.
//
// Chunks are the authoritative state; the indexes are derived from them and
// can be rebuilt at any time. A Session is safe for concurrent use.
type Session struct {
	id string

	mu       sync.RWMutex
	vectors  *search.VectorIndex
	keywords *search.KeywordIndex
	tables   *table.MemoryStore
	chunks   map[string]core.Chunk
	order    []string
	closed   bool

	repo   storage.ChunkRepository
	logger *slog.Logger
}

func newSession(id string, repo storage.ChunkRepository, logger *slog.Logger) *Session {
	return &Session{
		id:       id,
		vectors:  search.NewVectorIndex(),
		keywords: search.NewKeywordIndex(),
		tables:   table.NewMemoryStore(),
		chunks:   make(map[string]core.Chunk),
		repo:     repo,
		logger:   logger.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Vectors implements search.Source.
func (s *Session) Vectors() *search.VectorIndex {
	return s.vectors
}

// Keywords implements search.Source.
func (s *Session) Keywords() *search.KeywordIndex {
	return s.keywords
}

// Chunk implements search.Source.
func (s *Session) Chunk(id string) (core.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

// Chunks returns the chunks with the given IDs in the order given.
// Unknown IDs are skipped.
func (s *Session) Chunks(ids []string) []core.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AllChunks returns every chunk in insertion order.
func (s *Session) AllChunks() []core.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Chunk, len(s.order))
	for i, id := range s.order {
		out[i] = s.chunks[id]
	}
	return out
}

// Len returns the number of chunks.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// TableStore returns the session's tables as a table.Store.
func (s *Session) TableStore() table.Store {
	return s.tables
}

// Tables returns the session's table store.
func (s *Session) Tables() *table.MemoryStore {
	return s.tables
}

// DocIDs returns the sorted IDs of every document with chunks or tables in
// the session.
func (s *Session) DocIDs() []string {
	s.mu.RLock()
	seen := make(map[string]bool)
	var docs []string
	for _, id := range s.order {
		doc := s.chunks[id].DocID
		if !seen[doc] {
			seen[doc] = true
			docs = append(docs, doc)
		}
	}
	s.mu.RUnlock()

	for _, doc := range s.tables.Docs() {
		if !seen[doc] {
			seen[doc] = true
			docs = append(docs, doc)
		}
	}
	slices.Sort(docs)
	return docs
}

// AddChunks validates chunks and adds them to both indexes. Chunks without a
// vector are reachable through keyword search only. When the session has a
// repository the chunks are persisted before they are indexed.
//
// Nothing is added if any chunk is invalid, repeats an existing ID or has a
// vector whose dimension differs from the index.
func (s *Session) AddChunks(ctx context.Context, chunks ...core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.check(chunks); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.SaveChunks(ctx, s.id, chunks...); err != nil {
			return fmt.Errorf("persisting chunks: %w", err)
		}
	}
	return s.index(chunks)
}

// check validates chunks against each other and the current indexes.
func (s *Session) check(chunks []core.Chunk) error {
	dim := s.vectors.Dimension()
	batch := make(map[string]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if err := core.ValidateChunk(c); err != nil {
			return err
		}
		if _, exists := s.chunks[c.ID]; exists || batch[c.ID] {
			return fmt.Errorf("%w: %s", search.ErrDuplicateChunk, c.ID)
		}
		batch[c.ID] = true
		if len(c.Vector) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(c.Vector)
		} else if len(c.Vector) != dim {
			return fmt.Errorf("%w: chunk %s has %d, want %d", search.ErrDimensionMismatch, c.ID, len(c.Vector), dim)
		}
	}
	return nil
}

// index inserts already checked chunks. The caller holds s.mu.
func (s *Session) index(chunks []core.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) > 0 {
			if err := s.vectors.Insert(c.ID, c.DocID, c.Vector); err != nil {
				return err
			}
		}
		if err := s.keywords.Insert(c.ID, c.DocID, c.Text); err != nil {
			return err
		}
		s.chunks[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return nil
}

// AddTables validates tables and adds them to the table store, persisting
// them first when the session has a repository.
func (s *Session) AddTables(ctx context.Context, tables ...core.Table) error {
	if len(tables) == 0 {
		return nil
	}
	for i := range tables {
		if err := core.ValidateTable(&tables[i]); err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.repo != nil {
		if err := s.repo.SaveTables(ctx, s.id, tables...); err != nil {
			return fmt.Errorf("persisting tables: %w", err)
		}
	}
	return s.tables.Add(tables...)
}

// Rebuild recreates both indexes from the session's chunks.
func (s *Session) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	chunks := make([]core.Chunk, len(s.order))
	for i, id := range s.order {
		chunks[i] = s.chunks[id]
	}
	s.chunks = make(map[string]core.Chunk, len(chunks))
	s.order = s.order[:0]
	s.vectors.Reset()
	s.keywords.Reset()
	if err := s.index(chunks); err != nil {
		return fmt.Errorf("rebuilding indexes: %w", err)
	}
	s.logger.Debug("rebuilt indexes", "chunks", len(chunks), "vectors", s.vectors.Len())
	return nil
}

// load fills a fresh session from its repository without writing back.
func (s *Session) load(ctx context.Context) error {
	chunks, err := s.repo.LoadChunks(ctx, s.id)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	tables, err := s.repo.LoadTables(ctx, s.id)
	if err != nil {
		return fmt.Errorf("loading tables: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(chunks); err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	if err := s.index(chunks); err != nil {
		return err
	}
	if err := s.tables.Add(tables...); err != nil {
		return fmt.Errorf("loading tables: %w", err)
	}
	s.logger.Info("session loaded", "chunks", len(chunks), "tables", len(tables))
	return nil
}

// close releases the indexes. Persisted data is left untouched.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.vectors.Reset()
	s.keywords.Reset()
	s.tables.Reset()
	s.chunks = make(map[string]core.Chunk)
	s.order = nil
}

// Closed reports whether the session was closed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
