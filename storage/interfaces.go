package storage

import (
	"context"

	"github.com/poiesic/attest/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// ChunkRepository persists the chunks and tables of sessions so their
// indexes can be rebuilt when a session is reopened. Indexes themselves are
// never stored.
type ChunkRepository interface {
	Repository

	// SaveChunks appends chunks to a session. Chunks load back in the
	// order they were saved.
	SaveChunks(ctx context.Context, sessionID string, chunks ...core.Chunk) error

	// LoadChunks returns every chunk of a session in save order.
	// Returns an empty slice for an unknown session.
	LoadChunks(ctx context.Context, sessionID string) ([]core.Chunk, error)

	// ReplaceChunks rewrites stored chunks matched by ID, keeping their
	// save order. Chunks the session does not hold are ignored.
	// Returns the number of chunks replaced.
	ReplaceChunks(ctx context.Context, sessionID string, chunks ...core.Chunk) (int, error)

	// SaveTables stores tables for a session, replacing any table with the
	// same document and index.
	SaveTables(ctx context.Context, sessionID string, tables ...core.Table) error

	// LoadTables returns every table of a session ordered by document and index.
	LoadTables(ctx context.Context, sessionID string) ([]core.Table, error)

	// GetSession returns the summary of a session.
	// Returns ErrNotFound if nothing was ever saved for it.
	GetSession(ctx context.Context, sessionID string) (*core.SessionInfo, error)

	// ListSessions returns the summaries of all persisted sessions ordered by ID.
	ListSessions(ctx context.Context) ([]*core.SessionInfo, error)

	// DeleteSession removes everything stored for a session, including its
	// document records. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error
}

// DocumentRepository records which source documents a session has ingested.
type DocumentRepository interface {
	Repository

	// SaveDocument creates or replaces a document record.
	SaveDocument(ctx context.Context, sessionID string, doc *core.Document) error

	// GetDocument retrieves a document record.
	// Returns ErrNotFound if the document was never recorded.
	GetDocument(ctx context.Context, sessionID, docID string) (*core.Document, error)

	// ListDocuments returns the document records of a session ordered by ID.
	ListDocuments(ctx context.Context, sessionID string) ([]*core.Document, error)
}
