package badger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns the database.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveDocument persists a document record. IngestedAt defaults to now.
func (r *DocumentRepository) SaveDocument(ctx context.Context, sessionID string, doc *core.Document) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return core.ErrEmptyDocID
	}
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	value, err := storage.Marshal(doc)
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeDocumentKey(sessionID, doc.ID), value)
	})
}

// GetDocument retrieves a document record.
func (r *DocumentRepository) GetDocument(ctx context.Context, sessionID, docID string) (*core.Document, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(sessionID, docID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			doc, unmarshalErr = storage.Unmarshal[core.Document](val)
			return unmarshalErr
		})
	}, false)

	return doc, err
}

// ListDocuments returns the document records of a session ordered by ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, sessionID string) ([]*core.Document, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	docs := []*core.Document{}
	err := r.backend.scan(ctx, makeScopeKey(documentPrefix, sessionID), func(val []byte) error {
		doc, err := storage.Unmarshal[core.Document](val)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(docs, func(a, b *core.Document) int {
		return strings.Compare(a.ID, b.ID)
	})
	return docs, nil
}
