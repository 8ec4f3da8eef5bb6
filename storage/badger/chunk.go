package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// saveBatchSize bounds the chunks written per transaction. Chunks carry
// their vectors, so large ingests are split to stay under badger's
// transaction size limit.
const saveBatchSize = 256

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	seq, err := backend.GetSequence(chunkSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the chunk sequence.
func (r *ChunkRepository) Close() error {
	return r.seq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

func (r *ChunkRepository) nextSeq() (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return r.seq.Next()
	}
	return next, nil
}

// SaveChunks appends chunks to a session in order.
func (r *ChunkRepository) SaveChunks(ctx context.Context, sessionID string, chunks ...core.Chunk) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += saveBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := chunks[start:min(start+saveBatchSize, len(chunks))]

		values := make([][]byte, len(batch))
		for i := range batch {
			value, err := storage.Marshal(&batch[i])
			if err != nil {
				return err
			}
			values[i] = value
		}

		seqs := make([]uint64, len(batch))
		for i := range seqs {
			seq, err := r.nextSeq()
			if err != nil {
				return err
			}
			seqs[i] = seq
		}

		err := r.backend.Update(func(tx *badger.Txn) error {
			for i, value := range values {
				if err := tx.Set(makeChunkKey(sessionID, seqs[i]), value); err != nil {
					return err
				}
			}
			return touchSession(tx, sessionID, len(batch), 0)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadChunks returns the chunks of a session in save order.
func (r *ChunkRepository) LoadChunks(ctx context.Context, sessionID string) ([]core.Chunk, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	chunks := []core.Chunk{}
	err := r.backend.scan(ctx, makeScopeKey(chunkPrefix, sessionID), func(val []byte) error {
		chunk, err := storage.Unmarshal[core.Chunk](val)
		if err != nil {
			return err
		}
		chunks = append(chunks, *chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// ReplaceChunks rewrites the stored chunks whose IDs match, in place.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, sessionID string, chunks ...core.Chunk) (int, error) {
	if err := validateSessionID(sessionID); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	byID := make(map[string]int, len(chunks))
	for i, c := range chunks {
		byID[c.ID] = i
	}

	type replacement struct {
		key   []byte
		value []byte
	}
	var pending []replacement
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeScopeKey(chunkPrefix, sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var stored *core.Chunk
			err := item.Value(func(val []byte) error {
				var err error
				stored, err = storage.Unmarshal[core.Chunk](val)
				return err
			})
			if err != nil {
				return err
			}
			i, ok := byID[stored.ID]
			if !ok {
				continue
			}
			value, err := storage.Marshal(&chunks[i])
			if err != nil {
				return err
			}
			pending = append(pending, replacement{key: item.KeyCopy(nil), value: value})
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(pending); start += saveBatchSize {
		if err := ctx.Err(); err != nil {
			return start, err
		}
		batch := pending[start:min(start+saveBatchSize, len(pending))]
		err := r.backend.Update(func(tx *badger.Txn) error {
			for _, p := range batch {
				if err := tx.Set(p.key, p.value); err != nil {
					return err
				}
			}
			return touchSession(tx, sessionID, 0, 0)
		})
		if err != nil {
			return start, err
		}
	}
	return len(pending), nil
}

// SaveTables stores tables for a session, replacing tables with the same
// document and index.
func (r *ChunkRepository) SaveTables(ctx context.Context, sessionID string, tables ...core.Table) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	values := make([][]byte, len(tables))
	for i := range tables {
		value, err := storage.Marshal(&tables[i])
		if err != nil {
			return err
		}
		values[i] = value
	}

	return r.backend.Update(func(tx *badger.Txn) error {
		added := 0
		for i, t := range tables {
			key := makeTableKey(sessionID, t.DocID, t.Index)
			_, err := tx.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				added++
			case err != nil:
				return err
			}
			if err := tx.Set(key, values[i]); err != nil {
				return err
			}
		}
		return touchSession(tx, sessionID, 0, added)
	})
}

// LoadTables returns the tables of a session ordered by document and index.
func (r *ChunkRepository) LoadTables(ctx context.Context, sessionID string) ([]core.Table, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	tables := []core.Table{}
	err := r.backend.scan(ctx, makeScopeKey(tablePrefix, sessionID), func(val []byte) error {
		t, err := storage.Unmarshal[core.Table](val)
		if err != nil {
			return err
		}
		tables = append(tables, *t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys order by length-prefixed document ID, not by the ID itself.
	slices.SortStableFunc(tables, func(a, b core.Table) int {
		if c := strings.Compare(a.DocID, b.DocID); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return tables, nil
}

// GetSession returns the summary of a session.
func (r *ChunkRepository) GetSession(ctx context.Context, sessionID string) (*core.SessionInfo, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	var info *core.SessionInfo
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readSession(tx, sessionID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, storage.ErrNotFound
	}
	return info, nil
}

// ListSessions returns all session summaries ordered by ID.
func (r *ChunkRepository) ListSessions(ctx context.Context) ([]*core.SessionInfo, error) {
	sessions := []*core.SessionInfo{}
	err := r.backend.scan(ctx, []byte(sessionPrefix+":"), func(val []byte) error {
		info, err := storage.Unmarshal[core.SessionInfo](val)
		if err != nil {
			return err
		}
		sessions = append(sessions, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(sessions, func(a, b *core.SessionInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return sessions, nil
}

// DeleteSession removes the chunks, tables, document records and summary
// of a session.
func (r *ChunkRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return r.backend.deletePrefixes(ctx, sessionScopes(sessionID)...)
}

// readSession returns nil, nil when the session has no summary.
func readSession(tx *badger.Txn, sessionID string) (*core.SessionInfo, error) {
	item, err := tx.Get(makeSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var info *core.SessionInfo
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		info, unmarshalErr = storage.Unmarshal[core.SessionInfo](val)
		return unmarshalErr
	})
	return info, err
}

// touchSession updates the summary counts of a session, creating it on
// first write.
func touchSession(tx *badger.Txn, sessionID string, chunks, tables int) error {
	info, err := readSession(tx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if info == nil {
		info = &core.SessionInfo{ID: sessionID, CreatedAt: now}
	}
	info.Chunks += chunks
	info.Tables += tables
	info.UpdatedAt = now

	value, err := storage.Marshal(info)
	if err != nil {
		return err
	}
	return tx.Set(makeSessionKey(sessionID), value)
}
