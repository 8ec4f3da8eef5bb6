package reembed

import (
	"context"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// DefaultBatchSize is the default number of chunks handed to fn per batch.
const DefaultBatchSize = 64

// ChunkIterator iterates over the chunks of one session in batches.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	sessionID string
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch; values below 1 use DefaultBatchSize
func NewChunkIterator(repo storage.ChunkRepository, sessionID string, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		repo:      repo,
		sessionID: sessionID,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of chunks in save order.
// Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chunks, err := it.repo.LoadChunks(ctx, it.sessionID)
	if err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += it.batchSize {
		batch := chunks[start:min(start+it.batchSize, len(chunks))]
		if err := fn(batch); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
