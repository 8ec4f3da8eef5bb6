package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (storage.ChunkRepository, func()) {
	chunks, docs, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	cleanup := func() {
		docs.Close()
		chunks.Close()
		backend.Close()
	}

	return chunks, cleanup
}

// seedChunks stores n chunks with placeholder vectors in session sessionID.
func seedChunks(t *testing.T, repo storage.ChunkRepository, sessionID string, n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		text := fmt.Sprintf("finding %d from the trial", i)
		chunks[i] = core.Chunk{
			ID:         core.ChunkID("trial.pdf", 1, i, text),
			DocID:      "trial.pdf",
			PageNum:    1,
			ChunkIndex: i,
			Text:       text,
			Vector:     []float32{1, 0, 0},
		}
	}
	require.NoError(t, repo.SaveChunks(context.Background(), sessionID, chunks...))
	return chunks
}

func TestChunkIterator_Batches(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	seeded := seedChunks(t, repo, "s1", 7)
	seedChunks(t, repo, "s2", 2)

	var sizes []int
	var seen []string
	err := NewChunkIterator(repo, "s1", 3).ForEach(context.Background(), func(chunks []core.Chunk) error {
		sizes = append(sizes, len(chunks))
		for _, c := range chunks {
			seen = append(seen, c.ID)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 1}, sizes)
	require.Len(t, seen, 7)
	for i, c := range seeded {
		assert.Equal(t, c.ID, seen[i])
	}
}

func TestChunkIterator_EmptySession(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	called := false
	err := NewChunkIterator(repo, "empty", 0).ForEach(context.Background(), func([]core.Chunk) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestChunkIterator_Errors(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedChunks(t, repo, "s1", 5)

	t.Run("stops on callback error", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := NewChunkIterator(repo, "s1", 2).ForEach(context.Background(), func([]core.Chunk) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when cancelled between batches", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := NewChunkIterator(repo, "s1", 2).ForEach(ctx, func([]core.Chunk) error {
			calls++
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid session", func(t *testing.T) {
		err := NewChunkIterator(repo, "", 2).ForEach(context.Background(), func([]core.Chunk) error { return nil })
		assert.ErrorIs(t, err, storage.ErrInvalidSessionID)
	})
}
