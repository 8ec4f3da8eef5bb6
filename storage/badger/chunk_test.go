package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepositories(t *testing.T) (storage.ChunkRepository, storage.DocumentRepository) {
	t.Helper()
	chunks, docs, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docs.Close()
		chunks.Close()
		backend.Close()
	})
	return chunks, docs
}

func testChunk(doc string, i int) core.Chunk {
	text := fmt.Sprintf("chunk %d of %s", i, doc)
	return core.Chunk{
		ID:         core.ChunkID(doc, 1, i, text),
		DocID:      doc,
		PageNum:    1,
		ChunkIndex: i,
		Text:       text,
		Vector:     []float32{float32(i), 1},
	}
}

func TestChunkRepository_SaveAndLoad(t *testing.T) {
	repo, _ := newRepositories(t)
	ctx := context.Background()

	first := []core.Chunk{testChunk("doc_B", 0), testChunk("doc_A", 0)}
	second := []core.Chunk{testChunk("doc_A", 1)}
	require.NoError(t, repo.SaveChunks(ctx, "s1", first...))
	require.NoError(t, repo.SaveChunks(ctx, "s1", second...))
	require.NoError(t, repo.SaveChunks(ctx, "s2", testChunk("doc_C", 0)))

	got, err := repo.LoadChunks(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, append(first, second...), got)

	other, err := repo.LoadChunks(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "doc_C", other[0].DocID)

	none, err := repo.LoadChunks(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChunkRepository_SaveManyKeepsOrder(t *testing.T) {
	repo, _ := newRepositories(t)
	ctx := context.Background()

	chunks := make([]core.Chunk, saveBatchSize*2+3)
	for i := range chunks {
		chunks[i] = testChunk("doc", i)
	}
	require.NoError(t, repo.SaveChunks(ctx, "s1", chunks...))

	got, err := repo.LoadChunks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, len(chunks))
	for i := range chunks {
		assert.Equal(t, chunks[i].ID, got[i].ID)
	}

	info, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, len(chunks), info.Chunks)
}

func TestChunkRepository_ReplaceChunks(t *testing.T) {
	repo, _ := newRepositories(t)
	ctx := context.Background()

	original := []core.Chunk{testChunk("doc", 0), testChunk("doc", 1), testChunk("doc", 2)}
	require.NoError(t, repo.SaveChunks(ctx, "s1", original...))
	require.NoError(t, repo.SaveChunks(ctx, "s2", testChunk("doc", 1)))

	updated := testChunk("doc", 1)
	updated.Vector = []float32{0, 0, 1}
	unknown := testChunk("other", 9)

	n, err := repo.ReplaceChunks(ctx, "s1", updated, unknown)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	loaded, err := repo.LoadChunks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, original[0], loaded[0])
	assert.Equal(t, updated, loaded[1])
	assert.Equal(t, original[2], loaded[2])

	other, err := repo.LoadChunks(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, other[0].Vector)

	info, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Chunks)

	n, err = repo.ReplaceChunks(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.ReplaceChunks(ctx, "", updated)
	assert.ErrorIs(t, err, storage.ErrInvalidSessionID)
}

func TestChunkRepository_Tables(t *testing.T) {
	repo, _ := newRepositories(t)
	ctx := context.Background()

	tables := []core.Table{
		{Name: "Later", DocID: "doc_B", Index: 0, Columns: []string{"x"}, Rows: [][]string{{"1"}}},
		{Name: "Second", DocID: "doc_A", Index: 1, Columns: []string{"y"}},
		{Name: "First", DocID: "doc_A", Index: 0, Columns: []string{"z"}},
	}
	require.NoError(t, repo.SaveTables(ctx, "s1", tables...))

	replacement := core.Table{Name: "First v2", DocID: "doc_A", Index: 0, Columns: []string{"z"}}
	require.NoError(t, repo.SaveTables(ctx, "s1", replacement))

	got, err := repo.LoadTables(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "First v2", got[0].Name)
	assert.Equal(t, "Second", got[1].Name)
	assert.Equal(t, "Later", got[2].Name)

	info, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Tables)
	assert.Zero(t, info.Chunks)
}

func TestChunkRepository_Sessions(t *testing.T) {
	repo, docs := newRepositories(t)
	ctx := context.Background()

	_, err := repo.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.SaveChunks(ctx, "s2", testChunk("doc", 0)))
	require.NoError(t, repo.SaveChunks(ctx, "s1", testChunk("doc", 0), testChunk("doc", 1)))
	require.NoError(t, docs.SaveDocument(ctx, "s1", &core.Document{ID: "doc", Chunks: 2}))

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].Chunks)
	assert.False(t, sessions[0].CreatedAt.IsZero())
	assert.False(t, sessions[0].UpdatedAt.Before(sessions[0].CreatedAt))
	assert.Equal(t, "s2", sessions[1].ID)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))

	chunks, err := repo.LoadChunks(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	_, err = repo.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = docs.GetDocument(ctx, "s1", "doc")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	sessions, err = repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)

	require.NoError(t, repo.DeleteSession(ctx, "never-existed"))
}

func TestChunkRepository_InvalidInput(t *testing.T) {
	repo, _ := newRepositories(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.SaveChunks(ctx, "", testChunk("doc", 0)), storage.ErrInvalidSessionID)
	_, err := repo.LoadChunks(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidSessionID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, repo.SaveChunks(cancelled, "s1", testChunk("doc", 0)), context.Canceled)
}
