package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls          int
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: return unnormalized vectors for each text
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

func magnitude(v []float32) float32 {
	var m float32
	for _, x := range v {
		m += x * x
	}
	return m
}

func TestBatchProcessor_Process(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seeded := seedChunks(t, repo, "s1", 2)

	processor := NewBatchProcessor(repo, &mockEmbedder{}, 3, 10*time.Millisecond)
	n, err := processor.Process(ctx, "s1", seeded)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated, err := repo.LoadChunks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for i, c := range updated {
		assert.Equal(t, seeded[i].ID, c.ID)
		assert.Equal(t, seeded[i].Text, c.Text)
		assert.InDelta(t, 1.0, magnitude(c.Vector), 0.01, "vector should be normalized")
		assert.InDelta(t, 1.0/3.0, c.Vector[0], 0.001)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	embedder := &mockEmbedder{}
	n, err := NewBatchProcessor(repo, embedder, 3, time.Millisecond).Process(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, embedder.calls)
}

func TestBatchProcessor_Failures(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	seeded := seedChunks(t, repo, "s1", 2)

	t.Run("retries transient errors", func(t *testing.T) {
		embedder := &mockEmbedder{}
		embedder.embedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			if embedder.calls < 3 {
				return nil, errors.New("temporary failure")
			}
			return [][]float32{{0, 3, 4}, {0, 3, 4}}, nil
		}
		n, err := NewBatchProcessor(repo, embedder, 3, time.Millisecond).Process(ctx, "s1", seeded)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 3, embedder.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("persistent failure")
		}}
		_, err := NewBatchProcessor(repo, embedder, 2, time.Millisecond).Process(ctx, "s1", seeded)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Equal(t, 2, embedder.calls)
	})

	t.Run("input too long is not retried", func(t *testing.T) {
		embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, ai.ErrInputTooLong
		}}
		_, err := NewBatchProcessor(repo, embedder, 3, time.Millisecond).Process(ctx, "s1", seeded)
		assert.ErrorIs(t, err, ai.ErrInputTooLong)
		assert.Equal(t, 1, embedder.calls)
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		}}
		_, err := NewBatchProcessor(repo, embedder, 1, time.Millisecond).Process(ctx, "s1", seeded)
		assert.ErrorIs(t, err, ai.ErrMalformedEmbedding)
	})
}
