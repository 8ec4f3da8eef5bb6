package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenLimited rejects any input longer than limit characters, like an
// embedding model with a small context window.
func tokenLimited(limit int) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if n := utf8.RuneCountInString(text); n > limit {
				return nil, fmt.Errorf("%w: text at index %d has %d characters", ai.ErrInputTooLong, i, n)
			}
			out[i] = mock.BagOfWordsVector(text, mock.DefaultDimension)
		}
		return out, nil
	}
	return m
}

func longPiece(page int) piece {
	return piece{page: page, text: strings.TrimSpace(strings.Repeat("lorem ipsum ", 100))}
}

func TestEmbedder_FitsFirstTime(t *testing.T) {
	m := tokenLimited(1000)
	e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

	pieces, vectors, err := e.embed(context.Background(), []piece{longPiece(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.CallCount())
	require.Len(t, vectors, len(pieces))
	require.Greater(t, len(pieces), 1, "pieces are capped at the embed limit before the first call")
	for _, p := range pieces {
		assert.Equal(t, 3, p.page)
		assert.LessOrEqual(t, utf8.RuneCountInString(p.text), DefaultEmbedLimit)
	}
}

func TestEmbedder_ShrinksOnTooLong(t *testing.T) {
	m := tokenLimited(350)
	e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

	pieces, vectors, err := e.embed(context.Background(), []piece{longPiece(1), {page: 2, text: "short"}})
	require.NoError(t, err)

	// 500 and 400 are rejected, 320 fits.
	assert.Equal(t, 3, m.CallCount())
	require.Len(t, vectors, len(pieces))
	for _, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.text), 320)
	}
	assert.Equal(t, piece{page: 2, text: "short"}, pieces[len(pieces)-1])
}

func TestEmbedder_FinalConservativeAttempt(t *testing.T) {
	m := tokenLimited(450)
	e := newEmbedder(m, DefaultEmbedLimit, 0, slog.Default())

	pieces, _, err := e.embed(context.Background(), []piece{longPiece(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, m.CallCount())
	for _, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.text), finalEmbedLimit)
	}
}

func TestEmbedder_FinalAttemptResetsLimit(t *testing.T) {
	// Reject every shrinking attempt regardless of length, then accept.
	calls := 0
	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls <= DefaultEmbedRetries+1 {
			return nil, fmt.Errorf("%w: rejected", ai.ErrInputTooLong)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.BagOfWordsVector(text, mock.DefaultDimension)
		}
		return out, nil
	}
	e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

	pieces, vectors, err := e.embed(context.Background(), []piece{longPiece(1)})
	require.NoError(t, err)
	require.Len(t, vectors, len(pieces))

	// The shrunken limit would be 320; the last try goes back to 400.
	longest := 0
	for _, p := range pieces {
		n := utf8.RuneCountInString(p.text)
		assert.LessOrEqual(t, n, finalEmbedLimit)
		longest = max(longest, n)
	}
	assert.Greater(t, longest, 320)
}

func TestEmbedder_GivesUp(t *testing.T) {
	m := tokenLimited(10)
	e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

	_, _, err := e.embed(context.Background(), []piece{longPiece(1)})
	assert.ErrorIs(t, err, ai.ErrInputTooLong)
	assert.Equal(t, DefaultEmbedRetries+2, m.CallCount())
}

func TestEmbedder_OtherErrors(t *testing.T) {
	t.Run("service error is not retried", func(t *testing.T) {
		m := mock.NewMockEmbedder()
		m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("connection refused")
		}
		e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

		_, _, err := e.embed(context.Background(), []piece{{page: 1, text: "text"}})
		assert.EqualError(t, err, "connection refused")
		assert.Equal(t, 1, m.CallCount())
	})

	t.Run("count mismatch", func(t *testing.T) {
		m := mock.NewMockEmbedder()
		m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

		_, _, err := e.embed(context.Background(), []piece{{page: 1, text: "a"}, {page: 1, text: "b"}})
		assert.ErrorIs(t, err, ai.ErrMalformedEmbedding)
	})

	t.Run("nothing to embed", func(t *testing.T) {
		m := mock.NewMockEmbedder()
		e := newEmbedder(m, DefaultEmbedLimit, DefaultEmbedRetries, slog.Default())

		pieces, vectors, err := e.embed(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, pieces)
		assert.Empty(t, vectors)
		assert.Zero(t, m.CallCount())
	})
}
