package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/attest/ai"
)

const (
	// DefaultEmbedLimit caps the characters sent per embedding input.
	DefaultEmbedLimit = 500

	// DefaultEmbedRetries is how many times a batch is re-chunked after the
	// model reports an input as too long.
	DefaultEmbedRetries = 2

	// finalEmbedLimit bounds the last attempt after the retries are spent.
	finalEmbedLimit = 400

	// embedShrink is applied to the limit after each too-long failure.
	embedShrink = 0.8
)

// embedder embeds pieces, re-chunking them with a smaller limit whenever the
// model rejects an input as too long.
type embedder struct {
	embedder ai.Embedder
	limit    int
	retries  int
	logger   *slog.Logger
}

func newEmbedder(e ai.Embedder, limit, retries int, logger *slog.Logger) *embedder {
	return &embedder{
		embedder: e,
		limit:    limit,
		retries:  retries,
		logger:   logger.With("processor", "embeddings"),
	}
}

// embed returns the pieces that were actually embedded, which may be more
// and shorter than the input, together with their vectors.
func (e *embedder) embed(ctx context.Context, pieces []piece) ([]piece, [][]float32, error) {
	limit := e.limit
	current := pieces

	for attempt := 0; attempt <= e.retries; attempt++ {
		safe := capPieces(current, limit)
		if len(safe) == 0 {
			return nil, nil, nil
		}
		vectors, err := e.embedTexts(ctx, safe)
		if err == nil {
			return safe, vectors, nil
		}
		if !errors.Is(err, ai.ErrInputTooLong) {
			return nil, nil, err
		}

		current = safe
		if attempt < e.retries {
			limit = int(float64(limit) * embedShrink)
			e.logger.Warn("input too long, re-chunking", "attempt", attempt+1, "limit", limit, "err", err)
			continue
		}
	}

	e.logger.Warn("final embedding attempt with conservative limit", "limit", finalEmbedLimit)
	safe := capPieces(pieces, finalEmbedLimit)
	vectors, err := e.embedTexts(ctx, safe)
	if err != nil {
		return nil, nil, err
	}
	return safe, vectors, nil
}

func (e *embedder) embedTexts(ctx context.Context, pieces []piece) ([][]float32, error) {
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.text
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, received %d", ai.ErrMalformedEmbedding, len(texts), len(vectors))
	}
	return vectors, nil
}
