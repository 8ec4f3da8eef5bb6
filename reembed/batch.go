package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// BatchProcessor embeds batches of chunks and writes the new vectors back.
type BatchProcessor struct {
	repo           storage.ChunkRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ChunkRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds chunks and replaces them in session sessionID.
// Vectors are normalized to unit length. Returns the number of chunks
// replaced.
func (bp *BatchProcessor) Process(ctx context.Context, sessionID string, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ai.ErrMalformedEmbedding, len(chunks), len(embeddings))
	}

	updated := make([]core.Chunk, len(chunks))
	for i, c := range chunks {
		c.Vector = core.NormalizeVector(embeddings[i])
		updated[i] = c
	}

	n, err := bp.repo.ReplaceChunks(ctx, sessionID, updated...)
	if err != nil {
		return n, fmt.Errorf("failed to store embeddings: %w", err)
	}
	return n, nil
}
