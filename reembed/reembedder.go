package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/ingestion"
	"github.com/poiesic/attest/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("batch-size must be greater than 0")
	case c.ReportInterval <= 0:
		return fmt.Errorf("report-interval must be greater than 0")
	case c.MaxRetries <= 0:
		return fmt.Errorf("max-retries must be greater than 0")
	}
	return nil
}

// Reembedder re-embeds every chunk of a persisted session.
type Reembedder struct {
	repo      storage.ChunkRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
	}, nil
}

// Run re-embeds the chunks of session sessionID and returns how many were
// rewritten. A batch that fails stops the run; batches already written keep
// their new vectors, so a session must be fully re-embedded before it is
// queried with the new model.
func (r *Reembedder) Run(ctx context.Context, sessionID string) (int, error) {
	info, err := r.repo.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(r.progress, "Session %s has no stored chunks (0 chunks)\n", sessionID)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session: %w", err)
	}

	total := info.Chunks
	if total == 0 {
		fmt.Fprintf(r.progress, "Session %s has no stored chunks (0 chunks)\n", sessionID)
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n", total, r.config.BatchSize)

	tracker := ingestion.NewProgressTracker(r.progress, sessionID, total, r.config.ReportInterval)
	tracker.Start()
	start := time.Now()

	processed := 0
	err = NewChunkIterator(r.repo, sessionID, r.config.BatchSize).ForEach(ctx, func(chunks []core.Chunk) error {
		n, err := r.processor.Process(ctx, sessionID, chunks)
		processed += n
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Increment(len(chunks))
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()

	elapsed := time.Since(start)
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/max(elapsed.Seconds(), 1e-9))
	return processed, nil
}
