package openai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/telemetry"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel/attribute"
)

// Embedder implements ai.Embedder against an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	guard     *guard
	logger    *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config, metrics *telemetry.Metrics) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-embedder")
	return &Embedder{
		embedder:  embedder,
		dimension: config.EmbeddingDimension,
		guard:     newGuard("embeddings", config, metrics, logger),
		logger:    logger,
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "openai.embed")
	defer span.End()
	span.SetAttributes(attribute.Int("embed.count", len(texts)))

	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	var vectors [][]float32
	err := e.guard.do(ctx, 0, func(ctx context.Context) error {
		v, err := e.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return classifyEmbedError(err)
		}
		vectors = v
		return nil
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	if err := checkEmbeddings(len(texts), e.dimension, vectors); err != nil {
		span.RecordError(err)
		e.logger.Error("rejecting embedding response", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

var tooLongMarkers = []string{
	"too long",
	"maximum context length",
	"context length exceeded",
	"too many tokens",
	"token limit",
	"exceeds the maximum",
	"input length",
}

// classifyEmbedError tags token limit failures with ai.ErrInputTooLong.
func classifyEmbedError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range tooLongMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", ai.ErrInputTooLong, err)
		}
	}
	return err
}

// checkEmbeddings fails closed on responses that do not match the request.
// dimension 0 accepts whatever dimension the first vector has.
func checkEmbeddings(want, dimension int, vectors [][]float32) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d inputs", ai.ErrMalformedEmbedding, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ai.ErrMalformedEmbedding, i)
		}
		if dimension == 0 {
			dimension = len(v)
		}
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ai.ErrMalformedEmbedding, i, len(v), dimension)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("%w: vector %d has non-finite component", ai.ErrMalformedEmbedding, i)
			}
		}
	}
	return nil
}
