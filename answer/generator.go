package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultTemperature is the answer temperature.
	DefaultTemperature = 0.2

	// DefaultMaxTokens bounds an answer.
	DefaultMaxTokens = 4096

	// DefaultCompressionMaxTokens bounds a compressed context.
	DefaultCompressionMaxTokens = 2048
)

// Generator produces grounded answers from retrieved contexts.
type Generator struct {
	gen               ai.Generator
	temperature       float64
	maxTokens         int
	compressMaxTokens int
	compress          bool
	stream            ai.StreamFunc
	logger            *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// WithTemperature sets the answer temperature. Compression always runs at 0.
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) error {
		if t < 0 || t > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %v", t)
		}
		g.temperature = t
		return nil
	}
}

// WithMaxTokens bounds the answer length.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) error {
		if n <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", n)
		}
		g.maxTokens = n
		return nil
	}
}

// WithCompression enables or disables context compression. Enabled by default.
func WithCompression(enabled bool) GeneratorOption {
	return func(g *Generator) error {
		g.compress = enabled
		return nil
	}
}

// WithStream forwards answer tokens to fn as they arrive.
// Compression output is never streamed.
func WithStream(fn ai.StreamFunc) GeneratorOption {
	return func(g *Generator) error {
		g.stream = fn
		return nil
	}
}

// NewGenerator creates a Generator backed by gen.
func NewGenerator(gen ai.Generator, opts ...GeneratorOption) (*Generator, error) {
	if gen == nil {
		return nil, ErrGeneratorRequired
	}
	g := &Generator{
		gen:               gen,
		temperature:       DefaultTemperature,
		maxTokens:         DefaultMaxTokens,
		compressMaxTokens: DefaultCompressionMaxTokens,
		compress:          true,
		logger:            slog.Default().With("component", "answer-generator"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Compress summarizes contexts down to what is relevant to question.
func (g *Generator) Compress(ctx context.Context, question string, contexts []string) (string, error) {
	reply, err := g.gen.Generate(ctx, buildCompressionPrompt(question, contexts),
		ai.WithTemperature(0),
		ai.WithMaxTokens(g.compressMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("compressing context: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Answer compresses contexts, then answers question from the result.
// If compression fails or returns nothing the raw contexts are used.
// The reply is passed through Clean.
func (g *Generator) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "answer.Answer")
	defer span.End()
	span.SetAttributes(attribute.Int("answer.contexts", len(contexts)))

	effective := contexts
	compressed := false
	if g.compress && len(contexts) > 0 {
		summary, err := g.Compress(ctx, question, contexts)
		switch {
		case err != nil:
			g.logger.Warn("context compression failed, using raw contexts", "err", err)
		case summary == "":
			g.logger.Debug("context compression returned nothing, using raw contexts")
		default:
			effective = []string{summary}
			compressed = true
		}
	}
	span.SetAttributes(attribute.Bool("answer.compressed", compressed))

	return g.complete(ctx, systemPrompt, buildAnswerPrompt(question, effective), g.temperature, g.stream)
}

// Complete sends a prepared prompt and returns the cleaned reply.
func (g *Generator) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return g.complete(ctx, "", prompt, temperature, nil)
}

func (g *Generator) complete(ctx context.Context, system, prompt string, temperature float64, stream ai.StreamFunc) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithTemperature(temperature),
		ai.WithMaxTokens(g.maxTokens),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}
	if stream != nil {
		opts = append(opts, ai.WithStream(stream))
	}

	reply, err := g.gen.Generate(ctx, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	cleaned := Clean(reply)
	if cleaned == "" {
		return "", ErrEmptyAnswer
	}
	return cleaned, nil
}
