package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Verifier classifies claims against chunks with a generation service.
type Verifier struct {
	gen           ai.Generator
	previewLength int
	metrics       *telemetry.Metrics
	logger        *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
		return nil
	}
}

// WithMetrics records each verified claim's status.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(v *Verifier) error {
		v.metrics = m
		return nil
	}
}

// WithPreviewLength sets how many characters of each chunk are sent per call.
// Default is DefaultPreviewLength.
func WithPreviewLength(n int) Option {
	return func(v *Verifier) error {
		if n <= 0 {
			return fmt.Errorf("preview length must be positive, got %d", n)
		}
		v.previewLength = n
		return nil
	}
}

// NewVerifier creates a Verifier backed by gen.
func NewVerifier(gen ai.Generator, opts ...Option) (*Verifier, error) {
	if gen == nil {
		return nil, ErrGeneratorRequired
	}
	v := &Verifier{
		gen:           gen,
		previewLength: DefaultPreviewLength,
		logger:        slog.Default().With("component", "verifier"),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// VerifyClaim classifies claim against each chunk in order.
//
// The first supporting chunk ends the search. Otherwise the first refuting
// chunk is recorded. Failed calls are skipped, so a claim whose every call
// fails is NOT_MENTIONED.
func (v *Verifier) VerifyClaim(ctx context.Context, claim core.Claim, chunks []core.Chunk) core.VerificationResult {
	result, _, _ := v.verifyClaim(ctx, claim, chunks)
	return result
}

func (v *Verifier) verifyClaim(ctx context.Context, claim core.Claim, chunks []core.Chunk) (core.VerificationResult, int, error) {
	result := core.VerificationResult{Claim: claim, Status: core.StatusNotMentioned}
	succeeded := 0
	var lastErr error

	for _, chunk := range chunks {
		reply, err := v.gen.Generate(ctx, buildNLIPrompt(chunk.Text, claim.Text, v.previewLength),
			ai.WithTemperature(0),
			ai.WithMaxTokens(16),
		)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			v.logger.Warn("claim classification failed", "chunkID", chunk.ID, "err", err)
			continue
		}
		succeeded++

		switch ParseLabel(reply) {
		case core.StatusSupports:
			result.Status = core.StatusSupports
			result.SupportingChunkID = chunk.ID
			return result, succeeded, nil
		case core.StatusRefutes:
			if result.Status == core.StatusNotMentioned {
				result.Status = core.StatusRefutes
				result.SupportingChunkID = chunk.ID
			}
		}
	}
	return result, succeeded, lastErr
}

// Verify extracts the claims of answer and verifies each against chunks.
//
// With no chunks or no claims the result is empty. If every classification
// call fails the error wraps ErrVerificationUnavailable; a cancelled ctx is
// returned as is.
func (v *Verifier) Verify(ctx context.Context, answer string, chunks []core.Chunk) ([]core.VerificationResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "verify.Verify")
	defer span.End()

	if len(chunks) == 0 {
		v.logger.Debug("no chunks to verify against")
		return []core.VerificationResult{}, nil
	}
	claims := ExtractClaims(answer)
	span.SetAttributes(
		attribute.Int("verify.claims", len(claims)),
		attribute.Int("verify.chunks", len(chunks)),
	)
	if len(claims) == 0 {
		return []core.VerificationResult{}, nil
	}

	results := make([]core.VerificationResult, 0, len(claims))
	succeeded := 0
	var lastErr error
	for _, claim := range claims {
		result, ok, err := v.verifyClaim(ctx, claim, chunks)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		succeeded += ok
		if err != nil {
			lastErr = err
		}
		results = append(results, result)
	}

	if succeeded == 0 {
		err := fmt.Errorf("%w: %w", ErrVerificationUnavailable, lastErr)
		span.RecordError(err)
		return nil, err
	}

	for _, r := range results {
		v.metrics.Verified(ctx, string(r.Status))
	}
	v.logger.Debug("verified answer", "claims", len(results), "summary", Summarize(results).String())
	return results, nil
}
