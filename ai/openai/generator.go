package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/telemetry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel/attribute"
)

// Generator implements ai.Generator against an OpenAI-compatible chat endpoint.
type Generator struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	guard       *guard
	logger      *slog.Logger
}

func newGenerator(config *ai.Config, metrics *telemetry.Metrics) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-generator")
	return &Generator{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		guard:       newGuard("generation", config, metrics, logger),
		logger:      logger,
	}, nil
}

// NewGenerator creates a new text generator using the provided configuration.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config, nil)
}

// Generate sends prompt as a single human message and returns the first choice.
// Streaming calls are attempted once since a retry would replay the stream.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	o := ai.ApplyGenerateOptions(opts...)

	temperature := g.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}
	maxTokens := g.maxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}

	ctx, span := telemetry.Tracer().Start(ctx, "openai.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("generate.prompt_length", len(prompt)),
		attribute.Float64("generate.temperature", temperature),
		attribute.Bool("generate.json", o.JSON),
		attribute.Bool("generate.stream", o.Stream != nil),
	)

	content := make([]llms.MessageContent, 0, 2)
	if o.System != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(o.System)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	callOpts := []llms.CallOption{llms.WithTemperature(temperature)}
	if maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(maxTokens))
	}
	if o.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	attempts := 0
	if o.Stream != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(o.Stream))
		attempts = 1
	}

	var reply string
	err := g.guard.do(ctx, attempts, func(ctx context.Context) error {
		response, err := g.client.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}
		reply = response.Choices[0].Content
		return nil
	})
	if err != nil {
		span.RecordError(err)
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	span.SetAttributes(attribute.Int("generate.reply_length", len(reply)))
	return reply, nil
}
