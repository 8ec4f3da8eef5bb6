package answer

import (
	"context"
	"log/slog"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/search"
)

// Result is the outcome of the simple path.
type Result struct {
	Question     string            `json:"question"`
	Answer       string            `json:"answer"`
	Sources      []string          `json:"sources"`
	Chunks       []core.Chunk      `json:"chunks"`
	Retrieval    *search.Retrieval `json:"retrieval,omitempty"`
	Degradations []string          `json:"degradations,omitempty"`
}

// Pipeline is the simple path: hybrid retrieval then grounded generation.
type Pipeline struct {
	retriever *search.Retriever
	generator *Generator
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithPipelineLogger sets a custom logger.
// Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a simple path from a retriever and a generator.
func NewPipeline(retriever *search.Retriever, generator *Generator, opts ...PipelineOption) (*Pipeline, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	p := &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    slog.Default().With("component", "simple-path"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Retriever returns the pipeline's retriever.
func (p *Pipeline) Retriever() *search.Retriever {
	return p.retriever
}

// Generator returns the pipeline's answer generator.
func (p *Pipeline) Generator() *Generator {
	return p.generator
}

// Run answers question from the chunks of src that allowed admits.
//
// Retrieval degradations are carried into the result. Retrieval failing
// outright and generation failing are returned as errors.
func (p *Pipeline) Run(ctx context.Context, src search.Source, question string, allowed *search.DocFilter) (*Result, error) {
	retrieval, err := p.retriever.Retrieve(ctx, src, question, allowed)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(retrieval.Chunks))
	for i, c := range retrieval.Chunks {
		contexts[i] = c.Text
	}
	if len(contexts) == 0 {
		p.logger.Info("no chunks retrieved", "question", question)
	}

	text, err := p.generator.Answer(ctx, question, contexts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Question:     question,
		Answer:       text,
		Sources:      Sources(retrieval.Chunks),
		Chunks:       retrieval.Chunks,
		Retrieval:    retrieval,
		Degradations: retrieval.Degradations,
	}, nil
}

// Sources returns the distinct source URIs of chunks in order, falling back
// to the document ID for chunks without one.
func Sources(chunks []core.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		s := c.SourceURI
		if s == "" {
			s = c.DocID
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
