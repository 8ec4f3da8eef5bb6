package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Degradation stages reported in Retrieval.Degradations.
const (
	DegradedVectorSearch  = "vector_search"
	DegradedKeywordSearch = "keyword_search"
	DegradedRerank        = "rerank"
)

// Source supplies the indexes and chunks of one session.
type Source interface {
	Vectors() *VectorIndex
	Keywords() *KeywordIndex
	Chunk(id string) (core.Chunk, bool)
}

// Retrieval is the outcome of one pass through the simple retrieval path.
// Chunks holds the final top K, best first.
type Retrieval struct {
	Query        string                `json:"query"`
	Vector       []core.RankedResult   `json:"vector,omitempty"`
	Keyword      []core.RankedResult   `json:"keyword,omitempty"`
	Fused        []core.FusedResult    `json:"fused,omitempty"`
	Reranked     []core.RerankedResult `json:"reranked,omitempty"`
	Chunks       []core.Chunk          `json:"chunks"`
	Degradations []string              `json:"degradations,omitempty"`
}

// Degraded reports whether any optional stage failed.
func (r *Retrieval) Degraded() bool {
	return len(r.Degradations) > 0
}

// ChunkIDs returns the IDs of the final chunks in order.
func (r *Retrieval) ChunkIDs() []string {
	ids := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		ids[i] = c.ID
	}
	return ids
}

// Retriever runs hybrid retrieval: vector and keyword search, rank fusion
// and reranking.
type Retriever struct {
	embedder   ai.Embedder
	reranker   *Reranker
	candidates int
	topK       int
	rrfK       int
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithCandidates sets how many results each index returns and how many fused
// results are reranked. Default is 25.
func WithCandidates(n int) Option {
	return func(r *Retriever) error {
		if n <= 0 {
			return fmt.Errorf("candidates must be positive, got %d", n)
		}
		r.candidates = n
		return nil
	}
}

// WithTopK sets how many chunks a retrieval returns. Default is 6.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return fmt.Errorf("top k must be positive, got %d", k)
		}
		r.topK = k
		return nil
	}
}

// WithRRFK sets the reciprocal rank fusion constant. Default is 60.
func WithRRFK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return fmt.Errorf("rrf k must be positive, got %d", k)
		}
		r.rrfK = k
		return nil
	}
}

// WithReranker replaces the default reranker. A nil reranker disables
// reranking so the fused order is returned.
func WithReranker(reranker *Reranker) Option {
	return func(r *Retriever) error {
		r.reranker = reranker
		return nil
	}
}

// NewRetriever creates a retriever that embeds queries with embedder.
func NewRetriever(embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	reranker, err := NewReranker()
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		embedder:   embedder,
		reranker:   reranker,
		candidates: DefaultCandidates,
		topK:       DefaultTopK,
		rrfK:       DefaultRRFK,
		logger:     slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// TopK returns the number of chunks a retrieval returns.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve finds the chunks of src most relevant to query.
func (r *Retriever) Retrieve(ctx context.Context, src Source, query string, allowed *DocFilter) (*Retrieval, error) {
	return r.RetrieveWithMonitor(ctx, src, query, allowed, nil)
}

// RetrieveWithMonitor finds the chunks of src most relevant to query.
// The monitor receives callbacks at each stage of the search process.
//
// A failing vector or keyword leg is recorded in Degradations and retrieval
// continues with the other. Only when both fail is ErrRetrievalUnavailable
// returned.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, src Source, query string, allowed *DocFilter, monitor SearchMonitor) (*Retrieval, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	ctx, span := telemetry.Tracer().Start(ctx, "search.Retrieve")
	defer span.End()

	monitor.Start(query)
	result := &Retrieval{Query: query}

	// 1. Vector leg
	queryVector, vectorResults, vectorErr := r.vectorSearch(ctx, src, query, allowed)
	monitor.AfterVectorSearch(vectorResults, vectorErr)
	if vectorErr != nil {
		r.logger.Warn("vector search failed", "err", vectorErr)
		result.Degradations = append(result.Degradations, DegradedVectorSearch)
	}
	result.Vector = vectorResults

	// 2. Keyword leg
	var keywordScores map[string]float64
	var keywordErr error
	if kw := src.Keywords(); kw == nil {
		keywordErr = errors.New("keyword index unavailable")
	} else if err := ctx.Err(); err != nil {
		keywordErr = err
	} else {
		keywordScores = kw.Score(core.Tokenize(query), allowed)
		result.Keyword = kw.rank(keywordScores, r.candidates)
	}
	monitor.AfterKeywordSearch(result.Keyword)
	if keywordErr != nil {
		r.logger.Warn("keyword search failed", "err", keywordErr)
		result.Degradations = append(result.Degradations, DegradedKeywordSearch)
	}

	if vectorErr != nil && keywordErr != nil {
		err := fmt.Errorf("%w: %w", ErrRetrievalUnavailable, errors.Join(vectorErr, keywordErr))
		span.RecordError(err)
		return nil, err
	}

	// 3. Fusion
	result.Fused = Fuse(r.rrfK, result.Vector, result.Keyword)
	monitor.AfterFusion(result.Fused)

	// 4. Rerank, falling back to fused order
	fused := result.Fused
	if len(fused) > r.candidates {
		fused = fused[:r.candidates]
	}
	candidates := make([]Candidate, 0, len(fused))
	for _, f := range fused {
		chunk, ok := src.Chunk(f.ChunkID)
		if !ok {
			r.logger.Warn("fused chunk missing from session", "chunkID", f.ChunkID)
			continue
		}
		semantic := math.NaN()
		if queryVector != nil {
			if s, ok := src.Vectors().Similarity(queryVector, f.ChunkID); ok {
				semantic = s
			}
		}
		candidates = append(candidates, Candidate{
			ChunkID:  f.ChunkID,
			Text:     chunk.Text,
			Semantic: semantic,
			Keyword:  keywordScores[f.ChunkID],
		})
	}

	var reranked []core.RerankedResult
	var rerankErr error
	if r.reranker == nil {
		rerankErr = errors.New("reranker disabled")
	} else {
		reranked, rerankErr = r.reranker.Rerank(query, candidates, r.topK)
		if rerankErr == nil && len(reranked) == 0 && len(candidates) > 0 {
			rerankErr = errors.New("reranker returned no results")
		}
	}

	if rerankErr != nil {
		monitor.RerankSkipped(rerankErr)
		if len(candidates) > 0 {
			r.logger.Warn("rerank skipped, using fused order", "err", rerankErr)
			result.Degradations = append(result.Degradations, DegradedRerank)
		}
		for _, c := range candidates {
			if len(result.Chunks) == r.topK {
				break
			}
			chunk, _ := src.Chunk(c.ChunkID)
			result.Chunks = append(result.Chunks, chunk)
		}
	} else {
		monitor.AfterRerank(reranked)
		result.Reranked = reranked
		for _, rr := range reranked {
			chunk, _ := src.Chunk(rr.ChunkID)
			result.Chunks = append(result.Chunks, chunk)
		}
	}
	if result.Chunks == nil {
		result.Chunks = []core.Chunk{}
	}

	span.SetAttributes(
		attribute.Int("search.vector_hits", len(result.Vector)),
		attribute.Int("search.keyword_hits", len(result.Keyword)),
		attribute.Int("search.fused", len(result.Fused)),
		attribute.Int("search.returned", len(result.Chunks)),
		attribute.Bool("search.degraded", result.Degraded()),
	)
	monitor.Finish(result)
	return result, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, src Source, query string, allowed *DocFilter) ([]float32, []core.RankedResult, error) {
	vectors := src.Vectors()
	if vectors == nil {
		return nil, nil, errors.New("vector index unavailable")
	}

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := vectors.Search(embedding, r.candidates, allowed)
	if err != nil {
		return nil, nil, err
	}
	return embedding, results, nil
}
