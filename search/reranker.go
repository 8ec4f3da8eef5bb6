package search

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/poiesic/attest/core"
)

// Reranker defaults.
const (
	DefaultKeywordNormalization = 10.0
	DefaultPhraseBoost          = 0.3
	DefaultCandidates           = 25
	DefaultTopK                 = 6
)

// Weights are the convex combination weights of the reranking signals.
type Weights struct {
	Semantic float64
	Jaccard  float64
	Keyword  float64
	Phrase   float64
}

// DefaultWeights are 0.4 semantic, 0.3 Jaccard, 0.2 keyword, 0.1 phrase.
var DefaultWeights = Weights{Semantic: 0.4, Jaccard: 0.3, Keyword: 0.2, Phrase: 0.1}

// Sum returns the total weight, rounded to 12 decimal places.
func (w Weights) Sum() float64 {
	return roundScore(w.Semantic + w.Jaccard + w.Keyword + w.Phrase)
}

func (w Weights) validate() error {
	for _, x := range []float64{w.Semantic, w.Jaccard, w.Keyword, w.Phrase} {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: weights must be finite and non-negative", ErrInvalidWeights)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %g, want 1", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// Candidate is one fused result offered to the reranker.
// Semantic is the raw cosine similarity and Keyword the raw BM25 score;
// NaN marks a signal that could not be computed.
type Candidate struct {
	ChunkID  string
	Text     string
	Semantic float64
	Keyword  float64
}

// Reranker rescores fused candidates with four signals:
//
//	semantic: cosine similarity clamped to [0,1]
//	jaccard:  token set overlap between query and chunk
//	keyword:  BM25 divided by 10, clamped to [0,1]
//	phrase:   0.3 when the lowercase query occurs verbatim in the chunk
//
// The final score is the weighted sum, capped at 1. Phrase contributes
// 0.1·0.3 when found, not 0.1.
type Reranker struct {
	weights     Weights
	keywordNorm float64
	phraseBoost float64
	logger      *slog.Logger
}

// RerankerOption configures a Reranker.
type RerankerOption func(*Reranker) error

// WithWeights replaces the signal weights. They must be non-negative and sum to 1.
func WithWeights(w Weights) RerankerOption {
	return func(r *Reranker) error {
		if err := w.validate(); err != nil {
			return err
		}
		r.weights = w
		return nil
	}
}

// WithKeywordNormalization sets the divisor applied to BM25 scores.
func WithKeywordNormalization(divisor float64) RerankerOption {
	return func(r *Reranker) error {
		if divisor <= 0 {
			return fmt.Errorf("%w: keyword normalization must be positive", ErrInvalidWeights)
		}
		r.keywordNorm = divisor
		return nil
	}
}

// WithPhraseBoost sets the phrase signal value used when the query occurs verbatim.
func WithPhraseBoost(boost float64) RerankerOption {
	return func(r *Reranker) error {
		if boost < 0 || boost > 1 {
			return fmt.Errorf("%w: phrase boost must be within [0,1]", ErrInvalidWeights)
		}
		r.phraseBoost = boost
		return nil
	}
}

// WithRerankerLogger sets a custom logger.
// Default is slog.Default().
func WithRerankerLogger(logger *slog.Logger) RerankerOption {
	return func(r *Reranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReranker creates a reranker with the default constants.
func NewReranker(opts ...RerankerOption) (*Reranker, error) {
	r := &Reranker{
		weights:     DefaultWeights,
		keywordNorm: DefaultKeywordNormalization,
		phraseBoost: DefaultPhraseBoost,
		logger:      slog.Default().With("component", "reranker"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Weights returns the configured weights.
func (r *Reranker) Weights() Weights {
	return r.weights
}

// Combine returns the weighted sum of components, clamped to [0,1].
func (r *Reranker) Combine(c core.ComponentScores) float64 {
	score := r.weights.Semantic*c.Semantic +
		r.weights.Jaccard*c.Jaccard +
		r.weights.Keyword*c.Keyword +
		r.weights.Phrase*c.Phrase
	return clamp01(roundScore(score))
}

// Score computes the signals of one candidate. A signal that cannot be
// computed counts as 0.
func (r *Reranker) Score(query string, queryTokens map[string]struct{}, c Candidate) core.RerankedResult {
	components := core.ComponentScores{
		Semantic: clamp01(finiteOrZero(c.Semantic)),
		Jaccard:  finiteOrZero(Jaccard(queryTokens, core.TokenSet(c.Text))),
	}
	if kw := finiteOrZero(c.Keyword); kw > 0 {
		components.Keyword = math.Min(1, kw/r.keywordNorm)
	}
	if containsPhrase(c.Text, query) {
		components.Phrase = r.phraseBoost
	}
	return core.RerankedResult{
		ChunkID:    c.ChunkID,
		FinalScore: r.Combine(components),
		Components: components,
	}
}

// Rerank scores every candidate and returns the best topK, highest first.
// Ties keep candidate order. A blank query fails with ErrEmptyQuery so the
// caller can fall back to fused order.
func (r *Reranker) Rerank(query string, candidates []Candidate, topK int) ([]core.RerankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryTokens := core.TokenSet(query)
	results := make([]core.RerankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = r.Score(query, queryTokens, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if len(results) > topK {
		results = results[:topK]
	}

	r.logger.Debug("reranked candidates", "candidates", len(candidates), "returned", len(results))
	return results, nil
}

// roundScore drops floating point noise below 1e-12 so that decimal weights
// such as 0.4+0.3+0.2+0.1 add up to exactly 1.
func roundScore(x float64) float64 {
	return math.Round(x*1e12) / 1e12
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
