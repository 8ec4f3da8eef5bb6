package search

import (
	"log/slog"
	"math"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.Equal(t, 1.0, DefaultWeights.Sum())
}

// Combine is a plain weighted sum, so unit inputs return the weight total.
// A real candidate tops out lower because the phrase signal is at most
// DefaultPhraseBoost; see TestReranker_PhraseScaling for that 0.93 score.
func TestReranker_CombineUnitInputsSumWeights(t *testing.T) {
	r, err := NewReranker()
	require.NoError(t, err)

	got := r.Combine(core.ComponentScores{Semantic: 1, Jaccard: 1, Keyword: 1, Phrase: 1})
	assert.Equal(t, 1.0, got)
}

func TestReranker_PhraseScaling(t *testing.T) {
	r, err := NewReranker()
	require.NoError(t, err)

	// Every signal saturated and the phrase found: the phrase adds 0.1·0.3.
	query := "drug x dosage"
	res := r.Score(query, core.TokenSet(query), Candidate{
		ChunkID:  "c",
		Text:     "Drug X dosage",
		Semantic: 1,
		Keyword:  25,
	})
	assert.Equal(t, 1.0, res.Components.Semantic)
	assert.Equal(t, 1.0, res.Components.Jaccard)
	assert.Equal(t, 1.0, res.Components.Keyword)
	assert.Equal(t, DefaultPhraseBoost, res.Components.Phrase)
	assert.InDelta(t, 0.93, res.FinalScore, 1e-12)
}

func TestReranker_Signals(t *testing.T) {
	r, err := NewReranker()
	require.NoError(t, err)

	tests := []struct {
		name      string
		candidate Candidate
		want      core.ComponentScores
	}{
		{
			name:      "keyword normalized by ten",
			candidate: Candidate{Text: "unrelated words", Keyword: 4},
			want:      core.ComponentScores{Keyword: 0.4},
		},
		{
			name:      "negative cosine counts as zero",
			candidate: Candidate{Text: "nothing", Semantic: -0.7},
			want:      core.ComponentScores{},
		},
		{
			name:      "semantic above one clamps",
			candidate: Candidate{Text: "nothing", Semantic: 1.3},
			want:      core.ComponentScores{Semantic: 1},
		},
		{
			name:      "failed signals default to zero",
			candidate: Candidate{Text: "nothing", Semantic: math.NaN(), Keyword: math.Inf(1)},
			want:      core.ComponentScores{},
		},
		{
			name:      "empty chunk text",
			candidate: Candidate{Text: "", Semantic: 0.5},
			want:      core.ComponentScores{Semantic: 0.5},
		},
		{
			name:      "partial overlap",
			candidate: Candidate{Text: "aspirin helps"},
			want:      core.ComponentScores{Jaccard: 1.0 / 3.0},
		},
	}

	query := "aspirin dosage"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Score(query, core.TokenSet(query), tt.candidate)
			assert.InDelta(t, tt.want.Semantic, res.Components.Semantic, 1e-12)
			assert.InDelta(t, tt.want.Jaccard, res.Components.Jaccard, 1e-12)
			assert.InDelta(t, tt.want.Keyword, res.Components.Keyword, 1e-12)
			assert.InDelta(t, tt.want.Phrase, res.Components.Phrase, 1e-12)
			assert.False(t, math.IsNaN(res.FinalScore))
		})
	}
}

func TestReranker_Rerank(t *testing.T) {
	r, err := NewReranker(WithRerankerLogger(slog.Default()))
	require.NoError(t, err)

	candidates := []Candidate{
		{ChunkID: "weak", Text: "nothing relevant here", Semantic: 0.1},
		{ChunkID: "strong", Text: "the aspirin dosage is 100mg", Semantic: 0.9, Keyword: 8},
		{ChunkID: "middle", Text: "aspirin is a drug", Semantic: 0.5, Keyword: 2},
	}

	t.Run("sorted descending and truncated", func(t *testing.T) {
		results, err := r.Rerank("aspirin dosage", candidates, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "strong", results[0].ChunkID)
		assert.Equal(t, "middle", results[1].ChunkID)
		assert.GreaterOrEqual(t, results[0].FinalScore, results[1].FinalScore)
	})

	t.Run("one result per candidate", func(t *testing.T) {
		results, err := r.Rerank("aspirin dosage", candidates, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("phrase found", func(t *testing.T) {
		results, err := r.Rerank("aspirin dosage", candidates, 1)
		require.NoError(t, err)
		assert.Equal(t, DefaultPhraseBoost, results[0].Components.Phrase)
	})

	t.Run("blank query fails", func(t *testing.T) {
		_, err := r.Rerank("   ", candidates, 2)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("no candidates", func(t *testing.T) {
		results, err := r.Rerank("q", nil, 2)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestReranker_Options(t *testing.T) {
	t.Run("custom weights", func(t *testing.T) {
		r, err := NewReranker(WithWeights(Weights{Semantic: 1}))
		require.NoError(t, err)
		assert.Equal(t, 0.5, r.Combine(core.ComponentScores{Semantic: 0.5, Jaccard: 1}))
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		_, err := NewReranker(WithWeights(Weights{Semantic: 0.5}))
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := NewReranker(WithWeights(Weights{Semantic: 1.5, Jaccard: -0.5}))
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("keyword normalization", func(t *testing.T) {
		r, err := NewReranker(WithKeywordNormalization(5))
		require.NoError(t, err)
		res := r.Score("q", core.TokenSet("q"), Candidate{Text: "x", Keyword: 2})
		assert.InDelta(t, 0.4, res.Components.Keyword, 1e-12)

		_, err = NewReranker(WithKeywordNormalization(0))
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("phrase boost", func(t *testing.T) {
		_, err := NewReranker(WithPhraseBoost(1.5))
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"a b c", "a b c", 1},
		{"A B", "b a", 1},
		{"a b", "c d", 0},
		{"a b c", "b c d", 0.5},
		{"", "", 0},
		{"a", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardText(tt.a, tt.b), 1e-12)
			assert.Equal(t, JaccardText(tt.a, tt.b), JaccardText(tt.b, tt.a))
		})
	}
}
