package search

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/poiesic/attest/core"
)

// BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

type keywordDoc struct {
	chunkID string
	docID   string
	tf      map[string]int
	length  int
}

// KeywordIndex ranks chunks with BM25 over lowercase whitespace tokens.
//
// There is no stemming and no stop word removal, so domain tokens such as
// gene names or drug codes match exactly.
type KeywordIndex struct {
	mu       sync.RWMutex
	k1       float64
	b        float64
	docs     []keywordDoc
	byID     map[string]int
	df       map[string]int
	totalLen int
}

// NewKeywordIndex creates an empty index with k1=1.5 and b=0.75.
func NewKeywordIndex() *KeywordIndex {
	return NewKeywordIndexWithParams(DefaultK1, DefaultB)
}

// NewKeywordIndexWithParams creates an empty index with custom BM25 parameters.
func NewKeywordIndexWithParams(k1, b float64) *KeywordIndex {
	return &KeywordIndex{
		k1:   k1,
		b:    b,
		byID: make(map[string]int),
		df:   make(map[string]int),
	}
}

// Insert tokenizes text and adds it under chunkID.
func (k *KeywordIndex) Insert(chunkID, docID, text string) error {
	if chunkID == "" {
		return core.ErrEmptyID
	}

	tokens := core.Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.byID[chunkID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChunk, chunkID)
	}
	for t := range tf {
		k.df[t]++
	}
	k.byID[chunkID] = len(k.docs)
	k.docs = append(k.docs, keywordDoc{chunkID: chunkID, docID: docID, tf: tf, length: len(tokens)})
	k.totalLen += len(tokens)
	return nil
}

// Score returns the BM25 score of every eligible chunk for queryTokens,
// including chunks that score zero.
//
// Corpus statistics (N, document frequency, average length) always cover the
// whole index; allowed only restricts which chunks are scored.
func (k *KeywordIndex) Score(queryTokens []string, allowed *DocFilter) map[string]float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	scores := make(map[string]float64, len(k.docs))
	for i := range k.docs {
		if allowed.Allows(k.docs[i].docID) {
			scores[k.docs[i].chunkID] = k.scoreDoc(&k.docs[i], queryTokens)
		}
	}
	return scores
}

// Search returns up to k chunks with a positive score for query, best first.
// Ties keep insertion order.
func (k *KeywordIndex) Search(query string, limit int, allowed *DocFilter) []core.RankedResult {
	return k.rank(k.Score(core.Tokenize(query), allowed), limit)
}

// rank orders positive scores descending with insertion order as tie breaker.
func (k *KeywordIndex) rank(scores map[string]float64, limit int) []core.RankedResult {
	if limit <= 0 {
		return []core.RankedResult{}
	}

	k.mu.RLock()
	type hit struct {
		chunkID string
		pos     int
		score   float64
	}
	hits := make([]hit, 0, len(scores))
	for id, s := range scores {
		if s <= 0 {
			continue
		}
		pos, ok := k.byID[id]
		if !ok {
			continue
		}
		hits = append(hits, hit{chunkID: id, pos: pos, score: s})
	}
	k.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]core.RankedResult, len(hits))
	for i, h := range hits {
		results[i] = core.RankedResult{ChunkID: h.chunkID, Rank: i + 1, Score: h.score}
	}
	return results
}

// scoreDoc computes
//
//	Σ_t IDF(t) · f(t,d)·(k1+1) / (f(t,d) + k1·(1 - b + b·|d|/avgdl))
//
// with IDF(t) = ln(1 + (N - n(t) + 0.5)/(n(t) + 0.5)). Repeated query
// tokens contribute once per occurrence. Caller holds the read lock.
func (k *KeywordIndex) scoreDoc(d *keywordDoc, queryTokens []string) float64 {
	n := float64(len(k.docs))
	if n == 0 || d.length == 0 {
		return 0
	}
	avgdl := float64(k.totalLen) / n

	var score float64
	for _, t := range queryTokens {
		f := float64(d.tf[t])
		if f == 0 {
			continue
		}
		df := float64(k.df[t])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := f + k.k1*(1-k.b+k.b*float64(d.length)/avgdl)
		score += idf * f * (k.k1 + 1) / norm
	}
	return score
}

// Contains reports whether chunkID is indexed.
func (k *KeywordIndex) Contains(chunkID string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.byID[chunkID]
	return ok
}

// Len returns the number of indexed chunks.
func (k *KeywordIndex) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

// Reset removes every entry.
func (k *KeywordIndex) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.docs = nil
	k.byID = make(map[string]int)
	k.df = make(map[string]int)
	k.totalLen = 0
}

// Rebuild replaces the index contents with chunks.
func (k *KeywordIndex) Rebuild(chunks []core.Chunk) error {
	k.Reset()
	for i := range chunks {
		if err := k.Insert(chunks[i].ID, chunks[i].DocID, chunks[i].Text); err != nil {
			return err
		}
	}
	return nil
}
