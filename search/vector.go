package search

import (
	"fmt"
	"sort"
	"sync"

	"github.com/poiesic/attest/core"
)

type vectorEntry struct {
	chunkID string
	docID   string
	vector  []float32
}

// VectorIndex is an exact in-memory nearest neighbor index.
//
// Vectors are L2-normalized on insert so the inner product equals cosine
// similarity. Search scans every entry; results are deterministic for
// identical inputs and ties keep insertion order.
type VectorIndex struct {
	mu        sync.RWMutex
	entries   []vectorEntry
	byID      map[string]int
	dimension int
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{byID: make(map[string]int)}
}

// Insert adds a vector for chunkID belonging to docID.
// The first insert fixes the index dimension.
func (v *VectorIndex) Insert(chunkID, docID string, vector []float32) error {
	if chunkID == "" {
		return core.ErrEmptyID
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: chunk %s", ErrEmptyVector, chunkID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.byID[chunkID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChunk, chunkID)
	}
	if v.dimension == 0 {
		v.dimension = len(vector)
	} else if len(vector) != v.dimension {
		return fmt.Errorf("%w: chunk %s has %d, index has %d", ErrDimensionMismatch, chunkID, len(vector), v.dimension)
	}

	v.byID[chunkID] = len(v.entries)
	v.entries = append(v.entries, vectorEntry{
		chunkID: chunkID,
		docID:   docID,
		vector:  core.NormalizeVector(vector),
	})
	return nil
}

// Search returns up to k chunks most similar to query, best first.
// Only chunks whose document passes allowed are considered, so k eligible
// results are returned whenever that many exist.
func (v *VectorIndex) Search(query []float32, k int, allowed *DocFilter) ([]core.RankedResult, error) {
	if k <= 0 {
		return []core.RankedResult{}, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.entries) == 0 {
		return []core.RankedResult{}, nil
	}
	if len(query) != v.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), v.dimension)
	}

	q := core.NormalizeVector(query)
	type hit struct {
		chunkID string
		score   float64
	}
	hits := make([]hit, 0, len(v.entries))
	for _, e := range v.entries {
		if !allowed.Allows(e.docID) {
			continue
		}
		hits = append(hits, hit{chunkID: e.chunkID, score: core.DotProduct(q, e.vector)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]core.RankedResult, len(hits))
	for i, h := range hits {
		results[i] = core.RankedResult{ChunkID: h.chunkID, Rank: i + 1, Score: h.score}
	}
	return results, nil
}

// Similarity returns the cosine similarity between query and the stored
// vector of chunkID. ok is false if the chunk is not indexed or the
// dimensions differ.
func (v *VectorIndex) Similarity(query []float32, chunkID string) (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	idx, exists := v.byID[chunkID]
	if !exists || len(query) != v.dimension {
		return 0, false
	}
	return core.DotProduct(core.NormalizeVector(query), v.entries[idx].vector), true
}

// Contains reports whether chunkID is indexed.
func (v *VectorIndex) Contains(chunkID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.byID[chunkID]
	return ok
}

// Len returns the number of indexed vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (v *VectorIndex) Dimension() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimension
}

// Reset removes every entry.
func (v *VectorIndex) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.byID = make(map[string]int)
	v.dimension = 0
}

// Rebuild replaces the index contents with the vectors of chunks.
// Chunks without a vector are skipped.
func (v *VectorIndex) Rebuild(chunks []core.Chunk) error {
	v.Reset()
	for i := range chunks {
		if len(chunks[i].Vector) == 0 {
			continue
		}
		if err := v.Insert(chunks[i].ID, chunks[i].DocID, chunks[i].Vector); err != nil {
			return err
		}
	}
	return nil
}
