package search

import (
	"sort"

	"github.com/poiesic/attest/core"
)

// DefaultRRFK dampens the dominance of top ranks in reciprocal rank fusion.
const DefaultRRFK = 60

// Fuse merges ranked lists with reciprocal rank fusion:
//
//	rrf(c) = Σ_i 1/(k + rank_i(c))
//
// Lists contribute nothing for chunks they do not contain. Only rank
// positions are used, never raw scores. The output holds each chunk of any
// input list exactly once, sorted by descending score; ties go to the chunk
// with the best rank in any list, then to first appearance.
// A non-positive k uses DefaultRRFK.
func Fuse(k int, lists ...[]core.RankedResult) []core.FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		chunkID  string
		score    float64
		bestRank int
		first    int
	}
	byID := make(map[string]*fused)
	order := 0

	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for pos, r := range list {
			if _, dup := seen[r.ChunkID]; dup {
				continue
			}
			seen[r.ChunkID] = struct{}{}

			rank := r.Rank
			if rank <= 0 {
				rank = pos + 1
			}

			f, ok := byID[r.ChunkID]
			if !ok {
				f = &fused{chunkID: r.ChunkID, bestRank: rank, first: order}
				byID[r.ChunkID] = f
				order++
			}
			f.score += 1.0 / float64(k+rank)
			if rank < f.bestRank {
				f.bestRank = rank
			}
		}
	}

	all := make([]*fused, 0, len(byID))
	for _, f := range byID {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		if all[i].bestRank != all[j].bestRank {
			return all[i].bestRank < all[j].bestRank
		}
		return all[i].first < all[j].first
	})

	results := make([]core.FusedResult, len(all))
	for i, f := range all {
		results[i] = core.FusedResult{ChunkID: f.chunkID, RRFScore: f.score}
	}
	return results
}
