package search

import (
	"strings"

	"github.com/poiesic/attest/core"
)

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for t := range small {
		if _, ok := large[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// JaccardText compares the lowercase whitespace token sets of two texts.
func JaccardText(a, b string) float64 {
	return Jaccard(core.TokenSet(a), core.TokenSet(b))
}

// containsPhrase reports whether the lowercase query appears verbatim in the
// lowercase text. A blank query never matches.
func containsPhrase(text, query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}
