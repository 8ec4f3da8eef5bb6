package verify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/attest/core"
)

const (
	// MinClaimLength is the shortest sentence considered a claim.
	MinClaimLength = 20

	// LongClaimLength is the length above which any sentence is a claim.
	LongClaimLength = 50
)

var (
	claimSplit   = regexp.MustCompile(`[.;]\s+|\n+`)
	quantitative = regexp.MustCompile(`(?i)\d+[.%]|\bp\s*[<>=]\s*\d|confidence|interval|sample\s*size`)

	// metaPhrases mark meta-commentary and prompt echoes.
	metaPhrases = []string{
		"this answer", "this response", "the above", "note:", "in summary",
		"question:", "answer:", "source:", "evidence", "part ",
	}

	findingTerms = []string{
		"showed", "found", "demonstrated", "indicated", "revealed",
		"result", "outcome", "efficacy", "safety", "response", "rate",
		"percentage", "improvement", "reduction", "increase",
	}
)

// ExtractClaims splits answer into checkable claims.
//
// A sentence is kept when it is at least MinClaimLength characters, is not a
// question or meta-commentary, and either carries quantitative content,
// uses findings phrasing, or is longer than LongClaimLength. Sentences that
// repeat an earlier claim (ignoring case and spacing) are dropped.
func ExtractClaims(answer string) []core.Claim {
	var claims []core.Claim
	seen := make(map[string]struct{})

	for _, sentence := range claimSplit.Split(answer, -1) {
		sentence = strings.TrimSpace(sentence)
		n := utf8.RuneCountInString(sentence)
		if n < MinClaimLength {
			continue
		}
		if strings.HasSuffix(sentence, "?") {
			continue
		}

		lower := strings.ToLower(sentence)
		if containsAny(lower, metaPhrases) {
			continue
		}

		isQuantitative := quantitative.MatchString(sentence)
		if !isQuantitative && !containsAny(lower, findingTerms) && n <= LongClaimLength {
			continue
		}

		key := normalizeClaim(sentence)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		kind := core.ClaimQualitative
		if isQuantitative {
			kind = core.ClaimQuantitative
		}
		claims = append(claims, core.Claim{Text: sentence, Kind: kind})
	}
	return claims
}

func normalizeClaim(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimRight(s, ".;"))), " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
