package verify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/attest/core"
)

// Badge labels rendered after a matched sentence.
const (
	LabelVerified     = "Verified"
	LabelRefuted      = "Refuted"
	LabelExtrapolated = "Extrapolated"
)

const (
	minBadgeSentence = 10
	minBadgeClaim    = 15
	claimPreview     = 50
	sentencePreview  = 100
	overlapWeight    = 50.0
	minSharedWords   = 2
	minWordLength    = 3
)

var badgeSplit = regexp.MustCompile(`[.;]\s+|\n+`)

// Badge is a verification status attached to one sentence of an answer.
type Badge struct {
	Sentence string                  `json:"sentence"`
	Status   core.VerificationStatus `json:"status"`
	Claim    string                  `json:"claim"`
}

// Label returns the badge text for a status.
func Label(status core.VerificationStatus) string {
	switch status {
	case core.StatusSupports:
		return LabelVerified
	case core.StatusRefutes:
		return LabelRefuted
	default:
		return LabelExtrapolated
	}
}

// Annotate matches verification results to the sentences of answer and
// returns the answer with a "[Verified]", "[Refuted]" or "[Extrapolated]"
// marker after each matched sentence, plus the badges placed.
//
// For each sentence the unused claims are scored: the claim's first 50
// characters appearing inside the sentence's first 100 scores 100 and ends
// the search; otherwise sharing at least two words longer than three
// characters scores the shared fraction of the claim's words times 50.
// The best claim wins and each claim badges at most one sentence.
func Annotate(answer string, results []core.VerificationResult) (string, []Badge) {
	if len(results) == 0 {
		return answer, nil
	}

	used := make([]bool, len(results))
	var badges []Badge
	var b strings.Builder

	emit := func(sentence string) {
		b.WriteString(sentence)
		trimmed := strings.TrimSpace(sentence)
		if utf8.RuneCountInString(trimmed) < minBadgeSentence {
			return
		}
		best := bestClaim(trimmed, results, used)
		if best < 0 {
			return
		}
		used[best] = true
		r := results[best]
		badges = append(badges, Badge{Sentence: trimmed, Status: r.Status, Claim: r.Claim.Text})
		fmt.Fprintf(&b, " [%s]", Label(r.Status))
	}

	last := 0
	for _, loc := range badgeSplit.FindAllStringIndex(answer, -1) {
		emit(answer[last:loc[0]])
		b.WriteString(answer[loc[0]:loc[1]])
		last = loc[1]
	}
	emit(answer[last:])

	return b.String(), badges
}

func bestClaim(sentence string, results []core.VerificationResult, used []bool) int {
	sentenceLower := strings.TrimSpace(strings.ToLower(truncate(sentence, sentencePreview)))
	sentenceWords := longWords(sentenceLower)

	best := -1
	bestScore := 0.0
	for i, r := range results {
		claim := r.Claim.Text
		if used[i] || utf8.RuneCountInString(claim) <= minBadgeClaim {
			continue
		}
		claimLower := strings.TrimSpace(strings.ToLower(truncate(claim, claimPreview)))
		if strings.Contains(sentenceLower, claimLower) {
			return i
		}

		claimWords := longWords(claimLower)
		shared := 0
		for w := range claimWords {
			if _, ok := sentenceWords[w]; ok {
				shared++
			}
		}
		if len(claimWords) == 0 || shared < minSharedWords {
			continue
		}
		if score := float64(shared) / float64(len(claimWords)) * overlapWeight; score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func longWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) > minWordLength {
			words[w] = struct{}{}
		}
	}
	return words
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Summary counts verification results by status.
type Summary struct {
	Supported    int `json:"supported"`
	Refuted      int `json:"refuted"`
	NotMentioned int `json:"not_mentioned"`
}

// Summarize counts results by status.
func Summarize(results []core.VerificationResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case core.StatusSupports:
			s.Supported++
		case core.StatusRefutes:
			s.Refuted++
		default:
			s.NotMentioned++
		}
	}
	return s
}

// Total returns the number of results counted.
func (s Summary) Total() int {
	return s.Supported + s.Refuted + s.NotMentioned
}

// String renders the summary as badge counts.
func (s Summary) String() string {
	return fmt.Sprintf("%d %s, %d %s, %d %s",
		s.Supported, LabelVerified, s.Refuted, LabelRefuted, s.NotMentioned, LabelExtrapolated)
}
