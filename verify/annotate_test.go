package verify

import (
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(text string, status core.VerificationStatus) core.VerificationResult {
	return core.VerificationResult{Claim: core.Claim{Text: text}, Status: status}
}

func TestAnnotate_SubstringMatch(t *testing.T) {
	answer := "The response rate was 34% in the treatment arm. Nausea was reported by 12% of patients."
	results := []core.VerificationResult{
		result("The response rate was 34% in the treatment arm", core.StatusSupports),
		result("Nausea was reported by 12% of patients.", core.StatusRefutes),
	}

	text, badges := Annotate(answer, results)

	assert.Equal(t,
		"The response rate was 34% in the treatment arm [Verified]. Nausea was reported by 12% of patients. [Refuted]",
		text)
	require.Len(t, badges, 2)
	assert.Equal(t, core.StatusSupports, badges[0].Status)
	assert.Equal(t, "The response rate was 34% in the treatment arm", badges[0].Sentence)
	assert.Equal(t, core.StatusRefutes, badges[1].Status)
}

func TestAnnotate_EachClaimBadgesOnce(t *testing.T) {
	answer := "The response rate was 34% overall.\nThe response rate was 34% overall."
	results := []core.VerificationResult{
		result("The response rate was 34% overall", core.StatusSupports),
	}

	text, badges := Annotate(answer, results)

	assert.Len(t, badges, 1)
	assert.Equal(t, "The response rate was 34% overall [Verified].\nThe response rate was 34% overall.", text)
}

func TestAnnotate_WordOverlap(t *testing.T) {
	answer := "Patients receiving treatment experienced markedly fewer relapses during followup"
	results := []core.VerificationResult{
		result("Unrelated claim about something else entirely", core.StatusSupports),
		result("Fewer relapses occurred among treated patients", core.StatusNotMentioned),
	}

	text, badges := Annotate(answer, results)

	require.Len(t, badges, 1)
	assert.Equal(t, "Fewer relapses occurred among treated patients", badges[0].Claim)
	assert.Equal(t, answer+" [Extrapolated]", text)
}

func TestAnnotate_SkipsShortSentencesAndClaims(t *testing.T) {
	answer := "Yes; short claim text"
	results := []core.VerificationResult{
		result("Yes", core.StatusSupports),
		result("short claim txt", core.StatusSupports),
	}

	text, badges := Annotate(answer, results)
	assert.Empty(t, badges)
	assert.Equal(t, answer, text)
}

func TestLongWords_CountsCharacters(t *testing.T) {
	words := longWords("βeta µg/L dose ålder")
	assert.Equal(t, map[string]struct{}{"βeta": {}, "µg/L": {}, "dose": {}, "ålder": {}}, words)

	words = longWords("µg/ βet mg")
	assert.Empty(t, words)
}

func TestAnnotate_NoResults(t *testing.T) {
	text, badges := Annotate("Anything at all here.", nil)
	assert.Equal(t, "Anything at all here.", text)
	assert.Nil(t, badges)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]core.VerificationResult{
		result("a", core.StatusSupports),
		result("b", core.StatusSupports),
		result("c", core.StatusRefutes),
		result("d", core.StatusNotMentioned),
	})
	assert.Equal(t, Summary{Supported: 2, Refuted: 1, NotMentioned: 1}, s)
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, "2 Verified, 1 Refuted, 1 Extrapolated", s.String())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, LabelVerified, Label(core.StatusSupports))
	assert.Equal(t, LabelRefuted, Label(core.StatusRefutes))
	assert.Equal(t, LabelExtrapolated, Label(core.StatusNotMentioned))
}
