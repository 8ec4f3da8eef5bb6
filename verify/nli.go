package verify

import (
	"fmt"
	"strings"

	"github.com/poiesic/attest/core"
)

// DefaultPreviewLength is how many characters of a chunk are shown per
// classification call.
const DefaultPreviewLength = 500

const nliPromptTemplate = `Given the source text, does it support the following claim? Answer only 'Supports', 'Refutes', or 'Not Mentioned'.

Source: %s

Claim: %s

Answer (only 'Supports', 'Refutes', or 'Not Mentioned'):`

func buildNLIPrompt(chunkText, claim string, previewLength int) string {
	return fmt.Sprintf(nliPromptTemplate, preview(chunkText, previewLength), claim)
}

// ParseLabel maps a classification reply to a status. Replies naming
// SUPPORTS (or starting with SUPPORT) support the claim, replies naming
// REFUTES (or starting with REFUTE) refute it, and anything else is
// NOT_MENTIONED.
func ParseLabel(reply string) core.VerificationStatus {
	r := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case strings.Contains(r, "SUPPORTS") || strings.HasPrefix(r, "SUPPORT"):
		return core.StatusSupports
	case strings.Contains(r, "REFUTES") || strings.HasPrefix(r, "REFUTE"):
		return core.StatusRefutes
	default:
		return core.StatusNotMentioned
	}
}

func preview(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
