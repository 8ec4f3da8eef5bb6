package orchestrator

import (
	"context"
	"strings"

	"github.com/poiesic/attest/core"
)

// synthesize merges the usable evidence into one answer. The reply is
// cleaned of prompt framing and placeholder citations.
func (o *Orchestrator) synthesize(ctx context.Context, query string, evidence []core.EvidenceItem) (string, error) {
	return o.pipeline.Generator().Complete(ctx, buildSynthesisPrompt(query, evidence), o.temperature)
}

// concatFindings joins the successful intermediate answers in order.
func concatFindings(evidence []core.EvidenceItem) string {
	parts := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if e.Failed || strings.TrimSpace(e.Answer) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(e.Answer))
	}
	return strings.Join(parts, "\n\n")
}

func usable(evidence []core.EvidenceItem) int {
	n := 0
	for _, e := range evidence {
		if !e.Failed && strings.TrimSpace(e.Answer) != "" {
			n++
		}
	}
	return n
}
