package orchestrator

import (
	"fmt"
	"strings"

	"github.com/poiesic/attest/core"
)

const answerPreviewLength = 200

// trajectory accumulates the observable steps of one run.
type trajectory struct {
	steps []core.TrajectoryStep
}

func (t *trajectory) add(kind core.StepKind, title, content, detail string, sources ...string) {
	t.steps = append(t.steps, core.TrajectoryStep{
		Kind:    kind,
		Title:   title,
		Content: content,
		Detail:  detail,
		Sources: sources,
	})
}

func (t *trajectory) planning(query string) {
	t.add(core.StepPlanning, "Query Analysis",
		fmt.Sprintf("Analyzing query: %q", query),
		"Decomposing the query into sub-questions and routing each to text or table analysis")
}

func (t *trajectory) decomposition(subs []core.SubQuestion, parsed bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query decomposed into %d sub-question(s):", len(subs))
	var kinds []string
	seen := make(map[core.SubQuestionKind]bool)
	for i, sq := range subs {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, sq.Kind, sq.Text)
		if !seen[sq.Kind] {
			seen[sq.Kind] = true
			kinds = append(kinds, string(sq.Kind))
		}
	}
	detail := fmt.Sprintf("Identified %d sub-question(s) requiring %s analysis", len(subs), strings.Join(kinds, ", "))
	if !parsed {
		detail = "The decomposition could not be parsed; answering the original query as a single TEXT sub-question"
	}
	t.add(core.StepDecomposition, "Query Decomposition", b.String(), detail)
}

func (t *trajectory) subQuestion(step int, out outcome) {
	sq := out.item.SubQuestion
	t.add(core.StepRetrieval, fmt.Sprintf("Step %d: %s Analysis", step, sq.Kind),
		fmt.Sprintf("Running query: %q", sq.Text),
		fmt.Sprintf("Using %s analysis to retrieve relevant information", sq.Kind))

	detail := fmt.Sprintf("Found %d source(s)", len(out.sources))
	if out.item.Failed {
		detail = "Failed: " + out.item.Error
	}
	t.add(core.StepIntermediateAnswer, fmt.Sprintf("Step %d Result: %s Analysis", step, sq.Kind),
		fmt.Sprintf("Question: %s\n\nAnswer: %s", sq.Text, preview(out.item.Answer, answerPreviewLength)),
		detail, out.sources...)
}

// preview truncates s to n runes, marking the cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
