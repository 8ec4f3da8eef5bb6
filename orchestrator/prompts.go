package orchestrator

import (
	"fmt"
	"strings"

	"github.com/poiesic/attest/core"
)

const decomposePromptTemplate = `You are a research query router. Break the question below into at most %d simple, answerable sub-questions that together allow a complete answer for domain experts.
Each sub-question should target specific information: quantitative data, methodology, findings or comparisons.
Classify each sub-question as TEXT (conceptual, procedural or discussion-based information found in the document text) or TABLE (figures, statistics, counts or comparisons found in data tables).

%s

Question: %s

Return a JSON object like this: {"sub_questions": [{"question": "sub-question 1", "type": "TEXT"}, {"question": "sub-question 2", "type": "TABLE"}]}
Only return the JSON object, nothing else.`

const noTablesNote = "No data tables are available, so classify every sub-question as TEXT."

const planPromptTemplate = `You are planning a query over data tables extracted from research documents.

Available tables:
%s
Question: %s

Write one JSON object describing the query, using only these fields:
- "table": the table identifier (for example "doc#0") or its quoted name
- "filters": a list of {"column": ..., "op": one of eq, ne, gt, gte, lt, lte, contains, "value": ...}
- "select": the columns to return
- "group_by": a column to group by (requires "aggregate")
- "aggregate": {"func": one of count, sum, mean, min, max, "column": ...}
- "sort_by": an output column, with "descending": true or false
- "limit": the maximum number of rows
Use column names exactly as listed. Omit fields you do not need.
Only return the JSON object, nothing else.`

const synthesisPromptTemplate = `You are an expert research assistant. Using the following information collected from several analyses, write a single, detailed and comprehensive answer for domain experts.

Original Query: %s

Collected Information:
%s

Instructions for synthesis:
- Address every aspect of the original query
- Include all specific quantitative data: exact figures, percentages, p-values, confidence intervals, sample sizes
- Describe methodologies, findings and comparisons where the information provides them
- Note limitations and nuances, using precise terminology
- Integrate the information into one coherent answer and do NOT reference the individual analyses
- Do NOT cite or reference "Evidence 1", "Part 1", "Information from TEXT analysis" or similar
- Do NOT include placeholder citations like [Source 1], [Table Data] or (Evidence 1)
- Do NOT describe what the answer includes or how it was produced; give the answer directly

Synthesized Answer:`

func buildDecomposePrompt(query, tableCatalog string) string {
	note := noTablesNote
	if tableCatalog != "" {
		note = "Available data tables:\n" + strings.TrimRight(tableCatalog, "\n")
	}
	return fmt.Sprintf(decomposePromptTemplate, core.MaxSubQuestions, note, query)
}

func buildPlanPrompt(question, tableDescriptions string) string {
	return fmt.Sprintf(planPromptTemplate, tableDescriptions, question)
}

// evidenceText renders the usable evidence by kind. Numbering is avoided so
// the model has nothing to cite.
func evidenceText(evidence []core.EvidenceItem) string {
	parts := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if e.Failed {
			continue
		}
		parts = append(parts, fmt.Sprintf("Information from %s analysis:\nQuestion addressed: %s\nFindings: %s",
			e.SubQuestion.Kind, e.SubQuestion.Text, e.Answer))
	}
	return strings.Join(parts, "\n\n")
}

func buildSynthesisPrompt(query string, evidence []core.EvidenceItem) string {
	return fmt.Sprintf(synthesisPromptTemplate, query, evidenceText(evidence))
}
