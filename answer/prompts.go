package answer

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a research assistant answering questions for domain experts.
Answer only using the provided context. If the answer is not in the context, say that you don't know.
Include the specific figures, methods, findings and limitations the context gives, using precise terminology.
Do not oversimplify. Do NOT include placeholder citations like [Source 1], [Source 2] or [Table Data];
sources are listed separately.`

const answerPromptTemplate = `Question: %s

Context:
%s

Provide a complete, detailed answer to the question using only the context above.
Include exact quantitative data (percentages, p-values, confidence intervals, sample sizes), methodology,
findings, comparisons and limitations where the context provides them.
Provide only the answer itself without repeating the question, the context, or labels like 'Answer:' or 'Source:'.
Do NOT include placeholder citations like [Source 1], (Source 1, Source 2) or [Table Data].`

const compressionPromptTemplate = `Compress the following context into a summary relevant to the question.
Retain every detail needed to answer it: exact quantitative data (percentages, p-values, confidence intervals,
sample sizes, significance), methodology, findings, comparisons, limitations and technical terminology.
Preserve specificity and do not speculate.

Question: %s

Context:
%s

Return only the compressed summary.`

func joinContexts(contexts []string) string {
	return strings.Join(contexts, "\n\n")
}

func buildAnswerPrompt(question string, contexts []string) string {
	return fmt.Sprintf(answerPromptTemplate, question, joinContexts(contexts))
}

func buildCompressionPrompt(question string, contexts []string) string {
	return fmt.Sprintf(compressionPromptTemplate, question, joinContexts(contexts))
}
