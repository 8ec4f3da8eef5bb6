package router

import (
	"strings"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	r := New()

	tests := []struct {
		name  string
		query string
		want  Route
	}{
		{
			name:  "simple dosage lookup",
			query: "What is the dosage for drug X?",
			want:  RouteSimple,
		},
		{
			name:  "compare and evaluate",
			query: "Compare the efficacy and side effects of drug X versus drug Y, and evaluate which is preferable?",
			want:  RouteComplex,
		},
		{
			name:  "two question marks",
			query: "What is X? What is Y?",
			want:  RouteComplex,
		},
		{
			name:  "two indicators in a short query",
			query: "compare; evaluate",
			want:  RouteComplex,
		},
		{
			name:  "one indicator short query",
			query: "Compare X and Y",
			want:  RouteSimple,
		},
		{
			name:  "one indicator long query",
			query: "How does the treatment impact outcomes for older patients in this cohort",
			want:  RouteComplex,
		},
		{
			name:  "long query without indicators",
			query: "What were the inclusion criteria for the phase three clinical trial of drug X",
			want:  RouteSimple,
		},
		{
			name:  "repeated indicator counts once",
			query: "compare compare",
			want:  RouteSimple,
		},
		{
			name:  "punctuation trimmed",
			query: "X vs. Y: (analyze)",
			want:  RouteComplex,
		},
		{
			name:  "indicator inside another word",
			query: "Describe the comparisons",
			want:  RouteSimple,
		},
		{
			name:  "empty",
			query: "",
			want:  RouteSimple,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.query))
		})
	}
}

func TestExplain(t *testing.T) {
	r := New()
	d := r.Explain("Compare the efficacy and side effects of drug X versus drug Y, and evaluate which is preferable?")
	assert.Equal(t, RouteComplex, d.Route)
	assert.Equal(t, []string{"compare", "versus", "evaluate"}, d.Indicators)
	assert.Equal(t, 1, d.QuestionMarks)
	assert.NotEmpty(t, d.Reason)
}

func TestLengthCountsCharacters(t *testing.T) {
	r := New()
	// 32 characters but more than 50 bytes.
	q := "impact " + strings.Repeat("é", 25)
	assert.Equal(t, RouteSimple, r.Classify(q))
}

func TestOptions(t *testing.T) {
	r := New(WithIndicators("Juxtapose"), WithThresholds(3, 1, 10))
	assert.Equal(t, RouteComplex, r.Classify("juxtapose"))
	assert.Equal(t, RouteSimple, r.Classify("compare and evaluate"))
	assert.Equal(t, RouteSimple, r.Classify("a? b?"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		text string
		want core.SubQuestionKind
	}{
		{"What is the mean age of participants?", core.KindTable},
		{"How many patients enrolled?", core.KindTable},
		{"Which p-value was reported for the primary endpoint?", core.KindTable},
		{"What adverse event rate was observed?", core.KindTable},
		{"What mechanism of action does drug X have?", core.KindText},
		{"Describe the study design.", core.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.text))
		})
	}
}
