package router

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/attest/core"
)

// Route is the outcome of classifying a question.
type Route string

const (
	// RouteSimple sends a question straight through hybrid retrieval.
	RouteSimple Route = "SIMPLE"

	// RouteComplex sends a question to the decomposition orchestrator.
	RouteComplex Route = "COMPLEX"
)

// Default thresholds.
const (
	DefaultMinQuestionMarks = 2
	DefaultMinIndicators    = 2
	DefaultLongQueryLength  = 50
	DefaultLongQueryMinimum = 1
)

// DefaultIndicators are comparison and synthesis words that suggest a
// question needs several retrieval hops.
var DefaultIndicators = []string{
	"compare", "comparison", "contrast",
	"analyze", "analyse", "synthesize", "evaluate", "assess",
	"versus", "vs", "difference", "differences",
	"relationship", "correlate", "impact",
	"across", "trend", "trends", "between",
}

// Router classifies questions with a cheap lexical heuristic. It never calls a model.
type Router struct {
	indicators       map[string]struct{}
	minQuestionMarks int
	minIndicators    int
	longQueryLength  int
	longQueryMinimum int
}

// Option configures a Router.
type Option func(*Router)

// WithIndicators replaces the indicator word set.
func WithIndicators(words ...string) Option {
	return func(r *Router) {
		r.indicators = make(map[string]struct{}, len(words))
		for _, w := range words {
			r.indicators[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithThresholds overrides the question mark count, the indicator count,
// and the length above which a single indicator suffices.
func WithThresholds(questionMarks, indicators, longQueryLength int) Option {
	return func(r *Router) {
		r.minQuestionMarks = questionMarks
		r.minIndicators = indicators
		r.longQueryLength = longQueryLength
	}
}

// New creates a Router with the default indicator words and thresholds.
func New(opts ...Option) *Router {
	r := &Router{
		minQuestionMarks: DefaultMinQuestionMarks,
		minIndicators:    DefaultMinIndicators,
		longQueryLength:  DefaultLongQueryLength,
		longQueryMinimum: DefaultLongQueryMinimum,
	}
	WithIndicators(DefaultIndicators...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decision explains a routing outcome.
type Decision struct {
	Route         Route    `json:"route"`
	QuestionMarks int      `json:"question_marks"`
	Indicators    []string `json:"indicators,omitempty"`
	Length        int      `json:"length"`
	Reason        string   `json:"reason"`
}

// Classify returns the route for query.
func (r *Router) Classify(query string) Route {
	return r.Explain(query).Route
}

// Explain classifies query and reports the evidence. A query is COMPLEX if
// it has at least two question marks, or at least two distinct indicator
// words, or is longer than 50 characters with at least one indicator word.
func (r *Router) Explain(query string) Decision {
	d := Decision{
		Route:         RouteSimple,
		QuestionMarks: strings.Count(query, "?"),
		Indicators:    r.indicatorsIn(query),
		Length:        utf8.RuneCountInString(query),
		Reason:        "no complexity signals",
	}

	switch {
	case d.QuestionMarks >= r.minQuestionMarks:
		d.Route = RouteComplex
		d.Reason = "multiple questions"
	case len(d.Indicators) >= r.minIndicators:
		d.Route = RouteComplex
		d.Reason = "multiple comparison or synthesis indicators"
	case d.Length > r.longQueryLength && len(d.Indicators) >= r.longQueryMinimum:
		d.Route = RouteComplex
		d.Reason = "long query with an indicator"
	}
	return d
}

// indicatorsIn returns the distinct indicator words of query in order of appearance.
func (r *Router) indicatorsIn(query string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, word := range words(query) {
		if _, ok := r.indicators[word]; !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		found = append(found, word)
	}
	return found
}

// words lowercases text and splits it on whitespace, trimming surrounding punctuation.
func words(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// tableCues suggest a sub-question about quantitative or tabular data.
var tableCues = []string{
	"table", "tables", "column", "columns", "row", "rows",
	"p-value", "p-values", "percentage", "percent", "mean", "median",
	"average", "count", "total", "rate", "rates", "statistic",
	"statistics", "statistical", "ratio", "sum", "maximum", "minimum",
}

// KindOf guesses whether a sub-question should be answered from tables or text.
func KindOf(text string) core.SubQuestionKind {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "how many") || strings.Contains(lower, "how much") {
		return core.KindTable
	}
	for _, w := range words(lower) {
		for _, cue := range tableCues {
			if w == cue {
				return core.KindTable
			}
		}
	}
	return core.KindText
}
