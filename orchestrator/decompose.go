package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/router"
	"github.com/poiesic/attest/table"
)

// decomposeTemperature leaves the model a little room to phrase sub-questions.
const decomposeTemperature = 0.2

const decomposeMaxTokens = 1024

// subQuestionItem is one element of a decomposition reply. Models sometimes
// return bare strings instead of objects, so both shapes decode.
type subQuestionItem struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

func (s *subQuestionItem) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &s.Question)
	}
	type plain subQuestionItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = subQuestionItem(p)
	return nil
}

// subQuestionsKey is the field the decomposition prompt asks the model to
// wrap its list in. JSON mode endpoints only return top-level objects.
const subQuestionsKey = "sub_questions"

// ParseSubQuestions turns a decomposition reply into at most five
// sub-questions.
//
// The reply may be a JSON list, an object wrapping a list under any key, or a
// single sub-question object, fenced or surrounded by prose. Items without a
// question are dropped and items with an unknown type are classified by
// router.KindOf. When nothing usable decodes, the result is one TEXT
// sub-question equal to query and ok is false.
func ParseSubQuestions(reply, query string) (subs []core.SubQuestion, ok bool) {
	items, err := decodeItems(reply)
	if err != nil {
		return fallbackSubQuestions(query), false
	}

	for _, item := range items {
		text := strings.TrimSpace(item.Question)
		if text == "" {
			continue
		}
		subs = append(subs, core.SubQuestion{Text: text, Kind: kindFor(item.Type, text)})
		if len(subs) == core.MaxSubQuestions {
			break
		}
	}
	if len(subs) == 0 {
		return fallbackSubQuestions(query), false
	}
	return subs, true
}

// decodeItems accepts a list, a single item, or the first non-empty list
// found under an object key, trying sub_questions before the others.
func decodeItems(reply string) ([]subQuestionItem, error) {
	var items []subQuestionItem
	if err := ai.DecodeJSON(reply, &items); err == nil {
		return items, nil
	}

	var fields map[string]json.RawMessage
	if err := ai.DecodeJSON(reply, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["question"]; ok {
		var single subQuestionItem
		if err := ai.DecodeJSON(reply, &single); err != nil {
			return nil, err
		}
		return []subQuestionItem{single}, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != subQuestionsKey {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if _, ok := fields[subQuestionsKey]; ok {
		keys = append([]string{subQuestionsKey}, keys...)
	}
	for _, k := range keys {
		var list []subQuestionItem
		if err := json.Unmarshal(fields[k], &list); err == nil && len(list) > 0 {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: no sub-question list in reply", ai.ErrMalformedResponse)
}

func fallbackSubQuestions(query string) []core.SubQuestion {
	return []core.SubQuestion{{Text: query, Kind: core.KindText}}
}

func kindFor(label, text string) core.SubQuestionKind {
	switch core.SubQuestionKind(strings.ToUpper(strings.TrimSpace(label))) {
	case core.KindText:
		return core.KindText
	case core.KindTable:
		return core.KindTable
	default:
		return router.KindOf(text)
	}
}

// decompose asks the model to split query. An error means the call itself
// failed; a reply that does not parse yields the single-question fallback
// with parsed false. Without tables every sub-question is resolved as TEXT.
func (o *Orchestrator) decompose(ctx context.Context, query string, tables []core.Table) (subs []core.SubQuestion, parsed bool, err error) {
	catalog := ""
	if len(tables) > 0 {
		catalog = table.Describe(tables, 0)
	}

	reply, err := o.gen.Generate(ctx, buildDecomposePrompt(query, catalog),
		ai.WithTemperature(decomposeTemperature),
		ai.WithMaxTokens(decomposeMaxTokens),
		ai.WithJSON(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("decomposing query: %w", err)
	}

	subs, parsed = ParseSubQuestions(reply, query)
	if !parsed {
		o.logger.Warn("could not parse decomposition, using the original query", "reply", preview(reply, 200))
	}
	if len(tables) == 0 {
		for i := range subs {
			subs[i].Kind = core.KindText
		}
	}
	return subs, parsed, nil
}
