package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/answer"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/search"
	"github.com/poiesic/attest/table"
)

const planMaxTokens = 512

// outcome is the resolution of one sub-question.
type outcome struct {
	item         core.EvidenceItem
	chunks       []core.Chunk
	sources      []string
	degradations []string
}

func failed(sq core.SubQuestion, err error) outcome {
	return outcome{item: core.EvidenceItem{SubQuestion: sq, Failed: true, Error: err.Error()}}
}

// TableChunkID is the chunk ID under which a table result is offered as
// verification evidence.
func TableChunkID(ref core.TableRef) string {
	return fmt.Sprintf("table:%s:%d", ref.DocID, ref.Index)
}

// resolveAll resolves subs in order, or on the pool when one is configured.
// Outcomes are always returned in sub-question order.
func (o *Orchestrator) resolveAll(ctx context.Context, ws Workspace, subs []core.SubQuestion, scope *search.DocFilter, tables []core.Table) []outcome {
	outcomes := make([]outcome, len(subs))
	run := func(i int) {
		o.report(fmt.Sprintf("Answering sub-question %d of %d: %s", i+1, len(subs), preview(subs[i].Text, 80)))
		outcomes[i] = o.resolve(ctx, ws, subs[i], scope, tables)
	}

	if o.pool == nil || len(subs) < 2 {
		for i := range subs {
			run(i)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			run(i)
		})
		if err != nil {
			o.logger.Warn("worker pool rejected sub-question, resolving inline", "err", err)
			run(i)
			wg.Done()
		}
	}
	wg.Wait()
	return outcomes
}

func (o *Orchestrator) resolve(ctx context.Context, ws Workspace, sq core.SubQuestion, scope *search.DocFilter, tables []core.Table) outcome {
	var out outcome
	if sq.Kind == core.KindTable {
		out = o.resolveTable(ctx, sq, tables)
	} else {
		out = o.resolveText(ctx, ws, sq, scope)
	}
	if out.item.Failed {
		o.logger.Warn("sub-question failed", "kind", sq.Kind, "question", sq.Text, "err", out.item.Error)
	}
	return out
}

// resolveText runs hybrid retrieval for the sub-question and answers it from
// the retrieved chunks. No model call is made when nothing is retrieved.
func (o *Orchestrator) resolveText(ctx context.Context, ws Workspace, sq core.SubQuestion, scope *search.DocFilter) outcome {
	retrieval, err := o.pipeline.Retriever().Retrieve(ctx, ws, sq.Text, scope)
	if err != nil {
		return failed(sq, err)
	}
	if len(retrieval.Chunks) == 0 {
		out := failed(sq, ErrNoEvidence)
		out.degradations = retrieval.Degradations
		return out
	}

	contexts := make([]string, len(retrieval.Chunks))
	for i, c := range retrieval.Chunks {
		contexts[i] = c.Text
	}
	text, err := o.pipeline.Generator().Answer(ctx, sq.Text, contexts)
	if err != nil {
		out := failed(sq, err)
		out.degradations = retrieval.Degradations
		return out
	}

	return outcome{
		item: core.EvidenceItem{
			SubQuestion: sq,
			Answer:      text,
			Chunks:      retrieval.Chunks,
		},
		chunks:       retrieval.Chunks,
		sources:      answer.Sources(retrieval.Chunks),
		degradations: retrieval.Degradations,
	}
}

// resolveTable plans a declarative query with the model and executes it.
// The rendered result stands in as a chunk so verification can check claims
// drawn from it.
func (o *Orchestrator) resolveTable(ctx context.Context, sq core.SubQuestion, tables []core.Table) outcome {
	if len(tables) == 0 {
		return failed(sq, table.ErrNoTables)
	}

	reply, err := o.gen.Generate(ctx, buildPlanPrompt(sq.Text, table.Describe(tables, o.sampleRows)),
		ai.WithTemperature(0),
		ai.WithMaxTokens(planMaxTokens),
		ai.WithJSON(),
	)
	if err != nil {
		return failed(sq, fmt.Errorf("planning table query: %w", err))
	}
	q, err := table.ParseQuery(reply)
	if err != nil {
		return failed(sq, err)
	}
	res, err := table.Execute(ctx, tables, q, o.limits)
	if err != nil {
		return failed(sq, fmt.Errorf("executing table query: %w", err))
	}

	text := res.Text()
	return outcome{
		item: core.EvidenceItem{
			SubQuestion: sq,
			Answer:      text,
			Tables:      []core.TableRef{res.Table},
		},
		chunks: []core.Chunk{{
			ID:    TableChunkID(res.Table),
			DocID: res.Table.DocID,
			Text:  text,
		}},
		sources: []string{res.Table.DocID},
	}
}
