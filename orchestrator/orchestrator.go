package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/answer"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/search"
	"github.com/poiesic/attest/table"
	"github.com/poiesic/attest/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusDegraded Status = "DEGRADED"
)

// Degradation stages reported in Result.Degradations, alongside those of
// retrieval.
const (
	DegradedDecomposition = "decomposition"
	DegradedSubQuestion   = "sub_question"
	DegradedSynthesis     = "synthesis"
	DegradedTables        = "tables"
	DegradedFallback      = "fallback"
)

// DefaultSampleRows is the number of rows per table shown to the query planner.
const DefaultSampleRows = 3

// Workspace is the session state a run reads from.
type Workspace interface {
	search.Source
	TableStore() table.Store
	DocIDs() []string
}

// Result is the outcome of one orchestrated run.
type Result struct {
	Query        string                `json:"query"`
	Answer       string                `json:"answer"`
	Sources      []string              `json:"sources"`
	SubQuestions []core.SubQuestion    `json:"sub_questions"`
	Evidence     []core.EvidenceItem   `json:"evidence"`
	Trajectory   []core.TrajectoryStep `json:"trajectory"`
	Status       Status                `json:"status"`
	FellBack     bool                  `json:"fell_back,omitempty"`
	Degradations []string              `json:"degradations,omitempty"`

	// Chunks is the evidence available for verification: every retrieved
	// chunk plus one stand-in chunk per table result.
	Chunks []core.Chunk `json:"chunks"`
}

func (r *Result) degrade(stages ...string) {
	for _, s := range stages {
		r.Status = StatusDegraded
		if !slices.Contains(r.Degradations, s) {
			r.Degradations = append(r.Degradations, s)
		}
	}
}

func (r *Result) addSources(sources ...string) {
	for _, s := range sources {
		if s != "" && !slices.Contains(r.Sources, s) {
			r.Sources = append(r.Sources, s)
		}
	}
}

// ProgressFunc receives human-readable status updates during a run.
type ProgressFunc func(status string)

// Orchestrator decomposes complex questions and synthesizes their evidence.
type Orchestrator struct {
	pipeline    *answer.Pipeline
	gen         ai.Generator
	pool        *ants.Pool
	limits      table.Limits
	sampleRows  int
	temperature float64
	progress    ProgressFunc
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithParallelism resolves up to n sub-questions concurrently on a worker
// pool. Evidence is still assembled in sub-question order. Default is 1,
// which resolves them sequentially without a pool.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be at least 1, got %d", n)
		}
		if o.pool != nil {
			o.pool.Release()
			o.pool = nil
		}
		if n == 1 {
			return nil
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLimits bounds table query execution.
// Default is table.DefaultLimits().
func WithLimits(limits table.Limits) Option {
	return func(o *Orchestrator) error {
		if limits.MaxRows < 0 || limits.Timeout < 0 {
			return fmt.Errorf("table limits must not be negative")
		}
		o.limits = limits
		return nil
	}
}

// WithSampleRows sets how many rows per table the query planner sees.
func WithSampleRows(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return fmt.Errorf("sample rows must not be negative, got %d", n)
		}
		o.sampleRows = n
		return nil
	}
}

// WithTemperature sets the synthesis temperature.
// Default is answer.DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) error {
		if t < 0 || t > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %v", t)
		}
		o.temperature = t
		return nil
	}
}

// WithProgress reports status updates to fn. With parallelism above one, fn
// is called from several goroutines.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) error {
		o.progress = fn
		return nil
	}
}

// New creates an Orchestrator. The pipeline is both the retrieval and
// answering machinery for TEXT sub-questions and the fallback path; gen
// serves decomposition and table query planning.
func New(pipeline *answer.Pipeline, gen ai.Generator, opts ...Option) (*Orchestrator, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if gen == nil {
		return nil, ErrGeneratorRequired
	}
	o := &Orchestrator{
		pipeline:    pipeline,
		gen:         gen,
		limits:      table.DefaultLimits(),
		sampleRows:  DefaultSampleRows,
		temperature: answer.DefaultTemperature,
		logger:      slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}
	return o, nil
}

// Release releases the worker pool, if any.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
		o.pool = nil
	}
}

func (o *Orchestrator) report(status string) {
	if o.progress != nil {
		o.progress(status)
	}
}

// Answer runs decomposition, resolution and synthesis for query against ws,
// restricted to the documents allowed admits.
//
// Only a failure of the simple path fallback is returned as an error; every
// other failure is absorbed and reported through Status and Degradations.
func (o *Orchestrator) Answer(ctx context.Context, ws Workspace, query string, allowed *search.DocFilter) (*Result, error) {
	if ws == nil {
		return nil, ErrWorkspaceRequired
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.Answer")
	defer span.End()

	scope := search.NewDocFilter(ws.DocIDs()...).Intersect(allowed)
	result := &Result{Query: query, Status: StatusSuccess}
	traj := &trajectory{}
	traj.planning(query)

	o.report("Analyzing query and planning approach...")
	tables, err := table.Collect(ctx, ws.TableStore(), scope.DocIDs())
	if err != nil {
		o.logger.Warn("could not load tables", "err", err)
		result.degrade(DegradedTables)
		tables = nil
	}

	o.report("Breaking down query into sub-questions...")
	subs, parsed, err := o.decompose(ctx, query, tables)
	if err != nil {
		o.logger.Warn("decomposition failed, using the simple path", "err", err)
		return o.fallback(ctx, ws, query, scope, result, traj, fmt.Sprintf("Query decomposition failed: %v", err))
	}
	if !parsed {
		result.degrade(DegradedDecomposition)
	}
	result.SubQuestions = subs
	traj.decomposition(subs, parsed)
	span.SetAttributes(attribute.Int("orchestrator.sub_questions", len(subs)))

	seenChunks := make(map[string]bool)
	for i, out := range o.resolveAll(ctx, ws, subs, scope, tables) {
		result.Evidence = append(result.Evidence, out.item)
		traj.subQuestion(i+1, out)
		result.degrade(out.degradations...)
		if out.item.Failed {
			result.degrade(DegradedSubQuestion)
			continue
		}
		result.addSources(out.sources...)
		for _, c := range out.chunks {
			key := c.ID + "\x00" + c.Text
			if seenChunks[key] {
				continue
			}
			seenChunks[key] = true
			result.Chunks = append(result.Chunks, c)
		}
	}

	n := usable(result.Evidence)
	if n == 0 {
		return o.fallback(ctx, ws, query, scope, result, traj, "No sub-question produced usable evidence")
	}

	o.report("Synthesizing final answer...")
	traj.add(core.StepSynthesis, "Synthesis",
		fmt.Sprintf("Synthesizing %d finding(s) into a single answer", n),
		"Combining the evidence without references to the individual analyses")
	text, err := o.synthesize(ctx, query, result.Evidence)
	if err != nil {
		o.logger.Warn("synthesis failed, concatenating findings", "err", err)
		result.degrade(DegradedSynthesis)
		result.Answer = concatFindings(result.Evidence)
		traj.add(core.StepFinalAnswer, "Final Answer", "Answer assembled from the intermediate findings",
			fmt.Sprintf("Synthesis failed: %v", err), result.Sources...)
	} else {
		result.Answer = text
		traj.add(core.StepFinalAnswer, "Final Answer", "Answer generated successfully",
			"Final synthesized answer ready", result.Sources...)
	}

	result.Trajectory = traj.steps
	span.SetAttributes(attribute.String("orchestrator.status", string(result.Status)))
	return result, nil
}

// fallback answers query with the simple path, keeping whatever
// decomposition and evidence the run produced for the trajectory.
func (o *Orchestrator) fallback(ctx context.Context, ws Workspace, query string, scope *search.DocFilter, result *Result, traj *trajectory, reason string) (*Result, error) {
	o.report("Falling back to direct retrieval...")
	traj.add(core.StepFallback, "Fallback to Simple Path", reason,
		"Answering the original query with hybrid retrieval")
	result.degrade(DegradedFallback)

	res, err := o.pipeline.Run(ctx, ws, query, scope)
	if err != nil {
		return nil, fmt.Errorf("simple path fallback: %w", err)
	}

	result.FellBack = true
	result.Answer = res.Answer
	result.Sources = nil
	result.addSources(res.Sources...)
	result.Chunks = res.Chunks
	result.degrade(res.Degradations...)
	traj.add(core.StepFinalAnswer, "Final Answer", "Answer generated by the simple path",
		fmt.Sprintf("Found %d source(s)", len(res.Sources)), res.Sources...)
	result.Trajectory = traj.steps
	return result, nil
}
