package attest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/openai"
	"github.com/poiesic/attest/answer"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/ingestion"
	"github.com/poiesic/attest/orchestrator"
	"github.com/poiesic/attest/reembed"
	"github.com/poiesic/attest/router"
	"github.com/poiesic/attest/search"
	"github.com/poiesic/attest/session"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/storage/badger"
	"github.com/poiesic/attest/telemetry"
	"github.com/poiesic/attest/verify"
	"go.opentelemetry.io/otel/attribute"
)

// Engine answers and verifies questions over the sessions it manages.
type Engine struct {
	backend   *badger.Backend
	chunks    storage.ChunkRepository
	documents storage.DocumentRepository
	provider  ai.AIProvider
	owned     bool

	sessions     *session.Registry
	router       *router.Router
	pipeline     *answer.Pipeline
	orchestrator *orchestrator.Orchestrator
	verifier     *verify.Verifier
	metrics      *telemetry.Metrics
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Option configures an Engine.
type Option func(*engineOptions) error

type engineOptions struct {
	aiConfig     *ai.Config
	logger       *slog.Logger
	chunks       storage.ChunkRepository
	documents    storage.DocumentRepository
	retriever    []search.Option
	reranker     []search.RerankerOption
	generator    []answer.GeneratorOption
	orchestrator []orchestrator.Option
	verifier     []verify.Option
	router       []router.Option
}

// WithAIConfig sets the model configuration used by Open.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *engineOptions) error {
		if config == nil {
			return errors.New("AI config is nil")
		}
		o.aiConfig = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithRepositories persists sessions and ingested documents. Open sets them
// from its badger backend.
func WithRepositories(chunks storage.ChunkRepository, documents storage.DocumentRepository) Option {
	return func(o *engineOptions) error {
		o.chunks = chunks
		o.documents = documents
		return nil
	}
}

// WithRetrieverOptions configures hybrid retrieval.
func WithRetrieverOptions(opts ...search.Option) Option {
	return func(o *engineOptions) error {
		o.retriever = append(o.retriever, opts...)
		return nil
	}
}

// WithRerankerOptions configures the reranker used by retrieval.
func WithRerankerOptions(opts ...search.RerankerOption) Option {
	return func(o *engineOptions) error {
		o.reranker = append(o.reranker, opts...)
		return nil
	}
}

// WithGeneratorOptions configures answer generation on the simple path.
func WithGeneratorOptions(opts ...answer.GeneratorOption) Option {
	return func(o *engineOptions) error {
		o.generator = append(o.generator, opts...)
		return nil
	}
}

// WithOrchestratorOptions configures the decomposition orchestrator.
func WithOrchestratorOptions(opts ...orchestrator.Option) Option {
	return func(o *engineOptions) error {
		o.orchestrator = append(o.orchestrator, opts...)
		return nil
	}
}

// WithVerifierOptions configures answer verification.
func WithVerifierOptions(opts ...verify.Option) Option {
	return func(o *engineOptions) error {
		o.verifier = append(o.verifier, opts...)
		return nil
	}
}

// WithRouterOptions tunes the query router.
func WithRouterOptions(opts ...router.Option) Option {
	return func(o *engineOptions) error {
		o.router = append(o.router, opts...)
		return nil
	}
}

func applyOptions(opts []Option) (*engineOptions, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// NewEngine creates an engine on top of provider. The caller keeps
// ownership of provider; Close does not close it.
func NewEngine(provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}
	return newEngine(provider, options, metrics)
}

// Open creates an engine persisting to the badger database at dbPath and
// talking to the model endpoints of the configured ai.Config.
func Open(dbPath string, opts ...Option) (*Engine, error) {
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, err
	}

	chunks, documents, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	options.chunks = chunks
	options.documents = documents

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		documents.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig, openai.WithMetrics(metrics))
	if err != nil {
		documents.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}

	e, err := newEngine(provider, options, metrics)
	if err != nil {
		provider.Close()
		documents.Close()
		chunks.Close()
		backend.Close()
		return nil, err
	}
	e.backend = backend
	e.owned = true
	return e, nil
}

func newEngine(provider ai.AIProvider, options *engineOptions, metrics *telemetry.Metrics) (*Engine, error) {
	registryOpts := []session.Option{session.WithLogger(options.logger)}
	if options.chunks != nil {
		registryOpts = append(registryOpts, session.WithRepository(options.chunks))
	}
	sessions, err := session.NewRegistry(registryOpts...)
	if err != nil {
		return nil, err
	}

	retrieverOpts := options.retriever
	if len(options.reranker) > 0 {
		reranker, err := search.NewReranker(options.reranker...)
		if err != nil {
			return nil, err
		}
		retrieverOpts = append([]search.Option{search.WithReranker(reranker)}, retrieverOpts...)
	}
	retriever, err := search.NewRetriever(provider.Embedder(), retrieverOpts...)
	if err != nil {
		return nil, err
	}
	generator, err := answer.NewGenerator(provider.Generator(), options.generator...)
	if err != nil {
		return nil, err
	}
	pipeline, err := answer.NewPipeline(retriever, generator)
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(pipeline, provider.Generator(), options.orchestrator...)
	if err != nil {
		return nil, err
	}
	verifier, err := verify.NewVerifier(provider.Generator(),
		append([]verify.Option{verify.WithMetrics(metrics)}, options.verifier...)...)
	if err != nil {
		orch.Release()
		return nil, err
	}

	return &Engine{
		chunks:       options.chunks,
		documents:    options.documents,
		provider:     provider,
		sessions:     sessions,
		router:       router.New(options.router...),
		pipeline:     pipeline,
		orchestrator: orch,
		verifier:     verifier,
		metrics:      metrics,
		logger:       options.logger,
	}, nil
}

// Close tears down every live session and releases the engine's resources.
// Persisted sessions stay on disk.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.sessions.CloseAll()
	e.orchestrator.Release()

	if !e.owned {
		return nil
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.documents.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := e.chunks.Close(); err != nil {
		e.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Sessions returns the session registry.
func (e *Engine) Sessions() *session.Registry {
	return e.sessions
}

// Router returns the query router.
func (e *Engine) Router() *router.Router {
	return e.router
}

// DocumentRepository returns the record of ingested documents, or nil when
// the engine does not persist.
func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.documents
}

// NewIngestionPipeline creates an ingestion pipeline embedding with the
// engine's provider and recording documents in its repository.
// The caller must Release the pipeline.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{ingestion.WithLogger(e.logger.With("component", "ingestion"))}
	if e.documents != nil {
		base = append(base, ingestion.WithDocumentRepository(e.documents))
	}
	return ingestion.NewPipeline(e.provider.Embedder(), append(base, opts...)...)
}

// Reembed rewrites the stored vectors of session sessionID with the
// engine's embedder, writing progress to progress. The live session is
// closed first and reloads from the new vectors on next use.
func (e *Engine) Reembed(ctx context.Context, sessionID string, config *reembed.Config, progress io.Writer) (int, error) {
	if e.chunks == nil {
		return 0, session.ErrNoRepository
	}
	r, err := reembed.NewReembedder(e.chunks, e.provider.Embedder(), config, progress)
	if err != nil {
		return 0, err
	}
	if err := e.sessions.Close(sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return 0, err
	}
	return r.Run(ctx, sessionID)
}

// Session returns the live session id, restoring it from the repository
// when it is not loaded.
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, error) {
	s, err := e.sessions.Get(id)
	if err == nil || !errors.Is(err, session.ErrSessionNotFound) || e.chunks == nil {
		return s, err
	}
	return e.sessions.Open(ctx, id)
}

// Ask answers question from the documents of session sessionID and verifies
// the answer against its evidence. A nil opts uses the defaults.
//
// Partial failures are reported in Response.Degradations. Only a failed
// retrieval on the simple path, a failed fallback of the orchestrator, or a
// cancelled ctx are returned as errors.
func (e *Engine) Ask(ctx context.Context, sessionID, question string, opts *AskOptions) (*Response, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	if opts == nil {
		opts = &AskOptions{}
	}
	if opts.ForceOrchestrator && opts.DisableOrchestrator {
		return nil, ErrConflictingRoute
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "attest.Ask")
	defer span.End()

	var allowed *search.DocFilter
	if opts.AllowedDocIDs != nil {
		allowed = search.NewDocFilter(opts.AllowedDocIDs...)
	}

	decision := e.router.Explain(question)
	switch {
	case opts.ForceOrchestrator:
		decision.Route = router.RouteComplex
		decision.Reason = "orchestrator forced"
	case opts.DisableOrchestrator:
		decision.Route = router.RouteSimple
		decision.Reason = "orchestrator disabled"
	}
	e.metrics.Routed(ctx, string(decision.Route))
	span.SetAttributes(attribute.String("attest.route", string(decision.Route)))

	resp := &Response{
		Question: question,
		Route:    decision.Route,
		Routing:  decision,
		Status:   StatusSuccess,
	}
	logger := e.logger.With("session", sessionID, "route", decision.Route)

	var evidence []core.Chunk
	if decision.Route == router.RouteComplex {
		res, err := e.orchestrator.Answer(ctx, s, question, allowed)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.Answer = res.Answer
		resp.Sources = res.Sources
		resp.SubQuestions = res.SubQuestions
		resp.Evidence = res.Evidence
		resp.Trajectory = res.Trajectory
		resp.FellBack = res.FellBack
		resp.degrade(res.Degradations...)
		evidence = res.Chunks
	} else {
		res, err := e.pipeline.Run(ctx, s, question, allowed)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.Answer = res.Answer
		resp.Sources = res.Sources
		resp.Trajectory = simpleTrajectory(question, res)
		resp.degrade(res.Degradations...)
		evidence = res.Chunks
	}
	resp.AnnotatedAnswer = resp.Answer

	if !opts.SkipVerification {
		if err := e.verify(ctx, resp, evidence); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	for _, stage := range resp.Degradations {
		e.metrics.Degraded(ctx, stage)
	}
	elapsed := time.Since(start)
	e.metrics.ObserveAsk(ctx, string(resp.Route), elapsed)
	span.SetAttributes(attribute.String("attest.status", string(resp.Status)))
	logger.Info("question answered",
		"status", resp.Status,
		"sources", len(resp.Sources),
		"claims", len(resp.Verification),
		"elapsed", elapsed)
	return resp, nil
}

// verify checks the answer of resp against evidence. Only a cancelled ctx
// is returned; an unavailable verifier degrades the response.
func (e *Engine) verify(ctx context.Context, resp *Response, evidence []core.Chunk) error {
	resp.Trajectory = append(resp.Trajectory, core.TrajectoryStep{
		Kind:    core.StepVerification,
		Title:   "Verification",
		Content: fmt.Sprintf("Checking the answer against %d source chunk(s)", len(evidence)),
		Detail:  "Extracting claims and classifying each against the retrieved evidence",
	})

	results, err := e.verifier.Verify(ctx, resp.Answer, evidence)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, verify.ErrVerificationUnavailable) {
			return err
		}
		e.logger.Warn("verification unavailable", "err", err)
		resp.degrade(DegradedVerification)
		resp.Trajectory = append(resp.Trajectory, core.TrajectoryStep{
			Kind:    core.StepVerificationResult,
			Title:   "Verification Unavailable",
			Content: "The answer could not be verified",
			Detail:  err.Error(),
		})
		return nil
	}

	resp.Verification = results
	resp.Summary = verify.Summarize(results)
	resp.AnnotatedAnswer, resp.Badges = verify.Annotate(resp.Answer, results)
	resp.Trajectory = append(resp.Trajectory, core.TrajectoryStep{
		Kind:    core.StepVerificationResult,
		Title:   "Verification Complete",
		Content: resp.Summary.String(),
		Detail:  fmt.Sprintf("%d claim(s) checked", resp.Summary.Total()),
	})
	return nil
}

func simpleTrajectory(question string, res *answer.Result) []core.TrajectoryStep {
	return []core.TrajectoryStep{
		{
			Kind:    core.StepRetrieval,
			Title:   "Retrieval",
			Content: question,
			Detail:  fmt.Sprintf("Retrieved %d chunk(s) with hybrid search", len(res.Chunks)),
			Sources: res.Sources,
		},
		{
			Kind:    core.StepFinalAnswer,
			Title:   "Final Answer",
			Content: "Answer generated by the simple path",
			Detail:  fmt.Sprintf("Found %d source(s)", len(res.Sources)),
			Sources: res.Sources,
		},
	}
}
