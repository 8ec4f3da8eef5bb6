package attest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/mock"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/reembed"
	"github.com/poiesic/attest/router"
	"github.com/poiesic/attest/session"
	storagebadger "github.com/poiesic/attest/storage/badger"
	"github.com/poiesic/attest/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nliMarker        = "does it support the following claim"
	routerMarker     = "You are a research query router"
	synthesisMarker  = "Synthesized Answer:"
	compressMarker   = "Compress the following context"
	simpleAnswer     = "Drug X reduced symptoms in 34% of patients in the trial."
	synthesizedReply = "Drug X reduced symptoms in 34% of patients, compared with 12% for Drug Y."
	decomposition    = `{"sub_questions": [{"question": "What did Drug X achieve?", "type": "TEXT"}, {"question": "What did Drug Y achieve?", "type": "TEXT"}]}`
)

var trialPages = []string{
	"Drug X reduced symptoms in 34% of patients in the trial.",
	"Drug X side effects included mild nausea and headache.",
	"Drug Y reduced symptoms in 12% of patients in the trial.",
	"Drug Y side effects included fatigue.",
}

// scripted answers each kind of prompt the engine sends.
func scripted() *mock.MockGenerator {
	return mock.NewMockGenerator().WithGenerateFunc(func(_ context.Context, prompt string, _ ai.GenerateOptions) (string, error) {
		switch {
		case strings.Contains(prompt, nliMarker):
			if strings.Contains(prompt, "Source: Drug X reduced symptoms in 34%") {
				return "Supports", nil
			}
			return "Not Mentioned", nil
		case strings.Contains(prompt, routerMarker):
			return decomposition, nil
		case strings.Contains(prompt, synthesisMarker):
			return synthesizedReply, nil
		case strings.Contains(prompt, compressMarker):
			return strings.Join(trialPages, " "), nil
		default:
			return simpleAnswer, nil
		}
	})
}

type fixture struct {
	engine    *Engine
	embedder  *mock.MockEmbedder
	generator *mock.MockGenerator
	session   *session.Session
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	chunks, docs, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)

	f := &fixture{embedder: mock.NewMockEmbedder(), generator: scripted()}
	provider := mock.NewMockProviderWithServices(f.embedder, f.generator)
	f.engine, err = NewEngine(provider, append([]Option{WithRepositories(chunks, docs)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		f.engine.Close()
		docs.Close()
		chunks.Close()
		backend.Close()
	})

	f.session, err = f.engine.Sessions().CreateWithID("trial")
	require.NoError(t, err)

	pipeline, err := f.engine.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()
	_, err = pipeline.IngestPages(context.Background(), f.session, "trial.pdf", "file:///data/trial.pdf", trialPages)
	require.NoError(t, err)
	return f
}

func stepKinds(steps []core.TrajectoryStep) []core.StepKind {
	kinds := make([]core.StepKind, len(steps))
	for i, s := range steps {
		kinds[i] = s.Kind
	}
	return kinds
}

func TestNewEngine(t *testing.T) {
	t.Run("requires a provider", func(t *testing.T) {
		e, err := NewEngine(nil)
		assert.ErrorIs(t, err, ErrProviderRequired)
		assert.Nil(t, e)
	})

	t.Run("rejects a bad option", func(t *testing.T) {
		_, err := NewEngine(mock.NewMockProvider(), WithAIConfig(nil))
		assert.Error(t, err)
	})

	t.Run("without persistence", func(t *testing.T) {
		e, err := NewEngine(mock.NewMockProvider(), WithLogger(nil))
		require.NoError(t, err)
		defer e.Close()

		assert.NotNil(t, e.Sessions())
		assert.NotNil(t, e.Router())
		assert.Nil(t, e.DocumentRepository())

		_, err = e.Session(context.Background(), "missing")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}

func TestOpen(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "attest_db")
		e, err := Open(dir, WithAIConfig(ai.NewConfig(ai.WithHost("http://localhost:11434"))))
		require.NoError(t, err)
		require.NotNil(t, e)

		assert.NotNil(t, e.backend)
		assert.NotNil(t, e.DocumentRepository())
		pipeline, err := e.NewIngestionPipeline()
		require.NoError(t, err)
		pipeline.Release()
		assert.NoError(t, e.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0644))

		e, err := Open(file)
		assert.Error(t, err)
		assert.Nil(t, e)
	})
}

func TestAsk_SimplePath(t *testing.T) {
	f := newFixture(t)

	resp, err := f.engine.Ask(context.Background(), "trial", "What response rate did Drug X reach?", nil)
	require.NoError(t, err)

	assert.Equal(t, router.RouteSimple, resp.Route)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.False(t, resp.Degraded())
	assert.Equal(t, simpleAnswer, resp.Answer)
	assert.Equal(t, []string{"file:///data/trial.pdf"}, resp.Sources)

	require.Len(t, resp.Verification, 1)
	assert.Equal(t, core.StatusSupports, resp.Verification[0].Status)
	assert.Equal(t, 1, resp.Summary.Supported)
	assert.Contains(t, resp.AnnotatedAnswer, "Drug X reduced symptoms")

	assert.Equal(t, []core.StepKind{
		core.StepRetrieval,
		core.StepFinalAnswer,
		core.StepVerification,
		core.StepVerificationResult,
	}, stepKinds(resp.Trajectory))
	last := resp.Trajectory[len(resp.Trajectory)-1]
	assert.Equal(t, resp.Summary.String(), last.Content)
}

func TestAsk_Orchestrated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("routed by the question", func(t *testing.T) {
		resp, err := f.engine.Ask(ctx, "trial", "What did Drug X achieve? What did Drug Y achieve?", nil)
		require.NoError(t, err)
		assert.Equal(t, router.RouteComplex, resp.Route)
		assert.Equal(t, "multiple questions", resp.Routing.Reason)
		assert.Equal(t, synthesizedReply, resp.Answer)
		assert.Len(t, resp.SubQuestions, 2)
		assert.Len(t, resp.Evidence, 2)
		assert.False(t, resp.FellBack)
	})

	t.Run("forced", func(t *testing.T) {
		resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", &AskOptions{ForceOrchestrator: true})
		require.NoError(t, err)
		assert.Equal(t, router.RouteComplex, resp.Route)
		assert.Equal(t, synthesizedReply, resp.Answer)

		kinds := stepKinds(resp.Trajectory)
		assert.Equal(t, core.StepPlanning, kinds[0])
		assert.Contains(t, kinds, core.StepDecomposition)
		assert.Equal(t, core.StepVerificationResult, kinds[len(kinds)-1])
		require.Len(t, resp.Verification, 1)
		assert.Equal(t, core.StatusSupports, resp.Verification[0].Status)
	})

	t.Run("disabled", func(t *testing.T) {
		resp, err := f.engine.Ask(ctx, "trial", "What did Drug X achieve? What did Drug Y achieve?", &AskOptions{DisableOrchestrator: true})
		require.NoError(t, err)
		assert.Equal(t, router.RouteSimple, resp.Route)
		assert.Equal(t, simpleAnswer, resp.Answer)
	})
}

func TestAsk_Verification(t *testing.T) {
	ctx := context.Background()

	t.Run("skipped", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", &AskOptions{SkipVerification: true})
		require.NoError(t, err)
		assert.Empty(t, resp.Verification)
		assert.Equal(t, resp.Answer, resp.AnnotatedAnswer)
		assert.NotContains(t, stepKinds(resp.Trajectory), core.StepVerification)
	})

	t.Run("unavailable degrades the response", func(t *testing.T) {
		f := newFixture(t)
		f.generator.WithGenerateFunc(func(_ context.Context, prompt string, _ ai.GenerateOptions) (string, error) {
			if strings.Contains(prompt, nliMarker) {
				return "", errors.New("classifier offline")
			}
			return simpleAnswer, nil
		})

		resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", nil)
		require.NoError(t, err)
		assert.Equal(t, StatusDegraded, resp.Status)
		assert.Equal(t, []string{DegradedVerification}, resp.Degradations)
		assert.Empty(t, resp.Badges)
		assert.Equal(t, simpleAnswer, resp.Answer)

		last := resp.Trajectory[len(resp.Trajectory)-1]
		assert.Equal(t, core.StepVerificationResult, last.Kind)
		assert.Contains(t, last.Detail, "classifier offline")
	})

	t.Run("no documents allowed", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", &AskOptions{AllowedDocIDs: []string{}})
		require.NoError(t, err)
		assert.Empty(t, resp.Sources)
		assert.Empty(t, resp.Verification)
		assert.Equal(t, verify.Summary{}, resp.Summary)
	})
}

func TestAsk_RetrievalDegradation(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	resp, err := f.engine.Ask(context.Background(), "trial", "What response rate did Drug X reach?", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Contains(t, resp.Degradations, "vector_search")
	assert.NotEmpty(t, resp.Sources)
}

func TestAsk_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Ask(ctx, "trial", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = f.engine.Ask(ctx, "trial", "Anything?", &AskOptions{ForceOrchestrator: true, DisableOrchestrator: true})
	assert.ErrorIs(t, err, ErrConflictingRoute)

	_, err = f.engine.Ask(ctx, "unknown", "Anything?", nil)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.engine.Ask(cancelled, "trial", "What response rate did Drug X reach?", nil)
	assert.Error(t, err)

	require.NoError(t, f.engine.Close())
	require.NoError(t, f.engine.Close())
	_, err = f.engine.Ask(ctx, "trial", "Anything?", nil)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestAsk_RestoresPersistedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Sessions().Close("trial"))
	assert.Zero(t, f.engine.Sessions().Len())

	resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"file:///data/trial.pdf"}, resp.Sources)

	restored, err := f.engine.Sessions().Get("trial")
	require.NoError(t, err)
	assert.Equal(t, len(trialPages), restored.Len())
}

func TestReembed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var progress bytes.Buffer
	config := &reembed.Config{BatchSize: 2, ReportInterval: 2, MaxRetries: 1, RetryDelay: time.Millisecond}
	n, err := f.engine.Reembed(ctx, "trial", config, &progress)
	require.NoError(t, err)
	assert.Equal(t, len(trialPages), n)
	assert.True(t, f.session.Closed())
	assert.Contains(t, progress.String(), "Reembedding complete")

	resp, err := f.engine.Ask(ctx, "trial", "What response rate did Drug X reach?", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)

	e, err := NewEngine(mock.NewMockProvider())
	require.NoError(t, err)
	defer e.Close()
	_, err = e.Reembed(ctx, "trial", nil, nil)
	assert.ErrorIs(t, err, session.ErrNoRepository)
}
