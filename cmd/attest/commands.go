package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/attest"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ingestion"
	"github.com/poiesic/attest/orchestrator"
	"github.com/poiesic/attest/reembed"
	"github.com/poiesic/attest/router"
	"github.com/poiesic/attest/session"
	"github.com/poiesic/attest/table"
	"github.com/urfave/cli/v2"
)

// engineFactory opens the engine a command runs against. The returned
// function releases it.
var engineFactory = openEngine

func openEngine(c *cli.Context, opts ...attest.Option) (*attest.Engine, func(), error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, nil, fmt.Errorf("database path is required")
	}

	aiConfig := aiConfigFromFlags(c)
	if err := aiConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	engine, err := attest.Open(dbPath, append([]attest.Option{attest.WithAIConfig(aiConfig)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, func() {
		if err := engine.Close(); err != nil {
			slog.Error("error closing engine", "err", err)
		}
	}, nil
}

// aiConfigFromFlags builds the model configuration from the command's
// flags. Flags a command does not define keep their defaults.
func aiConfigFromFlags(c *cli.Context) *ai.Config {
	var opts []ai.ConfigOption
	if v := c.String("host"); v != "" {
		opts = append(opts, ai.WithHost(v))
	}
	if v := c.String("embedding-host"); v != "" {
		opts = append(opts, ai.WithEmbeddingHost(v))
	}
	if v := c.String("generation-host"); v != "" {
		opts = append(opts, ai.WithGenerationHost(v))
	}
	if v := c.String("embedding-model"); v != "" {
		opts = append(opts, ai.WithEmbeddingModel(v))
	}
	if v := c.String("generation-model"); v != "" {
		opts = append(opts, ai.WithGenerationModel(v))
	}
	if v := c.String("api-key"); v != "" {
		opts = append(opts, ai.WithAPIKey(v))
	}
	if v := c.Duration("timeout"); v > 0 {
		opts = append(opts, ai.WithRequestTimeout(v))
	}
	if v := c.Int("requests-per-minute"); v > 0 {
		opts = append(opts, ai.WithRequestsPerMinute(v))
	}
	if c.IsSet("max-retries") || c.IsSet("retry-delay") {
		opts = append(opts, ai.WithRetries(c.Int("max-retries"), c.Duration("retry-delay")))
	}
	return ai.NewConfig(opts...)
}

// questionArg joins the positional arguments into one question.
func questionArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("a question is required")
	}
	return q, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	files := c.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	engine, release, err := engineFactory(c)
	if err != nil {
		return err
	}
	defer release()

	s, err := ingestTarget(ctx, engine, c.String("session"))
	if err != nil {
		return err
	}

	pipeline, err := engine.NewIngestionPipeline(
		ingestion.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("workers")),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	out := c.App.Writer
	fmt.Fprintf(out, "Session: %s\n", s.ID())

	var errs []error
	for _, path := range files {
		doc, err := pipeline.IngestFile(ctx, s, path)
		switch {
		case errors.Is(err, ingestion.ErrAlreadyIngested):
			fmt.Fprintf(out, "Skipped %s: already ingested\n", doc.ID)
		case err != nil:
			fmt.Fprintf(out, "Failed %s: %v\n", path, err)
			errs = append(errs, err)
		default:
			fmt.Fprintf(out, "Ingested %s: %d page(s), %d chunk(s), %d table(s)\n",
				doc.ID, doc.Pages, doc.Chunks, doc.Tables)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d file(s) failed: %w", len(errs), len(files), errors.Join(errs...))
	}
	return nil
}

// ingestTarget returns the session to ingest into, creating it when id is
// empty or unknown.
func ingestTarget(ctx context.Context, engine *attest.Engine, id string) (*session.Session, error) {
	if id == "" {
		return engine.Sessions().Create()
	}
	s, err := engine.Session(ctx, id)
	if errors.Is(err, session.ErrSessionNotFound) {
		return engine.Sessions().CreateWithID(id)
	}
	return s, err
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question, err := questionArg(c)
	if err != nil {
		return err
	}

	engine, release, err := engineFactory(c,
		attest.WithOrchestratorOptions(orchestrator.WithParallelism(max(c.Int("parallelism"), 1))))
	if err != nil {
		return err
	}
	defer release()

	opts := &attest.AskOptions{
		ForceOrchestrator:   c.Bool("force-orchestrator"),
		DisableOrchestrator: c.Bool("no-orchestrator"),
		SkipVerification:    c.Bool("skip-verification"),
	}
	if c.IsSet("doc") {
		opts.AllowedDocIDs = c.StringSlice("doc")
	}

	resp, err := engine.Ask(ctx, c.String("session"), question, opts)
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	if c.Bool("json") {
		return writeJSON(c, resp)
	}
	printResponse(c.App.Writer, resp, c.Bool("trajectory"))
	return nil
}

func routeCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}

	decision := router.New().Explain(question)
	if c.Bool("json") {
		return writeJSON(c, decision)
	}
	fmt.Fprintf(c.App.Writer, "Route: %s\nReason: %s\n", decision.Route, decision.Reason)
	if len(decision.Indicators) > 0 {
		fmt.Fprintf(c.App.Writer, "Indicators: %s\n", strings.Join(decision.Indicators, ", "))
	}
	return nil
}

func listSessionsCommand(c *cli.Context) error {
	engine, release, err := engineFactory(c)
	if err != nil {
		return err
	}
	defer release()

	infos, err := engine.Sessions().Persisted(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(c.App.Writer, "No sessions")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(c.App.Writer, "%s\t%d chunk(s)\t%d table(s)\tupdated %s\n",
			info.ID, info.Chunks, info.Tables, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func deleteSessionCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("a session ID is required")
	}

	engine, release, err := engineFactory(c)
	if err != nil {
		return err
	}
	defer release()

	if err := engine.Sessions().Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted session %s\n", id)
	return nil
}

func reembedCommand(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     max(c.Int("max-retries"), 1),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	engine, release, err := engineFactory(c)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", c.String("db"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(c.App.ErrWriter)

	n, err := engine.Reembed(context.Background(), c.String("session"), config, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d chunk(s) in session %s\n", n, c.String("session"))
	return nil
}

func exportTablesCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, release, err := engineFactory(c)
	if err != nil {
		return err
	}
	defer release()

	s, err := engine.Session(ctx, c.String("session"))
	if err != nil {
		return err
	}
	tables, err := table.Collect(ctx, s.TableStore(), s.DocIDs())
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}
	if len(tables) == 0 {
		return fmt.Errorf("session %s: %w", s.ID(), table.ErrNoTables)
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return err
	}
	if err := table.WriteWorkbook(f, tables); err != nil {
		f.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Exported %d table(s) to %s\n", len(tables), c.String("out"))
	return nil
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
