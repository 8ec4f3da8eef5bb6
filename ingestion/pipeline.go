package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/table"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 32

// Target receives the chunks and tables of ingested documents.
// *session.Session satisfies it.
type Target interface {
	ID() string
	AddChunks(ctx context.Context, chunks ...core.Chunk) error
	AddTables(ctx context.Context, tables ...core.Table) error
}

// Pipeline turns documents into embedded chunks and tables for a session.
type Pipeline struct {
	embedder   *embedder
	chunker    *Chunker
	documents  storage.DocumentRepository
	pool       *ants.Pool
	batchSize  int
	extractors map[string]Extractor
	progress   io.Writer
	logger     *slog.Logger

	chunkSize    int
	chunkOverlap int
	embedLimit   int
	embedRetries int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunking sets the chunk size and overlap in characters.
// Defaults are DefaultChunkSize and DefaultChunkOverlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithEmbedLimit sets the longest input, in characters, sent to the
// embedder and how many times a batch is re-chunked after a too-long error.
// Defaults are DefaultEmbedLimit and DefaultEmbedRetries.
func WithEmbedLimit(maxChars, retries int) Option {
	return func(p *Pipeline) error {
		if maxChars < 1 || retries < 0 {
			return fmt.Errorf("%w: embed limit %d with %d retries", ErrInvalidChunking, maxChars, retries)
		}
		p.embedLimit = maxChars
		p.embedRetries = retries
		return nil
	}
}

// WithBatchSize sets the number of chunks per embedding request.
// Default is DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", n)
		}
		p.batchSize = n
		return nil
	}
}

// WithDocumentRepository records every ingested document and skips
// documents the session already holds.
func WithDocumentRepository(repo storage.DocumentRepository) Option {
	return func(p *Pipeline) error {
		p.documents = repo
		return nil
	}
}

// WithExtractor registers the extractor used for files with extension ext,
// such as ".pdf".
func WithExtractor(ext string, e Extractor) Option {
	return func(p *Pipeline) error {
		if e == nil {
			return fmt.Errorf("extractor for %q is nil", ext)
		}
		p.extractors[strings.ToLower(ext)] = e
		return nil
	}
}

// WithProgress writes embedding progress for each document to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates an ingestion pipeline embedding with embedder.
// PDF, plain text and markdown files are supported out of the box; XLSX
// workbooks are loaded as tables.
func NewPipeline(embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		pool:      pool,
		batchSize: DefaultBatchSize,
		extractors: map[string]Extractor{
			".pdf": PDFExtractor{},
			".txt": TextExtractor{},
			".md":  TextExtractor{},
		},
		logger:       slog.Default().With("component", "ingestion"),
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		embedLimit:   DefaultEmbedLimit,
		embedRetries: DefaultEmbedRetries,
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	chunker, err := NewChunker(p.chunkSize, p.chunkOverlap)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.chunker = chunker
	p.embedder = newEmbedder(embedder, p.embedLimit, p.embedRetries, p.logger)
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Supported reports whether IngestFile can handle path.
func (p *Pipeline) Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := p.extractors[ext]
	return ok || ext == ".xlsx"
}

// IngestFile ingests the document at path into target. The document ID is
// the file name. XLSX workbooks become tables; other formats are extracted,
// chunked and embedded.
//
// When a document repository is configured and target already holds the
// document, nothing is ingested and the stored record is returned with an
// error wrapping ErrAlreadyIngested.
func (p *Pipeline) IngestFile(ctx context.Context, target Target, path string) (*core.Document, error) {
	docID := filepath.Base(path)
	if existing, err := p.existing(ctx, target, docID); err != nil || existing != nil {
		if existing != nil {
			p.logger.Info("document already ingested, skipping", "doc", docID, "session", target.ID())
			return existing, fmt.Errorf("%w: %s", ErrAlreadyIngested, docID)
		}
		return nil, err
	}

	sourceURI := path
	if abs, err := filepath.Abs(path); err == nil {
		sourceURI = "file://" + filepath.ToSlash(abs)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		tables, err := table.LoadWorkbook(path, docID)
		if err != nil {
			return nil, err
		}
		return p.IngestTables(ctx, target, docID, sourceURI, tables)
	}

	extractor, ok := p.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	pages, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", docID, err)
	}
	return p.IngestPages(ctx, target, docID, sourceURI, pages)
}

// IngestPages chunks and embeds the pages of a document and adds the
// chunks to target. Chunk IDs are derived from content, so ingesting the
// same text twice into one session fails with a duplicate chunk error.
func (p *Pipeline) IngestPages(ctx context.Context, target Target, docID, sourceURI string, pages []string) (*core.Document, error) {
	if docID == "" {
		return nil, core.ErrEmptyDocID
	}

	pieces, err := p.chunker.Split(pages)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, docID)
	}

	logger := p.logger.With("doc", docID, "session", target.ID())
	logger.Info("embedding document", "pages", len(pages), "chunks", len(pieces))

	embedded, vectors, err := p.embedAll(ctx, docID, pieces)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", docID, err)
	}

	chunks := make([]core.Chunk, len(embedded))
	for i, piece := range embedded {
		chunks[i] = core.Chunk{
			ID:         core.ChunkID(docID, piece.page, i, piece.text),
			DocID:      docID,
			PageNum:    piece.page,
			ChunkIndex: i,
			Text:       piece.text,
			SourceURI:  sourceURI,
			Vector:     vectors[i],
		}
	}
	if err := target.AddChunks(ctx, chunks...); err != nil {
		return nil, err
	}

	doc := &core.Document{ID: docID, SourceURI: sourceURI, Pages: len(pages), Chunks: len(chunks)}
	if err := p.record(ctx, target, doc); err != nil {
		return nil, err
	}
	logger.Info("document ingested", "chunks", len(chunks))
	return doc, nil
}

// IngestTables adds the tables of a document to target.
func (p *Pipeline) IngestTables(ctx context.Context, target Target, docID, sourceURI string, tables []core.Table) (*core.Document, error) {
	if docID == "" {
		return nil, core.ErrEmptyDocID
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: %s", table.ErrNoTables, docID)
	}
	if err := target.AddTables(ctx, tables...); err != nil {
		return nil, err
	}

	doc := &core.Document{ID: docID, SourceURI: sourceURI, Tables: len(tables)}
	if err := p.record(ctx, target, doc); err != nil {
		return nil, err
	}
	p.logger.Info("tables ingested", "doc", docID, "session", target.ID(), "tables", len(tables))
	return doc, nil
}

// embedAll embeds pieces in batches on the worker pool. Output keeps input
// order; a batch may come back longer than it went in after re-chunking.
func (p *Pipeline) embedAll(ctx context.Context, docID string, pieces []piece) ([]piece, [][]float32, error) {
	type batchResult struct {
		pieces  []piece
		vectors [][]float32
		err     error
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, docID, len(pieces), p.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	n := (len(pieces) + p.batchSize - 1) / p.batchSize
	results := make([]batchResult, n)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for b := range n {
		batch := pieces[b*p.batchSize : min((b+1)*p.batchSize, len(pieces))]
		run := func() {
			defer wg.Done()
			out, vectors, err := p.embedder.embed(ctx, batch)
			if err != nil {
				cancel()
			}
			results[b] = batchResult{pieces: out, vectors: vectors, err: err}
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		}

		wg.Add(1)
		if err := p.pool.Submit(run); err != nil {
			p.logger.Warn("worker pool rejected batch, embedding inline", "err", err)
			run()
		}
	}
	wg.Wait()

	var (
		allPieces  []piece
		allVectors [][]float32
	)
	for _, r := range results {
		if r.err != nil && !errors.Is(r.err, context.Canceled) {
			return nil, nil, r.err
		}
	}
	for _, r := range results {
		if r.err != nil {
			return nil, nil, r.err
		}
		allPieces = append(allPieces, r.pieces...)
		allVectors = append(allVectors, r.vectors...)
	}
	return allPieces, allVectors, nil
}

func (p *Pipeline) existing(ctx context.Context, target Target, docID string) (*core.Document, error) {
	if p.documents == nil {
		return nil, nil
	}
	doc, err := p.documents.GetDocument(ctx, target.ID(), docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

func (p *Pipeline) record(ctx context.Context, target Target, doc *core.Document) error {
	if p.documents == nil {
		return nil
	}
	if err := p.documents.SaveDocument(ctx, target.ID(), doc); err != nil {
		return fmt.Errorf("recording document %s: %w", doc.ID, err)
	}
	return nil
}
