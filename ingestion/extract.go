package ingestion

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor reads the text of a document, one entry per page.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// PDFExtractor extracts plain text page by page from PDF files.
// Pages without extractable text are returned empty so numbering is kept.
type PDFExtractor struct{}

var _ Extractor = PDFExtractor{}

// Extract implements Extractor.
func (PDFExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, r.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", i+1, err)
		}
		pages[i] = text
	}

	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return pages, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoText, path)
}

// TextExtractor reads plain text files. Form feeds separate pages.
type TextExtractor struct{}

var _ Extractor = TextExtractor{}

// Extract implements Extractor.
func (TextExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return strings.Split(text, "\f"), nil
}
