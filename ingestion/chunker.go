package ingestion

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1200

	// DefaultChunkOverlap is the overlap between consecutive chunks of a page.
	DefaultChunkOverlap = 150
)

// separators are tried in order: paragraphs, lines, words, characters.
var separators = []string{"\n\n", "\n", " ", ""}

// piece is a span of page text awaiting an embedding.
type piece struct {
	page int
	text string
}

// Chunker splits page text into overlapping chunks, preferring paragraph,
// then line, then word boundaries.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

// NewChunker creates a chunker producing chunks of at most size characters
// with overlap characters shared between neighbours.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", ErrInvalidChunking, overlap, size)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
		size:    size,
		overlap: overlap,
	}, nil
}

// Split chunks each page separately so every chunk keeps its page number.
// Pages are numbered from 1; blank pages yield no chunks.
func (c *Chunker) Split(pages []string) ([]piece, error) {
	var out []piece
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		parts, err := c.splitter.SplitText(page)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d: %w", i+1, err)
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, piece{page: i + 1, text: p})
			}
		}
	}
	return out, nil
}

// SplitOversized breaks text into parts of at most maxChars characters at
// word boundaries. A single word longer than maxChars is cut into
// maxChars-sized pieces. Whitespace between words collapses to one space.
func SplitOversized(text string, maxChars int) []string {
	if maxChars < 1 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		out     []string
		current []string
		length  int
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current, length = nil, 0
		}
	}

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		sep := 0
		if len(current) > 0 {
			sep = 1
		}
		if length+sep+n <= maxChars {
			current = append(current, word)
			length += sep + n
			continue
		}
		flush()
		if n <= maxChars {
			current, length = []string{word}, n
			continue
		}
		runes := []rune(word)
		for start := 0; start < len(runes); start += maxChars {
			out = append(out, string(runes[start:min(start+maxChars, len(runes))]))
		}
	}
	flush()
	return out
}

// capPieces applies SplitOversized to every piece, keeping page numbers.
func capPieces(pieces []piece, maxChars int) []piece {
	out := make([]piece, 0, len(pieces))
	for _, p := range pieces {
		for _, part := range SplitOversized(p.text, maxChars) {
			out = append(out, piece{page: p.page, text: part})
		}
	}
	return out
}
