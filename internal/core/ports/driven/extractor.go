package driven

import (
	"context"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// Extractor produces a Document from a file on disk. Extraction
// internals (native PDF text, Tesseract, Mistral OCR) live behind this
// boundary; the core treats implementations as opaque producers.
type Extractor interface {
	// Extract reads the file at path and returns its text content.
	Extract(ctx context.Context, path string) (*domain.Document, error)

	// Supports reports whether this extractor can handle the file.
	Supports(path string) bool

	// Name identifies the extractor in logs and reports.
	Name() string
}

// Chunker splits a Document into an ordered sequence of chunks.
// Splitting heuristics are outside the core; the core only relies on
// chunk IDs being stable for unchanged input.
type Chunker interface {
	// Chunk splits the document content. Chunk positions are ordinal
	// and IDs deterministic over (document ID, position).
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
