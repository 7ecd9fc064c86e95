// Package chunker provides a fixed-size overlapping text chunker.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// chunkNamespace seeds UUIDv5 chunk IDs. Fixed for the lifetime of the
// project: changing it would orphan every previously written vector.
var chunkNamespace = uuid.MustParse("9a7d3f52-1c44-4b8e-b1a6-5e2f08c4d9e1")

// Chunker splits document content into fixed-size overlapping chunks.
// Chunk IDs are derived from (document ID, position), so re-chunking
// unchanged input reproduces identical IDs and re-ingesting overwrites
// instead of duplicating.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkID derives the stable chunk identifier for a document position.
// The same (documentID, position) pair always yields the same ID.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", documentID, position))).String()
}

// Chunk splits the document content into overlapping chunks.
func (c *Chunker) Chunk(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("chunk: %w: document is nil", domain.ErrInvalidInput)
	}
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	content := doc.Content
	contentLen := len(content)

	estimatedChunks := (contentLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	position := 0
	start := 0

	for start < contentLen {
		end := start + c.chunkSize
		if end > contentLen {
			end = contentLen
		} else {
			// Back off to a rune boundary so a chunk never splits a
			// multibyte sequence.
			for end > start && !utf8.RuneStart(content[end]) {
				end--
			}
			if end == start {
				_, size := utf8.DecodeRuneInString(content[start:])
				end = start + size
			}
		}

		chunk := domain.Chunk{
			ID:         ChunkID(doc.ID, position),
			DocumentID: doc.ID,
			Content:    content[start:end],
			Position:   position,
			Metadata: map[string]any{
				"source":      doc.URI,
				"file_name":   doc.Title,
				"chunk_index": position,
				"chunk_size":  end - start,
			},
		}

		chunks = append(chunks, chunk)
		position++

		// Move start forward by (chunkSize - overlap)
		start += c.chunkSize - c.overlap
		for start < contentLen && !utf8.RuneStart(content[start]) {
			start++
		}

		// Avoid infinite loop for edge cases
		if c.chunkSize <= c.overlap {
			break
		}
	}

	// Record total after the fact so every chunk carries it.
	for i := range chunks {
		chunks[i].Metadata["total_chunks"] = len(chunks)
	}

	return chunks, nil
}
