package domain

import "time"

// Document represents an extracted document prior to chunking.
// It is the canonical representation after text extraction (native or OCR).
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title, usually the file name.
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Pages is the page count when known, zero otherwise.
	Pages int

	// Metadata contains arbitrary key-value pairs from extraction.
	Metadata map[string]any
}

// Chunk is a bounded span of document text, the unit that is embedded
// and stored. Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk. It is derived
	// deterministically from the document ID and position, so re-chunking
	// unchanged input reproduces identical IDs.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// CacheEntry is a cached embedding keyed by content fingerprint.
// Entries are append-only: they are written once on first computation
// and never mutated, only removed wholesale by a cache clear.
type CacheEntry struct {
	// Fingerprint is the content-addressed cache key.
	Fingerprint string

	// Vector is the embedding vector.
	Vector []float32

	// Model is the embedding model that produced the vector.
	Model string

	// CreatedAt is when the entry was first written.
	CreatedAt time.Time
}

// EnrichedChunk pairs a chunk with its embedding vector.
// It is the unit handed to the vector store writer and is not
// persisted as its own entity.
type EnrichedChunk struct {
	Chunk Chunk

	// Vector is the embedding vector for the chunk content.
	Vector []float32

	// Model is the embedding model that produced the vector.
	Model string

	// FromCache reports whether the vector was served from the
	// fingerprint cache rather than computed by the embedding API.
	FromCache bool
}

// EmbedResult is the per-chunk outcome of an embedding run.
// Exactly one of Enriched or Failure is set.
type EmbedResult struct {
	Enriched *EnrichedChunk
	Failure  *PipelineError
}

// OK reports whether the chunk was embedded successfully.
func (r EmbedResult) OK() bool {
	return r.Enriched != nil
}
