// Package domain defines the core business entities for pdfvector.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An extracted document before chunking
//   - Chunk: The unit of text that is embedded and stored
//   - CacheEntry: A cached embedding keyed by content fingerprint
//   - EnrichedChunk: A chunk paired with its embedding vector
//   - VectorRecord: The unit written to the vector index
//   - PipelineError: A classified per-chunk or per-batch failure
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
