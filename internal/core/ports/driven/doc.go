// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - EmbeddingService: Generates vector embeddings (OpenAI or compatible)
//   - EmbeddingCache: Durable fingerprint-keyed embedding cache
//   - VectorIndex: Namespaced vector storage and similarity search
//
// # Boundary Interfaces
//
// Extraction and chunking internals are outside the core; the core only
// consumes their results through these ports:
//
//   - Extractor: Produces a Document from a file (native text or OCR)
//   - Chunker: Splits a Document into ordered Chunks
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
