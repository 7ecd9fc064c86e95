package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations classify their failures with the domain sentinels so
// the retry policy can dispatch on them without status-code sniffing:
// rate limiting wraps domain.ErrRateLimited, temporary network or
// server trouble wraps domain.ErrTransient, and anything else
// (malformed request, bad credentials) is fatal.
type EmbeddingService interface {
	// EmbedBatch generates embeddings for multiple texts in one API
	// call. The returned vectors are aligned to the input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// This must match the vector index configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to a run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
