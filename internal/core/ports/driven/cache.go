package driven

import (
	"context"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// EmbeddingCache is a content-addressed store mapping a chunk's
// (text, model) fingerprint to a previously computed embedding vector.
// It avoids recomputation and external API cost on repeated runs.
//
// Implementations must be safe under concurrent access from multiple
// batch workers. Two workers putting the same fingerprint concurrently
// both succeed; the surviving entry reflects one of the two writes,
// which is acceptable because both computed the same value from the
// same text and model.
type EmbeddingCache interface {
	// Get returns the cached entry for a fingerprint, or
	// domain.ErrNotFound when absent.
	Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error)

	// Put stores an embedding under its fingerprint. Writing the same
	// fingerprint twice with the same vector is observably a no-op.
	Put(ctx context.Context, fingerprint string, vector []float32, model string) (*domain.CacheEntry, error)

	// Clear removes every entry and returns the number removed.
	Clear(ctx context.Context) (int, error)

	// Stats reports cache size for diagnostics.
	Stats(ctx context.Context) (*CacheStats, error)

	// Close releases resources.
	Close() error
}

// CacheStats summarises cache contents.
type CacheStats struct {
	// Entries is the number of cached embeddings.
	Entries int

	// SizeBytes is the approximate storage footprint.
	SizeBytes int64
}
