package driven

import (
	"context"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// VectorIndex provides namespaced vector persistence and similarity
// search. Namespaces isolate logically distinct document collections
// within one physical index; operations never cross namespaces
// implicitly.
type VectorIndex interface {
	// Upsert writes records into a namespace. Upsert is idempotent by
	// record ID: re-upserting an ID overwrites the prior value, no
	// duplicates accumulate. The records slice is bounded by the
	// store's payload limit; batching is the caller's concern.
	Upsert(ctx context.Context, records []domain.VectorRecord, namespace string) error

	// Query finds the topK most similar records in a namespace.
	Query(ctx context.Context, vector []float32, namespace string, topK int) ([]domain.VectorHit, error)

	// DeleteNamespace removes every vector in a namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Stats reports index contents for diagnostics.
	Stats(ctx context.Context) (*IndexStats, error)

	// Close releases resources.
	Close() error
}

// IndexStats summarises index contents.
type IndexStats struct {
	// TotalVectors is the vector count across all namespaces.
	TotalVectors int

	// Dimensions is the configured vector size.
	Dimensions int

	// Namespaces maps namespace name to vector count.
	Namespaces map[string]int
}
