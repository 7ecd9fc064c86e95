// Package memory provides an in-memory vector index used for tests and
// local runs without a configured vector store backend. Similarity is
// exact cosine over the stored vectors.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory implementation of driven.VectorIndex.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	namespaces map[string]map[string]domain.VectorRecord
}

// New creates a new in-memory index.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		namespaces: make(map[string]map[string]domain.VectorRecord),
	}
}

// Upsert writes records into a namespace, overwriting by ID.
func (idx *Index) Upsert(_ context.Context, records []domain.VectorRecord, namespace string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ns, ok := idx.namespaces[namespace]
	if !ok {
		ns = make(map[string]domain.VectorRecord)
		idx.namespaces[namespace] = ns
	}
	for _, rec := range records {
		ns[rec.ID] = rec
	}
	return nil
}

// Query returns the topK records most similar to vector.
func (idx *Index) Query(_ context.Context, vector []float32, namespace string, topK int) ([]domain.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ns := idx.namespaces[namespace]
	hits := make([]domain.VectorHit, 0, len(ns))
	for _, rec := range ns {
		hits = append(hits, domain.VectorHit{
			ID:       rec.ID,
			Score:    cosine(vector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteNamespace removes every vector in a namespace.
func (idx *Index) DeleteNamespace(_ context.Context, namespace string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.namespaces, namespace)
	return nil
}

// Stats reports index contents.
func (idx *Index) Stats(_ context.Context) (*driven.IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := &driven.IndexStats{
		Dimensions: idx.dimensions,
		Namespaces: make(map[string]int, len(idx.namespaces)),
	}
	for name, ns := range idx.namespaces {
		stats.Namespaces[name] = len(ns)
		stats.TotalVectors += len(ns)
	}
	return stats, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
