// Package memory provides an in-memory embedding cache. It backs tests
// and cache-disabled runs; entries do not survive the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is an in-memory implementation of driven.EmbeddingCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// New creates a new in-memory cache.
func New() *Cache {
	return &Cache{entries: make(map[string]domain.CacheEntry)}
}

// Get returns the cached entry for a fingerprint.
func (c *Cache) Get(_ context.Context, fingerprint string) (*domain.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Put stores an embedding under its fingerprint. Concurrent writes to
// the same key are last-writer-wins.
func (c *Cache) Put(_ context.Context, fingerprint string, vector []float32, model string) (*domain.CacheEntry, error) {
	entry := domain.CacheEntry{
		Fingerprint: fingerprint,
		Vector:      append([]float32(nil), vector...),
		Model:       model,
		CreatedAt:   time.Now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = entry
	return &entry, nil
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]domain.CacheEntry)
	return n, nil
}

// Stats reports cache size.
func (c *Cache) Stats(_ context.Context) (*driven.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var size int64
	for _, entry := range c.entries {
		size += int64(len(entry.Vector) * 4)
	}
	return &driven.CacheStats{Entries: len(c.entries), SizeBytes: size}, nil
}

// Close releases resources.
func (c *Cache) Close() error {
	return nil
}
