package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/corail-labs/pdfvector/internal/adapters/driven/cache/memory"
	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/retry"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// It returns a deterministic vector per text and can inject failures
// per call.
type mockEmbeddingService struct {
	mu      sync.Mutex
	model   string
	calls   int
	batches [][]string

	// failFor returns an error for a given call number (1-based) and
	// batch; nil means success.
	failFor func(call int, texts []string) error

	// pingErr, when set, fails Ping.
	pingErr error
}

func newMockEmbeddingService() *mockEmbeddingService {
	return &mockEmbeddingService{model: "m1"}
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.failFor != nil {
		if err := m.failFor(call, texts); err != nil {
			return nil, err
		}
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = vectorFor(text)
	}
	return vecs, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 2 }

func (m *mockEmbeddingService) ModelName() string { return m.model }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.pingErr }

func (m *mockEmbeddingService) Close() error { return nil }

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbeddingService) sentBatches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// vectorFor derives a stable fake embedding from text.
func vectorFor(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text))}
}

func makeChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("chunk-%d", i),
			DocumentID: "doc-1",
			Content:    text,
			Position:   i,
		}
	}
	return chunks
}

// fastPolicy retries without real sleeping.
func fastPolicy(attempts int) retry.Policy {
	p := retry.NewPolicy(attempts, time.Nanosecond)
	return p
}

// --- Tests ---

func TestEmbedChunks_PreservesOrderAndLength(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithRetryPolicy(fastPolicy(1)))

	chunks := makeChunks("alpha", "bravo", "charlie", "delta")
	results := o.EmbedChunks(context.Background(), chunks)

	require.Len(t, results, len(chunks))
	for i, res := range results {
		require.True(t, res.OK(), "chunk %d failed", i)
		assert.Equal(t, chunks[i].ID, res.Enriched.Chunk.ID)
		assert.Equal(t, vectorFor(chunks[i].Content), res.Enriched.Vector)
		assert.False(t, res.Enriched.FromCache)
		assert.Equal(t, "m1", res.Enriched.Model)
	}
}

func TestEmbedChunks_SecondRunIsFullyCached(t *testing.T) {
	svc := newMockEmbeddingService()
	cache := cachemem.New()
	o := NewEmbeddingOrchestrator(svc, cache, WithRetryPolicy(fastPolicy(1)))

	chunks := makeChunks("alpha", "bravo", "charlie")
	ctx := context.Background()

	first := o.EmbedChunks(ctx, chunks)
	require.Len(t, first, 3)
	callsAfterFirst := svc.callCount()
	assert.Equal(t, 1, callsAfterFirst)

	second := o.EmbedChunks(ctx, chunks)
	require.Len(t, second, 3)

	// Idempotence: identical vectors, everything from cache, zero new
	// API calls.
	assert.Equal(t, callsAfterFirst, svc.callCount())
	for i, res := range second {
		require.True(t, res.OK())
		assert.True(t, res.Enriched.FromCache, "chunk %d should be cached", i)
		assert.Equal(t, first[i].Enriched.Vector, res.Enriched.Vector)
	}
}

func TestEmbedChunks_DeduplicatesIdenticalText(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithRetryPolicy(fastPolicy(1)))

	// "A", "B", "A": only two distinct fingerprints go to the API.
	results := o.EmbedChunks(context.Background(), makeChunks("A", "B", "A"))

	require.Len(t, results, 3)
	batches := svc.sentBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"A", "B"}, batches[0])

	// Both "A" occurrences share the one computed vector.
	assert.Equal(t, results[0].Enriched.Vector, results[2].Enriched.Vector)
}

func TestEmbedChunks_CacheSharedAcrossDocuments(t *testing.T) {
	svc := newMockEmbeddingService()
	cache := cachemem.New()
	o := NewEmbeddingOrchestrator(svc, cache, WithRetryPolicy(fastPolicy(1)))
	ctx := context.Background()

	docA := []domain.Chunk{{ID: "a-0", DocumentID: "doc-a", Content: "same paragraph"}}
	docB := []domain.Chunk{{ID: "b-0", DocumentID: "doc-b", Content: "same paragraph"}}

	o.EmbedChunks(ctx, docA)
	results := o.EmbedChunks(ctx, docB)

	require.True(t, results[0].OK())
	assert.True(t, results[0].Enriched.FromCache,
		"identical text from another document must hit the cache")
	assert.Equal(t, 1, svc.callCount())
}

func TestEmbedChunks_BulkheadIsolation(t *testing.T) {
	svc := newMockEmbeddingService()
	// Fatal error for any batch containing "poison"; no retries burned.
	svc.failFor = func(_ int, texts []string) error {
		for _, text := range texts {
			if text == "poison" {
				return fmt.Errorf("%w: bad request", domain.ErrInvalidInput)
			}
		}
		return nil
	}

	o := NewEmbeddingOrchestrator(svc, cachemem.New(),
		WithRetryPolicy(fastPolicy(3)),
		WithBatchSize(2),
	)

	// Batches of 2: [a b] [c poison] [e f]. The middle batch fails
	// permanently; its siblings still succeed.
	chunks := makeChunks("a", "b", "c", "poison", "e", "f")
	results := o.EmbedChunks(context.Background(), chunks)

	require.Len(t, results, 6)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.False(t, results[2].OK())
	assert.False(t, results[3].OK())
	assert.True(t, results[4].OK())
	assert.True(t, results[5].OK())

	require.NotNil(t, results[3].Failure)
	assert.Equal(t, domain.FailureEmbedding, results[3].Failure.Kind)
	assert.ErrorIs(t, results[3].Failure, domain.ErrInvalidInput)
}

func TestEmbedChunks_RetriesRateLimitThenSucceeds(t *testing.T) {
	svc := newMockEmbeddingService()
	var failures int32
	svc.failFor = func(_ int, _ []string) error {
		// First two calls are throttled, the third succeeds.
		if atomic.AddInt32(&failures, 1) <= 2 {
			return fmt.Errorf("http 429: %w", domain.ErrRateLimited)
		}
		return nil
	}

	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithRetryPolicy(fastPolicy(3)))

	results := o.EmbedChunks(context.Background(), makeChunks("alpha"))

	require.Len(t, results, 1)
	require.True(t, results[0].OK())
	assert.Equal(t, 3, svc.callCount())
}

func TestEmbedChunks_ExhaustedRetriesCarryLastCause(t *testing.T) {
	svc := newMockEmbeddingService()
	svc.failFor = func(_ int, _ []string) error {
		return fmt.Errorf("http 429: %w", domain.ErrRateLimited)
	}

	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithRetryPolicy(fastPolicy(3)))

	results := o.EmbedChunks(context.Background(), makeChunks("alpha"))

	require.Len(t, results, 1)
	require.False(t, results[0].OK())
	assert.Equal(t, domain.FailureEmbedding, results[0].Failure.Kind)
	assert.ErrorIs(t, results[0].Failure, domain.ErrRateLimited)
	assert.Equal(t, 3, svc.callCount())
}

func TestEmbedChunks_SuccessesPersistToCache(t *testing.T) {
	svc := newMockEmbeddingService()
	cache := cachemem.New()
	o := NewEmbeddingOrchestrator(svc, cache, WithRetryPolicy(fastPolicy(1)))
	ctx := context.Background()

	o.EmbedChunks(ctx, makeChunks("alpha"))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestEmbedChunks_WorkerCeilingClamped(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithEmbedWorkers(64))

	assert.Equal(t, MaxEmbedWorkers, o.workers)
}

func TestEmbedChunks_BatchSizeClamped(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithBatchSize(500))

	assert.Equal(t, MaxBatchSize, o.batchSize)
}

func TestEmbedChunks_EmptyInput(t *testing.T) {
	o := NewEmbeddingOrchestrator(newMockEmbeddingService(), cachemem.New())

	assert.Nil(t, o.EmbedChunks(context.Background(), nil))
}

func TestEmbedText_UsesCache(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New(), WithRetryPolicy(fastPolicy(1)))
	ctx := context.Background()

	first, err := o.EmbedText(ctx, "query text")
	require.NoError(t, err)

	second, err := o.EmbedText(ctx, "query text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.callCount())
}

func TestBuildBatches_RespectsBatchSize(t *testing.T) {
	o := NewEmbeddingOrchestrator(newMockEmbeddingService(), cachemem.New(), WithBatchSize(2))

	texts := map[string]string{"f1": "a", "f2": "b", "f3": "c", "f4": "d", "f5": "e"}
	batches := o.buildBatches([]string{"f1", "f2", "f3", "f4", "f5"}, texts)

	require.Len(t, batches, 3)
	assert.Equal(t, []string{"f1", "f2"}, batches[0].fingerprints)
	assert.Equal(t, []string{"f3", "f4"}, batches[1].fingerprints)
	assert.Equal(t, []string{"f5"}, batches[2].fingerprints)
}

func TestBuildBatches_OversizedTextGetsOwnBatch(t *testing.T) {
	o := NewEmbeddingOrchestrator(newMockEmbeddingService(), cachemem.New(),
		WithMaxBatchTokens(10))

	big := make([]byte, 200) // ~50 tokens, over the 10-token limit
	for i := range big {
		big[i] = 'x'
	}
	texts := map[string]string{"f1": "aa", "f2": string(big), "f3": "bb"}

	batches := o.buildBatches([]string{"f1", "f2", "f3"}, texts)

	require.Len(t, batches, 3)
	assert.Equal(t, []string{"f1"}, batches[0].fingerprints)
	assert.Equal(t, []string{"f2"}, batches[1].fingerprints)
	assert.Equal(t, []string{"f3"}, batches[2].fingerprints)
}

func TestPing_DelegatesToService(t *testing.T) {
	svc := newMockEmbeddingService()
	o := NewEmbeddingOrchestrator(svc, cachemem.New())

	require.NoError(t, o.Ping(context.Background()))

	svc.pingErr = errors.New("invalid api key")
	err := o.Ping(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "invalid api key")
}
