package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/core/ports/driving"
)

// mockPipeline implements driving.PipelineRunner for command tests.
type mockPipeline struct {
	ingestPaths []string
	report      *driving.RunReport
	hits        []domain.VectorHit
	err         error
}

func (m *mockPipeline) Ingest(_ context.Context, paths []string, namespace string) (*driving.RunReport, error) {
	m.ingestPaths = paths
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.RunReport{
		RunID:          "run-1",
		Namespace:      namespace,
		Documents:      len(paths),
		Chunks:         4,
		Embedded:       3,
		Cached:         1,
		VectorsWritten: 4,
		BatchesWritten: 1,
	}, nil
}

func (m *mockPipeline) Query(_ context.Context, _, _ string, _ int) ([]domain.VectorHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func (m *mockPipeline) Status(_ context.Context, runID string) (*driving.RunStatus, error) {
	return &driving.RunStatus{RunID: runID}, nil
}

// mockCache implements driven.EmbeddingCache.
type mockCache struct {
	entries int
	cleared bool
}

func (m *mockCache) Get(_ context.Context, _ string) (*domain.CacheEntry, error) {
	return nil, domain.ErrNotFound
}

func (m *mockCache) Put(_ context.Context, fp string, vector []float32, model string) (*domain.CacheEntry, error) {
	return &domain.CacheEntry{Fingerprint: fp, Vector: vector, Model: model}, nil
}

func (m *mockCache) Clear(_ context.Context) (int, error) {
	m.cleared = true
	return m.entries, nil
}

func (m *mockCache) Stats(_ context.Context) (*driven.CacheStats, error) {
	return &driven.CacheStats{Entries: m.entries, SizeBytes: int64(m.entries) * 100}, nil
}

func (m *mockCache) Close() error { return nil }

// mockIndex implements driven.VectorIndex.
type mockIndex struct {
	deletedNamespace string
}

func (m *mockIndex) Upsert(_ context.Context, _ []domain.VectorRecord, _ string) error {
	return nil
}

func (m *mockIndex) Query(_ context.Context, _ []float32, _ string, _ int) ([]domain.VectorHit, error) {
	return nil, nil
}

func (m *mockIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.deletedNamespace = namespace
	return nil
}

func (m *mockIndex) Stats(_ context.Context) (*driven.IndexStats, error) {
	return &driven.IndexStats{
		TotalVectors: 10,
		Dimensions:   1536,
		Namespaces:   map[string]int{"docs": 8, "": 2},
	}, nil
}

func (m *mockIndex) Close() error { return nil }

// mockTextExtractor supports .txt files only.
type mockTextExtractor struct{}

func (m *mockTextExtractor) Extract(_ context.Context, path string) (*domain.Document, error) {
	return &domain.Document{ID: path, URI: path}, nil
}

func (m *mockTextExtractor) Supports(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".txt"
}

func (m *mockTextExtractor) Name() string { return "mock" }

// setupTestServices wires mocks into the package-level services and
// returns a cleanup restoring the previous state.
func setupTestServices(t *testing.T) (*mockPipeline, *mockCache, *mockIndex) {
	t.Helper()

	oldPipeline := pipelineService
	oldCache := cacheService
	oldIndex := indexService
	oldExtractors := extractorSet

	pipeline := &mockPipeline{}
	cache := &mockCache{entries: 42}
	index := &mockIndex{}
	Setup(pipeline, cache, index, []driven.Extractor{&mockTextExtractor{}})

	t.Cleanup(func() {
		pipelineService = oldPipeline
		cacheService = oldCache
		indexService = oldIndex
		extractorSet = oldExtractors
	})
	return pipeline, cache, index
}

// execute runs the root command with args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		namespaceFlag = ""
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
