package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/core/ports/driving"
	"github.com/corail-labs/pdfvector/internal/logger"
	"github.com/corail-labs/pdfvector/internal/workpool"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.PipelineRunner = (*IngestOrchestrator)(nil)

// embeddingPricing maps model name to USD per 1K tokens, used for the
// run report's cost estimate.
var embeddingPricing = map[string]float64{
	"text-embedding-3-small": 0.00002,
	"text-embedding-3-large": 0.00013,
	"text-embedding-ada-002": 0.0001,
}

// IngestOrchestrator coordinates document ingestion: extraction and
// chunking fan out over an I/O-sized worker pool, the embedding
// orchestrator resolves vectors through the cache under the embedding
// worker ceiling, and the vector writer persists the results. Each
// stage owns its pool; there is no global pool.
type IngestOrchestrator struct {
	extractors []driven.Extractor
	chunker    driven.Chunker
	embedder   *EmbeddingOrchestrator
	writer     *VectorWriter
	index      driven.VectorIndex

	// extractWorkers sizes the extraction/chunking pool; zero selects
	// min(32, NumCPU+4).
	extractWorkers int

	// Status tracking
	mu         sync.RWMutex
	activeRuns map[string]*driving.RunStatus
}

// NewIngestOrchestrator creates a pipeline runner. Extractors are
// consulted in order; the first one supporting a file wins.
func NewIngestOrchestrator(
	extractors []driven.Extractor,
	chunker driven.Chunker,
	embedder *EmbeddingOrchestrator,
	writer *VectorWriter,
	index driven.VectorIndex,
	extractWorkers int,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		extractors:     extractors,
		chunker:        chunker,
		embedder:       embedder,
		writer:         writer,
		index:          index,
		extractWorkers: extractWorkers,
		activeRuns:     make(map[string]*driving.RunStatus),
	}
}

// docChunks is the extraction+chunking result for one input file.
type docChunks struct {
	doc    *domain.Document
	chunks []domain.Chunk
}

// Ingest runs the full pipeline over the given files. Per-chunk and
// per-batch failures are collected into the report; only an empty
// input or an unusable configuration fails the call itself.
func (o *IngestOrchestrator) Ingest(ctx context.Context, paths []string, namespace string) (*driving.RunReport, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("ingest: %w: no input files", domain.ErrInvalidInput)
	}

	runID := uuid.New().String()
	status := &driving.RunStatus{RunID: runID, Running: true}
	o.setStatus(runID, status)
	defer o.clearStatus(runID)

	report := &driving.RunReport{RunID: runID, Namespace: namespace, Documents: len(paths)}
	runStart := time.Now()

	logger.Section("Extraction")
	stageStart := time.Now()

	// 1. Extract and chunk every file under the I/O-bound pool.
	results := workpool.Run(ctx, paths, o.extractAndChunk, o.extractWorkers, domain.FailureExtraction)
	report.Timings.Extraction = time.Since(stageStart)

	var chunks []domain.Chunk
	for i, res := range results {
		if !res.OK() {
			report.DocumentsFailed++
			report.Failures = append(report.Failures, res.Failure)
			logger.Warn("skipping %s: %v", paths[i], res.Failure)
			continue
		}
		chunks = append(chunks, res.Value.chunks...)
		o.updateStatus(runID, func(s *driving.RunStatus) { s.DocumentsProcessed++ })
	}
	report.Chunks = len(chunks)
	logger.Info("extracted %d/%d documents into %d chunks",
		len(paths)-report.DocumentsFailed, len(paths), len(chunks))

	if len(chunks) == 0 {
		report.Timings.Total = time.Since(runStart)
		o.updateStatus(runID, func(s *driving.RunStatus) { s.Running = false })
		return report, nil
	}

	// 2. Resolve embeddings through the cache and the rate-limited
	// batch executor.
	logger.Section("Embedding")
	stageStart = time.Now()
	embedResults := o.embedder.EmbedChunks(ctx, chunks)
	report.Timings.Embedding = time.Since(stageStart)

	var enriched []domain.EnrichedChunk
	for _, res := range embedResults {
		if !res.OK() {
			report.ChunksFailed++
			report.Failures = append(report.Failures, res.Failure)
			continue
		}
		if res.Enriched.FromCache {
			report.Cached++
		} else {
			report.Embedded++
			report.EstimatedCost += estimateCost(res.Enriched.Chunk.Content, res.Enriched.Model)
		}
		enriched = append(enriched, *res.Enriched)
		o.updateStatus(runID, func(s *driving.RunStatus) { s.ChunksEmbedded++ })
	}
	logger.Info("embeddings resolved: %d cached, %d computed, %d failed",
		report.Cached, report.Embedded, report.ChunksFailed)

	// 3. Upsert into the vector index.
	logger.Section("Storage")
	stageStart = time.Now()
	records := make([]domain.VectorRecord, len(enriched))
	for i, ec := range enriched {
		records[i] = domain.NewVectorRecord(ec)
	}
	upsert := o.writer.Upsert(ctx, records, namespace)
	report.Timings.Storage = time.Since(stageStart)

	report.VectorsWritten = upsert.Written
	report.BatchesWritten = upsert.BatchesWritten
	report.BatchesFailed = len(upsert.Failures)
	for _, bf := range upsert.Failures {
		report.Failures = append(report.Failures, bf.Err)
	}

	o.updateStatus(runID, func(s *driving.RunStatus) {
		s.ErrorCount = len(report.Failures)
		s.Running = false
	})
	report.Timings.Total = time.Since(runStart)

	logger.Info("run %s complete: %d vectors written, %d batches failed",
		runID, report.VectorsWritten, report.BatchesFailed)
	return report, nil
}

// Query embeds the query text and searches the namespace.
func (o *IngestOrchestrator) Query(ctx context.Context, text, namespace string, topK int) ([]domain.VectorHit, error) {
	if topK <= 0 {
		topK = 5
	}

	vector, err := o.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := o.index.Query(ctx, vector, namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return hits, nil
}

// Status returns progress for the run identified by runID.
func (o *IngestOrchestrator) Status(_ context.Context, runID string) (*driving.RunStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeRuns[runID]; ok {
		// Return a copy to avoid race conditions.
		copied := *status
		return &copied, nil
	}

	return &driving.RunStatus{RunID: runID, Running: false}, nil
}

// extractAndChunk resolves one file into its chunks.
func (o *IngestOrchestrator) extractAndChunk(ctx context.Context, path string) (docChunks, error) {
	extractor := o.extractorFor(path)
	if extractor == nil {
		return docChunks{}, domain.NewPipelineError(domain.FailureExtraction,
			fmt.Sprintf("no extractor supports %s", path), domain.ErrNotImplemented)
	}

	logger.Debug("extracting %s via %s", path, extractor.Name())
	doc, err := extractor.Extract(ctx, path)
	if err != nil {
		return docChunks{}, domain.AsPipelineError(err, domain.FailureExtraction,
			fmt.Sprintf("extract %s", path))
	}

	chunks, err := o.chunker.Chunk(ctx, doc)
	if err != nil {
		return docChunks{}, domain.AsPipelineError(err, domain.FailureChunking,
			fmt.Sprintf("chunk %s", path))
	}

	logger.Debug("%s: %d chunks", path, len(chunks))
	return docChunks{doc: doc, chunks: chunks}, nil
}

// extractorFor returns the first extractor supporting the file.
func (o *IngestOrchestrator) extractorFor(path string) driven.Extractor {
	for _, e := range o.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}

// setStatus records the status of an active run.
func (o *IngestOrchestrator) setStatus(runID string, status *driving.RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeRuns[runID] = status
}

// updateStatus applies a mutation to an active run's status.
func (o *IngestOrchestrator) updateStatus(runID string, fn func(*driving.RunStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeRuns[runID]; ok {
		fn(status)
	}
}

// clearStatus removes the status of a finished run.
func (o *IngestOrchestrator) clearStatus(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRuns, runID)
}

// estimateCost approximates the embedding API spend for a text.
func estimateCost(text, model string) float64 {
	price, ok := embeddingPricing[model]
	if !ok {
		price = embeddingPricing["text-embedding-3-small"]
	}
	return float64(estimateTokens(text)) / 1000 * price
}
