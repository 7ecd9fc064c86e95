package driving

import (
	"context"
	"time"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// PipelineRunner coordinates document ingestion: extraction, chunking,
// embedding and vector persistence.
type PipelineRunner interface {
	// Ingest runs the full pipeline over the given files, writing
	// vectors into namespace. Per-chunk and per-batch failures are
	// collected in the report rather than aborting the run.
	Ingest(ctx context.Context, paths []string, namespace string) (*RunReport, error)

	// Query embeds text and searches the namespace for the topK most
	// similar chunks.
	Query(ctx context.Context, text, namespace string, topK int) ([]domain.VectorHit, error)

	// Status returns progress for the run identified by runID.
	Status(ctx context.Context, runID string) (*RunStatus, error)
}

// RunStatus is a point-in-time snapshot of an active run.
type RunStatus struct {
	// RunID identifies the run.
	RunID string

	// Running indicates if the run is in progress.
	Running bool

	// DocumentsProcessed is the count of documents fully processed.
	DocumentsProcessed int

	// ChunksEmbedded counts chunks resolved so far, cached or fresh.
	ChunksEmbedded int

	// ErrorCount is the number of failures so far.
	ErrorCount int
}

// RunReport summarises a completed pipeline run. A run never reports a
// single opaque failure: every count below is always populated, and
// partial progress (cache entries written, vector batches upserted)
// remains durable even when later stages fail.
type RunReport struct {
	// RunID identifies the run.
	RunID string

	// Namespace is the vector store partition written to.
	Namespace string

	// Documents is the number of input files.
	Documents int

	// DocumentsFailed counts files that failed extraction or chunking.
	DocumentsFailed int

	// Chunks is the total number of chunks produced.
	Chunks int

	// Cached counts chunks served from the fingerprint cache.
	Cached int

	// Embedded counts chunks embedded via the API this run.
	Embedded int

	// ChunksFailed counts chunks whose batch failed after retries.
	ChunksFailed int

	// VectorsWritten counts records upserted into the index.
	VectorsWritten int

	// BatchesWritten and BatchesFailed count vector store batches.
	BatchesWritten int
	BatchesFailed  int

	// EstimatedCost is the approximate embedding API spend in USD.
	EstimatedCost float64

	// Timings records per-stage wall-clock durations.
	Timings StageTimings

	// Failures collects every classified failure from the run.
	Failures []*domain.PipelineError
}

// StageTimings records how long each pipeline stage took. Extraction
// covers both extraction and chunking, which run in the same pool.
type StageTimings struct {
	Extraction time.Duration
	Embedding  time.Duration
	Storage    time.Duration
	Total      time.Duration
}
