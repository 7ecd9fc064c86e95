package services

import (
	"context"
	"fmt"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/logger"
)

// DefaultUpsertBatchSize bounds records per upsert call to respect the
// vector store's payload limits.
const DefaultUpsertBatchSize = 100

// VectorWriter performs idempotent, batched upserts into the vector
// index. Record IDs derive from chunk IDs, so re-upserting the same
// chunk overwrites rather than duplicates.
type VectorWriter struct {
	index     driven.VectorIndex
	batchSize int
}

// NewVectorWriter creates a writer over the given index. A batchSize
// of zero selects the default.
func NewVectorWriter(index driven.VectorIndex, batchSize int) *VectorWriter {
	if batchSize <= 0 || batchSize > DefaultUpsertBatchSize {
		batchSize = DefaultUpsertBatchSize
	}
	return &VectorWriter{index: index, batchSize: batchSize}
}

// Upsert writes records into namespace in bounded batches. Batches
// fail independently: a failed batch is recorded with its namespace
// and index so the caller can retry just that batch, while the
// remaining batches are still attempted. Partial success is reported
// as such, never masked as total failure or total success.
func (w *VectorWriter) Upsert(ctx context.Context, records []domain.VectorRecord, namespace string) *domain.UpsertReport {
	report := &domain.UpsertReport{Namespace: namespace}
	if len(records) == 0 {
		return report
	}

	total := (len(records) + w.batchSize - 1) / w.batchSize
	for i := 0; i < len(records); i += w.batchSize {
		end := i + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]
		batchIndex := i / w.batchSize

		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, domain.BatchFailure{
				Namespace:  namespace,
				BatchIndex: batchIndex,
				Records:    len(batch),
				Err: domain.NewPipelineError(domain.FailureStorage,
					fmt.Sprintf("upsert batch %d/%d not dispatched", batchIndex+1, total), err),
			})
			continue
		}

		if err := w.index.Upsert(ctx, batch, namespace); err != nil {
			logger.Warn("upsert batch %d/%d into %q failed: %v", batchIndex+1, total, namespace, err)
			report.Failures = append(report.Failures, domain.BatchFailure{
				Namespace:  namespace,
				BatchIndex: batchIndex,
				Records:    len(batch),
				Err: domain.AsPipelineError(err, domain.FailureStorage,
					fmt.Sprintf("upsert batch %d/%d into namespace %q", batchIndex+1, total, namespace)),
			})
			continue
		}

		report.Written += len(batch)
		report.BatchesWritten++
		logger.Debug("upsert batch %d/%d into %q: %d records", batchIndex+1, total, namespace, len(batch))
	}

	return report
}
