package domain

// VectorRecord is the unit written to the vector index. Its ID is derived
// from the chunk ID so that re-upserting the same chunk overwrites the
// prior value instead of accumulating duplicates.
type VectorRecord struct {
	// ID is the stable vector identifier.
	ID string

	// Vector is the embedding vector.
	Vector []float32

	// Metadata is the payload stored alongside the vector. Values are
	// limited to what vector stores accept (strings, numbers, booleans).
	Metadata map[string]any
}

// metadataTextLimit bounds how much chunk text is carried in vector
// metadata; stores cap per-record payload size.
const metadataTextLimit = 1000

// NewVectorRecord builds the vector record for an enriched chunk.
func NewVectorRecord(ec EnrichedChunk) VectorRecord {
	text := ec.Chunk.Content
	if len(text) > metadataTextLimit {
		text = text[:metadataTextLimit]
	}

	meta := map[string]any{
		"document_id": ec.Chunk.DocumentID,
		"position":    ec.Chunk.Position,
		"model":       ec.Model,
		"text":        text,
	}
	for k, v := range ec.Chunk.Metadata {
		switch v.(type) {
		case string, int, int64, float64, bool:
			meta[k] = v
		}
	}

	return VectorRecord{
		ID:       ec.Chunk.ID,
		Vector:   ec.Vector,
		Metadata: meta,
	}
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched vector record.
	ID string

	// Score is the similarity score reported by the index.
	Score float64

	// Metadata is the stored payload for the match.
	Metadata map[string]any
}

// UpsertReport describes the outcome of a batched upsert. Partial
// success is reported as-is: some batches may have been written before
// another failed.
type UpsertReport struct {
	// Namespace is the logical partition the records were written to.
	Namespace string

	// Written is the number of records successfully upserted.
	Written int

	// BatchesWritten is the number of batches fully upserted.
	BatchesWritten int

	// Failures holds one entry per failed batch.
	Failures []BatchFailure
}

// OK reports whether every batch was written.
func (r *UpsertReport) OK() bool {
	return len(r.Failures) == 0
}

// BatchFailure identifies a failed upsert batch with enough detail for
// the caller to retry just that batch.
type BatchFailure struct {
	// Namespace is the target namespace of the failed batch.
	Namespace string

	// BatchIndex is the zero-based index of the failed batch.
	BatchIndex int

	// Records is the number of records in the failed batch.
	Records int

	// Err is the classified failure.
	Err *PipelineError
}
