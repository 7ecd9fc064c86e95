package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/core/ports/driven"
	"github.com/corail-labs/pdfvector/internal/fingerprint"
	"github.com/corail-labs/pdfvector/internal/logger"
	"github.com/corail-labs/pdfvector/internal/retry"
	"github.com/corail-labs/pdfvector/internal/workpool"
)

// Embedding batch limits. The embedding API rejects batches above 100
// inputs, and its requests-per-minute limit is hit well before CPU or
// I/O limits, hence the conservative worker ceiling.
const (
	DefaultBatchSize = 100
	MaxBatchSize     = 100

	DefaultEmbedWorkers = 4
	MaxEmbedWorkers     = 4

	// DefaultMaxBatchTokens bounds batches by estimated token count so
	// oversized chunks do not blow the API's per-request token limit.
	DefaultMaxBatchTokens = 8000
)

// EmbeddingOrchestrator maps chunk sequences to enriched
// (chunk + embedding) records. It composes the fingerprint cache, the
// rate-limited batch executor and the retry policy: cache hits
// short-circuit without an API call, misses are deduplicated, batched
// and dispatched under bounded concurrency, and results are reassembled
// in input order with exactly one outcome per input chunk.
type EmbeddingOrchestrator struct {
	service driven.EmbeddingService
	cache   driven.EmbeddingCache
	policy  retry.Policy
	limiter *rate.Limiter

	batchSize      int
	maxBatchTokens int
	workers        int
}

// EmbedOption configures the orchestrator.
type EmbedOption func(*EmbeddingOrchestrator)

// WithBatchSize sets the maximum chunks per embedding API call.
func WithBatchSize(n int) EmbedOption {
	return func(o *EmbeddingOrchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithEmbedWorkers sets the concurrent embedding call ceiling.
func WithEmbedWorkers(n int) EmbedOption {
	return func(o *EmbeddingOrchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRetryPolicy sets the retry/backoff policy for batch calls.
func WithRetryPolicy(p retry.Policy) EmbedOption {
	return func(o *EmbeddingOrchestrator) {
		o.policy = p
	}
}

// WithRequestsPerMinute throttles batch dispatch to the given rate.
// Zero disables proactive throttling.
func WithRequestsPerMinute(rpm int) EmbedOption {
	return func(o *EmbeddingOrchestrator) {
		if rpm > 0 {
			o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		}
	}
}

// WithMaxBatchTokens bounds batches by estimated token count.
func WithMaxBatchTokens(n int) EmbedOption {
	return func(o *EmbeddingOrchestrator) {
		if n > 0 {
			o.maxBatchTokens = n
		}
	}
}

// NewEmbeddingOrchestrator creates an orchestrator over the given
// embedding service and cache. Worker and batch limits are clamped to
// their hard ceilings regardless of options.
func NewEmbeddingOrchestrator(service driven.EmbeddingService, cache driven.EmbeddingCache, opts ...EmbedOption) *EmbeddingOrchestrator {
	o := &EmbeddingOrchestrator{
		service:        service,
		cache:          cache,
		policy:         retry.NewPolicy(retry.DefaultMaxAttempts, retry.DefaultBaseDelay),
		batchSize:      DefaultBatchSize,
		maxBatchTokens: DefaultMaxBatchTokens,
		workers:        DefaultEmbedWorkers,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.batchSize > MaxBatchSize {
		o.batchSize = MaxBatchSize
	}
	if o.workers > MaxEmbedWorkers {
		o.workers = MaxEmbedWorkers
	}

	return o
}

// Ping verifies the underlying embedding service is reachable with the
// configured credentials. Intended as a startup preflight.
func (o *EmbeddingOrchestrator) Ping(ctx context.Context) error {
	return o.service.Ping(ctx)
}

// embedBatch is one unit of work for the batch executor: a group of
// distinct fingerprints with their representative texts.
type embedBatch struct {
	index        int
	fingerprints []string
	texts        []string
}

// EmbedChunks resolves an embedding for every chunk, returning one
// result per input chunk in input order. No chunk is dropped and no
// fingerprint is embedded twice within one invocation.
func (o *EmbeddingOrchestrator) EmbedChunks(ctx context.Context, chunks []domain.Chunk) []domain.EmbedResult {
	if len(chunks) == 0 {
		return nil
	}

	model := o.service.ModelName()

	// 1. Fingerprint every chunk and deduplicate: identical text under
	// the same model shares one fingerprint, even across documents.
	fps := make([]string, len(chunks))
	firstText := make(map[string]string, len(chunks))
	var distinct []string
	for i, chunk := range chunks {
		fp := fingerprint.Compute(chunk.Content, model)
		fps[i] = fp
		if _, seen := firstText[fp]; !seen {
			firstText[fp] = chunk.Content
			distinct = append(distinct, fp)
		}
	}

	// 2. Partition distinct fingerprints into cache hits and misses.
	vectors := make(map[string][]float32, len(distinct))
	cached := make(map[string]bool, len(distinct))
	var misses []string
	for _, fp := range distinct {
		entry, err := o.cache.Get(ctx, fp)
		switch {
		case err == nil:
			vectors[fp] = entry.Vector
			cached[fp] = true
		case errors.Is(err, domain.ErrNotFound):
			misses = append(misses, fp)
		default:
			// A broken cache degrades to recomputation, never to a
			// failed run.
			logger.Warn("cache lookup failed for %s: %v", shortFP(fp), err)
			misses = append(misses, fp)
		}
	}

	logger.Info("embedding %d chunks: %d distinct, %d cached, %d to compute",
		len(chunks), len(distinct), len(distinct)-len(misses), len(misses))

	// 3. Batch the misses and dispatch under the worker ceiling.
	failures := make(map[string]*domain.PipelineError)
	if len(misses) > 0 {
		batches := o.buildBatches(misses, firstText)
		results := workpool.Run(ctx, batches, o.embedOneBatch, o.workers, domain.FailureEmbedding)

		for i, res := range results {
			batch := batches[i]
			if !res.OK() {
				// Bulkhead isolation: this batch alone fails; every
				// fingerprint in it carries the same classified cause.
				for _, fp := range batch.fingerprints {
					failures[fp] = res.Failure
				}
				continue
			}
			for j, fp := range batch.fingerprints {
				vectors[fp] = res.Value[j]
			}
		}
	}

	// 4. Reassemble in input order.
	out := make([]domain.EmbedResult, len(chunks))
	for i, chunk := range chunks {
		fp := fps[i]
		if vec, ok := vectors[fp]; ok {
			out[i] = domain.EmbedResult{Enriched: &domain.EnrichedChunk{
				Chunk:     chunk,
				Vector:    vec,
				Model:     model,
				FromCache: cached[fp],
			}}
			continue
		}
		if failure, ok := failures[fp]; ok {
			out[i] = domain.EmbedResult{Failure: failure}
			continue
		}
		// The API returned fewer vectors than inputs; surface rather
		// than drop.
		out[i] = domain.EmbedResult{Failure: domain.NewPipelineError(
			domain.FailureEmbedding,
			fmt.Sprintf("no embedding returned for chunk %s", chunk.ID),
			nil,
		)}
	}

	return out
}

// EmbedText embeds a single text through the cache and retry policy.
// Used for query-time embedding.
func (o *EmbeddingOrchestrator) EmbedText(ctx context.Context, text string) ([]float32, error) {
	model := o.service.ModelName()
	fp := fingerprint.Compute(text, model)

	if entry, err := o.cache.Get(ctx, fp); err == nil {
		return entry.Vector, nil
	}

	var vecs [][]float32
	err := o.policy.Do(ctx, "embed text", func(ctx context.Context) error {
		if err := o.waitLimiter(ctx); err != nil {
			return err
		}
		var callErr error
		vecs, callErr = o.service.EmbedBatch(ctx, []string{text})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}

	if _, err := o.cache.Put(ctx, fp, vecs[0], model); err != nil {
		logger.Warn("cache write failed for %s: %v", shortFP(fp), err)
	}
	return vecs[0], nil
}

// buildBatches groups fingerprints into API batches, preserving
// relative order. Batches are bounded both by chunk count and by
// estimated token volume; a single oversized text gets its own batch.
func (o *EmbeddingOrchestrator) buildBatches(misses []string, texts map[string]string) []embedBatch {
	var batches []embedBatch
	var cur embedBatch
	curTokens := 0

	flush := func() {
		if len(cur.fingerprints) > 0 {
			cur.index = len(batches)
			batches = append(batches, cur)
			cur = embedBatch{}
			curTokens = 0
		}
	}

	for _, fp := range misses {
		text := texts[fp]
		tokens := estimateTokens(text)

		if tokens > o.maxBatchTokens {
			flush()
			batches = append(batches, embedBatch{
				index:        len(batches),
				fingerprints: []string{fp},
				texts:        []string{text},
			})
			continue
		}

		if len(cur.fingerprints) >= o.batchSize || curTokens+tokens > o.maxBatchTokens {
			flush()
		}

		cur.fingerprints = append(cur.fingerprints, fp)
		cur.texts = append(cur.texts, text)
		curTokens += tokens
	}
	flush()

	return batches
}

// embedOneBatch performs one rate-limited, retried embedding API call.
func (o *EmbeddingOrchestrator) embedOneBatch(ctx context.Context, batch embedBatch) ([][]float32, error) {
	var vecs [][]float32

	label := fmt.Sprintf("embed batch %d (%d chunks)", batch.index, len(batch.texts))
	err := o.policy.Do(ctx, label, func(ctx context.Context) error {
		if err := o.waitLimiter(ctx); err != nil {
			return err
		}

		logger.Debug("%s: calling embedding API", label)
		var callErr error
		vecs, callErr = o.service.EmbedBatch(ctx, batch.texts)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if len(vecs) != len(batch.texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors",
			len(batch.texts), len(vecs))
	}

	// Persist each vector before reporting success so a later crash
	// still finds the work durable.
	model := o.service.ModelName()
	for i, fp := range batch.fingerprints {
		if _, err := o.cache.Put(ctx, fp, vecs[i], model); err != nil {
			logger.Warn("cache write failed for %s: %v", shortFP(fp), err)
		}
	}

	return vecs, nil
}

// waitLimiter blocks until the proactive throttle admits a request.
func (o *EmbeddingOrchestrator) waitLimiter(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

// estimateTokens approximates the token count of a text. Four
// characters per token is close enough for batch sizing.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// shortFP abbreviates a fingerprint for log lines.
func shortFP(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
