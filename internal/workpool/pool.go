// Package workpool provides a bounded-concurrency dispatcher shared by
// the pipeline stages. Each stage gets its own pool sizing because
// optimal concurrency differs: extraction and chunking are I/O bound and
// tolerate high fan-out, while the embedding stage is capped by an
// external API rate limit.
package workpool

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// MaxAutoWorkers caps the auto-sized worker count for I/O-bound work.
const MaxAutoWorkers = 32

// AutoWorkers returns the default worker count for I/O-bound stages:
// min(32, NumCPU+4).
func AutoWorkers() int {
	n := runtime.NumCPU() + 4
	if n > MaxAutoWorkers {
		n = MaxAutoWorkers
	}
	return n
}

// Result is the per-item outcome of a dispatched task. Exactly one of
// Value or Failure is meaningful; Failure is nil on success.
type Result[R any] struct {
	Value   R
	Failure *domain.PipelineError
}

// OK reports whether the task completed successfully.
func (r Result[R]) OK() bool {
	return r.Failure == nil
}

// Task processes one item. Errors returned here are captured per-item;
// they never cancel sibling tasks.
type Task[T, R any] func(ctx context.Context, item T) (R, error)

// Run dispatches fn over items with at most workers concurrent
// executions, returning one result per item in input order. A workers
// value <= 0 selects AutoWorkers(). A single-item input runs
// synchronously on the caller, so sequential logging stays readable
// when parallelism would provide no benefit.
//
// A failing or panicking task yields a failure for its item only;
// remaining items still run. Cancelling ctx stops new items from being
// dispatched but lets in-flight tasks finish.
func Run[T, R any](ctx context.Context, items []T, fn Task[T, R], workers int, kind domain.FailureKind) []Result[R] {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = AutoWorkers()
	}

	results := make([]Result[R], len(items))

	if len(items) == 1 {
		results[0] = runOne(ctx, items[0], fn, 0, kind)
		return results
	}

	g := &errgroup.Group{}
	g.SetLimit(workers)

	for i := range items {
		if ctx.Err() != nil {
			// Stop dispatching; items never started are reported as
			// failures so the caller sees one result per input.
			for j := i; j < len(items); j++ {
				results[j] = Result[R]{Failure: domain.NewPipelineError(
					kind, fmt.Sprintf("item %d not dispatched", j), ctx.Err())}
			}
			break
		}

		i := i
		g.Go(func() error {
			results[i] = runOne(ctx, items[i], fn, i, kind)
			return nil
		})
	}

	// Workers never return errors to the group, so Wait only blocks.
	_ = g.Wait()
	return results
}

// runOne executes a single task, converting errors and panics into a
// classified failure.
func runOne[T, R any](ctx context.Context, item T, fn Task[T, R], index int, kind domain.FailureKind) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Failure: domain.NewPipelineError(
				kind, fmt.Sprintf("item %d panicked", index), fmt.Errorf("%v", r))}
		}
	}()

	value, err := fn(ctx, item)
	if err != nil {
		return Result[R]{Failure: domain.AsPipelineError(err, kind, fmt.Sprintf("item %d failed", index))}
	}
	return Result[R]{Value: value}
}
