package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMissingCredentials indicates a required API credential is absent.
	// This aborts a run before any work is dispatched.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrRateLimited indicates the API rate limit was exceeded.
	// Calls failing with this error are safe to retry after backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a temporary network or server failure.
	// Calls failing with this error are safe to retry after backoff.
	ErrTransient = errors.New("transient failure")
)

// IsRetryable reports whether an error is worth retrying with backoff.
// Only rate-limit and transient classifications qualify; everything
// else is treated as fatal for the current attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// FailureKind classifies pipeline failures by the stage that produced them.
type FailureKind string

const (
	// FailureExtraction covers PDF/text extraction failures.
	FailureExtraction FailureKind = "extraction"

	// FailureChunking covers chunk-splitting failures.
	FailureChunking FailureKind = "chunking"

	// FailureEmbedding covers embedding API failures after retries.
	FailureEmbedding FailureKind = "embedding"

	// FailureStorage covers vector store and cache persistence failures.
	FailureStorage FailureKind = "storage"

	// FailureConfiguration covers invalid or missing configuration.
	// Configuration failures are fatal at startup.
	FailureConfiguration FailureKind = "configuration"
)

// PipelineError is a classified failure attached to a chunk or batch.
// It carries the stage kind, a human-readable message and the original
// underlying cause for diagnostics. Failures are always surfaced to the
// caller alongside successes, never silently dropped.
type PipelineError struct {
	Kind    FailureKind
	Message string
	Err     error
}

// NewPipelineError creates a classified pipeline failure wrapping cause.
func NewPipelineError(kind FailureKind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// AsPipelineError converts any error into a *PipelineError, wrapping
// unclassified errors under the given default kind.
func AsPipelineError(err error, kind FailureKind, message string) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return NewPipelineError(kind, message, err)
}
