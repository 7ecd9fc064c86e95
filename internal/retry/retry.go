// Package retry wraps flaky external calls with bounded retries and
// exponential backoff.
//
// Classification is by typed errors rather than string or status-code
// sniffing: adapters wrap their failures with domain.ErrRateLimited or
// domain.ErrTransient to mark them retryable. Anything else is fatal
// and surfaces immediately without consuming retry budget.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/corail-labs/pdfvector/internal/core/domain"
	"github.com/corail-labs/pdfvector/internal/logger"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// jitterFraction is the share of each delay randomised to avoid
// thundering-herd re-submission across concurrent workers.
const jitterFraction = 0.25

// Policy configures retry behaviour for a call site.
type Policy struct {
	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the first retry; it doubles on each
	// subsequent retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// sleep is replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy creates a policy, filling zero fields with defaults.
func NewPolicy(maxAttempts int, baseDelay time.Duration) Policy {
	p := Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	p.sleep = sleepCtx
	return p
}

// Do invokes fn, retrying on retryable failures with exponential
// backoff and jitter. The last underlying cause is returned once the
// attempt budget is exhausted. Fatal errors return immediately.
func (p Policy) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	if p.sleep == nil {
		p.sleep = sleepCtx
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return err
		}

		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}

		wait := withJitter(delay)
		logger.Warn("%s: attempt %d/%d failed (%v), retrying in %s",
			label, attempt, p.MaxAttempts, err, wait.Round(time.Millisecond))

		if err := p.sleep(ctx, wait); err != nil {
			return err
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", label, p.MaxAttempts, lastErr)
}

// withJitter randomises a delay by ±jitterFraction.
func withJitter(d time.Duration) time.Duration {
	spread := float64(d) * jitterFraction
	offset := (rand.Float64()*2 - 1) * spread
	return time.Duration(float64(d) + offset)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
