// Package retry runs backend calls with a per-attempt timeout and bounded
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
)

// Policy bounds retries of one logical call
type Policy struct {
	// MaxAttempts includes the first call. Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay bounds the wait after the first failure, doubled per attempt
	BaseDelay time.Duration
	// MaxDelay caps the backoff
	MaxDelay time.Duration
	// Timeout limits each attempt. Zero disables it.
	Timeout time.Duration
	// Permanent marks errors that must not be retried even though they carry
	// the unavailable sentinel, e.g. authentication failures. Optional.
	Permanent func(error) bool
}

// DefaultPolicy returns 3 attempts, 200ms base delay capped at 5s, 30s per attempt
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Backoff returns a jittered exponential backoff starting at BaseDelay and
// capped at MaxDelay. It returns nil when BaseDelay is not positive, meaning
// retries follow each other immediately.
func (p Policy) Backoff() *gax.Backoff {
	if p.BaseDelay <= 0 {
		return nil
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 || maxDelay < p.BaseDelay {
		maxDelay = p.BaseDelay
	}
	return &gax.Backoff{
		Initial:    p.BaseDelay,
		Max:        maxDelay,
		Multiplier: 2,
	}
}

// Do calls op until it succeeds or fails for good. Only errors matching
// unavailable are retried; an attempt that outlives Policy.Timeout counts as
// unavailable. Cancellation of ctx stops immediately and returns an error
// matching ctx.Err(), never unavailable. When attempts run out, the last
// error is returned.
func Do[T any](ctx context.Context, p Policy, unavailable error, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(1, p.MaxAttempts)
	logger := logging.From(ctx)
	backoff := p.Backoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := call(ctx, p.Timeout, unavailable, op)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, goerr.Wrap(ctxErr, "call aborted", goerr.V("attempt", attempt))
		}
		if !errors.Is(err, unavailable) || (p.Permanent != nil && p.Permanent(err)) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		var delay time.Duration
		if backoff != nil {
			delay = backoff.Pause()
		}
		logger.Warn("backend unavailable, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err)

		if err := gax.Sleep(ctx, delay); err != nil {
			return zero, goerr.Wrap(err, "call aborted during backoff", goerr.V("attempt", attempt))
		}
	}

	return zero, goerr.Wrap(lastErr, "retry attempts exhausted", goerr.V("attempts", attempts))
}

func call[T any](ctx context.Context, timeout time.Duration, unavailable error, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return resp, goerr.Wrap(errors.Join(unavailable, err), "attempt timed out", goerr.V("timeout", timeout))
	}
	return resp, err
}
