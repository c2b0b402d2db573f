package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/types"
)

const (
	defaultStepAttempts = 3
	defaultStepTimeout  = 5 * time.Minute
	retryBackoffBase    = 500 * time.Millisecond
	retryBackoffMax     = 10 * time.Second
)

// step is one unit of work in a lifecycle operation. Steps run in order;
// the first fatal failure aborts the whole operation with no rollback.
type step struct {
	name string

	// attempts bounds retries for retryable failures. Zero means
	// defaultStepAttempts.
	attempts int

	// timeout bounds each attempt. Zero means defaultStepTimeout.
	timeout time.Duration

	run func(ctx context.Context) error
}

// retryableError marks a step failure as worth another attempt. Anything
// not wrapped is fatal on first occurrence.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// retryable wraps an error so the step engine retries it.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// runSteps drives the steps for one operation. Each step attempt gets its
// own timeout; retryable failures back off exponentially until the attempt
// budget is spent. Returns a StepFailureError naming the step that stopped
// the operation.
func runSteps(ctx context.Context, logger log.Logger, sink LogSink, rollupID string, steps []step) error {
	if sink == nil {
		sink = noopSink{}
	}

	for _, s := range steps {
		attempts := s.attempts
		if attempts <= 0 {
			attempts = defaultStepAttempts
		}
		timeout := s.timeout
		if timeout <= 0 {
			timeout = defaultStepTimeout
		}

		sink.AppendLog(rollupID, fmt.Sprintf("step %s: running", s.name))

		var lastErr error
		for attempt := 1; attempt <= attempts; attempt++ {
			stepCtx, cancel := context.WithTimeout(ctx, timeout)
			err := s.run(stepCtx)
			timedOut := stepCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil
			cancel()

			if err == nil {
				lastErr = nil
				break
			}

			if ctx.Err() != nil {
				sink.AppendLog(rollupID, fmt.Sprintf("step %s: canceled", s.name))
				return types.NewStepFailureError(s.name, ctx.Err())
			}

			if timedOut {
				sink.AppendLog(rollupID, fmt.Sprintf("step %s: timed out after %s", s.name, timeout))
				return types.NewStepTimeoutError(s.name, err)
			}

			if !isRetryable(err) {
				sink.AppendLog(rollupID, fmt.Sprintf("step %s: failed: %v", s.name, err))
				return types.NewStepFailureError(s.name, err)
			}

			lastErr = err
			if attempt < attempts {
				backoff := backoffFor(attempt)
				logger.Warn("Step failed, retrying",
					log.Str("rollup", rollupID),
					log.Str("step", s.name),
					log.Int("attempt", attempt),
					log.Duration("backoff", backoff),
					log.Err(err))
				sink.AppendLog(rollupID, fmt.Sprintf("step %s: attempt %d/%d failed, retrying in %s", s.name, attempt, attempts, backoff))

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return types.NewStepFailureError(s.name, ctx.Err())
				}
			}
		}

		if lastErr != nil {
			sink.AppendLog(rollupID, fmt.Sprintf("step %s: failed after %d attempts: %v", s.name, attempts, lastErr))
			return types.NewStepFailureError(s.name, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr))
		}

		sink.AppendLog(rollupID, fmt.Sprintf("step %s: succeeded", s.name))
	}

	return nil
}

func backoffFor(attempt int) time.Duration {
	backoff := retryBackoffBase << (attempt - 1)
	if backoff > retryBackoffMax {
		backoff = retryBackoffMax
	}
	return backoff
}
