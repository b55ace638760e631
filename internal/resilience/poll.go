package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// PollConfig bounds a polling loop. Zero MaxAttempts or Timeout means that
// bound is not applied; at least one should be set.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration

	// Immediate checks once before the first sleep.
	Immediate bool
}

// PollExhaustedError is returned when a poll runs out of attempts or time
// before the condition is met.
type PollExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *PollExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("poll exhausted after %d attempts (%s): %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
	}
	return fmt.Sprintf("poll exhausted after %d attempts (%s)", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

func (e *PollExhaustedError) Unwrap() error { return e.Err }

// PollFunc checks the polled condition. done=true stops polling with val.
// A non-nil error stops polling immediately.
type PollFunc[T any] func(ctx context.Context, attempt int) (val T, done bool, err error)

// Poll calls fn on a fixed interval until it reports done, returns an error,
// or the attempt/time budget is spent. Cancellation of the parent ctx is
// returned as-is; running out of budget yields *PollExhaustedError.
func Poll[T any](ctx context.Context, cfg PollConfig, fn PollFunc[T]) (T, error) {
	var zero T
	start := time.Now()

	pollCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	attempts := 0
	for {
		if attempts > 0 || !cfg.Immediate {
			if !sleep(pollCtx, cfg.Interval) {
				if ctx.Err() != nil {
					return zero, eris.Wrap(ctx.Err(), "poll cancelled")
				}
				return zero, &PollExhaustedError{Attempts: attempts, Elapsed: time.Since(start), Err: pollCtx.Err()}
			}
		}

		attempts++
		val, done, err := fn(pollCtx, attempts)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return zero, &PollExhaustedError{Attempts: attempts, Elapsed: time.Since(start), Err: err}
			}
			return zero, err
		}
		if done {
			return val, nil
		}
		if cfg.MaxAttempts > 0 && attempts >= cfg.MaxAttempts {
			return zero, &PollExhaustedError{Attempts: attempts, Elapsed: time.Since(start)}
		}
	}
}
