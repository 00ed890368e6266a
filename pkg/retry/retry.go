// Package retry runs an operation in an explicit bounded loop.
//
// Each attempt is counted, the context deadline is checked before every wait,
// and operations signal terminal failures with Permanent.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values below 1 mean 1.
	MaxAttempts int
	// Delay is the wait between attempts.
	Delay time.Duration
	// Jitter spreads Delay by up to this fraction in either direction. Zero disables it.
	Jitter float64
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// Do calls fn until it succeeds, returns a permanent error, exhausts
// p.MaxAttempts, or the next wait would pass the context deadline.
//
// Permanent errors are returned unwrapped. Every other failure is returned as
// an *Error whose chain includes ErrExhausted or ErrDeadline and the last
// error from fn.
func Do(ctx context.Context, p Policy, fn Func) error {
	attempts := max(p.MaxAttempts, 1)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return stop(attempt-1, ErrDeadline, last, err)
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		last = err

		if attempt == attempts {
			return stop(attempt, ErrExhausted, last, nil)
		}

		wait := p.wait(err)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return stop(attempt, ErrDeadline, last, nil)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return stop(attempt, ErrDeadline, last, ctx.Err())
		case <-timer.C:
		}
	}

	return stop(attempts, ErrExhausted, last, nil)
}

func (p Policy) wait(err error) time.Duration {
	var hint *hintError
	if errors.As(err, &hint) && hint.after > 0 {
		return hint.after
	}

	d := p.Delay
	if p.Jitter > 0 && d > 0 {
		spread := float64(d) * min(p.Jitter, 1)
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return max(d, 0)
}

func stop(attempts int, reason, last, ctxErr error) error {
	if last == nil {
		last = ctxErr
	}
	return &Error{Attempts: attempts, Reason: reason, Err: last}
}
