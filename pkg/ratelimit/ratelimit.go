// Package ratelimit applies per-client token buckets.
//
// A bucket holds up to Capacity tokens and refills continuously at
// Capacity per Window. Each request consumes one token.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, with a minimum of 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Round(time.Millisecond).Seconds()))
	return max(secs, 1)
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
