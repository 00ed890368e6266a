// Package nonce records single-use request nonces with an expiry.
package nonce

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures so callers can tell them apart from replays.
var ErrUnavailable = errors.New("nonce store unavailable")

// Store is an atomic set-if-absent with expiry.
type Store interface {
	// SetIfAbsent records key for ttl and reports whether it was newly set.
	// A false result with a nil error means the key is already present.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
