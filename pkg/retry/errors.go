package retry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExhausted indicates every allowed attempt failed.
	ErrExhausted = errors.New("retry attempts exhausted")
	// ErrDeadline indicates the loop stopped because the context deadline
	// left no room for another attempt.
	ErrDeadline = errors.New("retry deadline exceeded")
)

// Error reports why a retry loop gave up.
type Error struct {
	Attempts int
	Reason   error
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Reason, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Reason, e.Err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

type hintError struct {
	err   error
	after time.Duration
}

func (e *hintError) Error() string { return e.err.Error() }
func (e *hintError) Unwrap() error { return e.err }

// After marks err as retryable after d, overriding the policy delay for the next wait.
func After(err error, d time.Duration) error {
	if err == nil {
		return nil
	}
	return &hintError{err: err, after: d}
}
