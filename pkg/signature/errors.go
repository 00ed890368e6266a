package signature

import "errors"

var (
	ErrNoSecret  = errors.New("signing secret not configured")
	ErrMissing   = errors.New("signature header missing")
	ErrMalformed = errors.New("signature header malformed")
	ErrMismatch  = errors.New("signature mismatch")
)
