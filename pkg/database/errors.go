package database

import "errors"

// ErrNotReady wraps the final ping error when the pool never came up.
var ErrNotReady = errors.New("database not ready")
