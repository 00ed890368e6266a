package storage

import (
	"errors"
	"net/http"
)

// Archive errors. Keys look like decisions/<hash>.json; a key that is empty
// or climbs out of its prefix with ".." never reaches the container.
var (
	ErrNotFound    = errors.New("blob not found")
	ErrEmptyKey    = errors.New("storage key must not be empty")
	ErrInvalidKey  = errors.New("storage key contains invalid path segment")
	ErrUnavailable = errors.New("archive unavailable")
)

// IsStorageError reports whether err came from this package's sentinels.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyKey) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrUnavailable)
}

// MapHTTPStatus maps archive errors for the canonical download endpoint.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
