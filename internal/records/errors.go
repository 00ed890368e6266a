package records

import (
	"errors"
	"net/http"
)

// Store errors. ErrUnavailable is transient; ErrRejected is not.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("record already exists")
	ErrUnavailable = errors.New("record store unavailable")
	ErrRejected    = errors.New("record store rejected request")
	ErrUnsupported = errors.New("operation not supported by record store")
)

// MapHTTPStatus maps record store errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRejected):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
