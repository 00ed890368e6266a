package decisions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/storage"
)

// Domain errors for decision lookups.
var (
	ErrNotFound    = errors.New("decision not found")
	ErrInvalidHash = errors.New("hash must be 64 or 16 lowercase hex characters")
	ErrCorrupt     = errors.New("archived document does not match its hash")
)

// MapHTTPStatus maps decision errors to HTTP status codes, deferring to the
// record store mapping for store failures.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidHash):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorrupt):
		return http.StatusInternalServerError
	}
	if storage.IsStorageError(err) {
		return storage.MapHTTPStatus(err)
	}
	return records.MapHTTPStatus(err)
}
