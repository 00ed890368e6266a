package notarization

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/canonical"
)

// resolver looks up existing records by hash label.
//
// A search error is never read as "not found". Creating on an indeterminate
// answer is how duplicates happen, so the caller gets ErrStoreUnavailable and
// may retry the whole submission.
type resolver struct {
	store  records.Store
	logger *slog.Logger
}

// resolve returns the record for digest, or nil when the store
// authoritatively reports none.
func (r *resolver) resolve(ctx context.Context, digest canonical.Digest) (*records.Record, error) {
	label := digest.Label()

	found, err := r.store.Search(ctx, label)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if len(found) == 0 {
		return nil, nil
	}
	if len(found) > 1 {
		r.logger.Warn("multiple records share a label", "label", label, "count", len(found))
	}

	return pick(found, digest, r.logger), nil
}

// pick prefers the oldest record whose stored hash matches digest exactly.
// Records without a readable hash match on label alone.
func pick(found []records.Record, digest canonical.Digest, logger *slog.Logger) *records.Record {
	for i := range found {
		if found[i].Hash == digest.String() {
			return &found[i]
		}
	}

	rec := found[0]
	if rec.Hash != "" {
		logger.Warn("label collision", "label", digest.Label(), "hash", digest, "stored", rec.Hash)
	}
	rec.Hash = digest.String()
	return &rec
}
