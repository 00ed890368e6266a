package notarization

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/retry"
)

// writer creates records with bounded retries inside the request deadline.
// Retrying a create is safe because a later submission of the same content
// resolves to whichever record landed first.
type writer struct {
	store   records.Store
	policy  retry.Policy
	metrics *metrics
	logger  *slog.Logger
}

func (w *writer) write(ctx context.Context, draft *records.Draft) (*records.Record, error) {
	var rec *records.Record

	policy := w.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		w.logger.Warn("record write failed, retrying",
			"label", draft.Label(),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		created, err := w.store.Create(ctx, draft)
		w.metrics.attempt(ctx, err == nil)
		if err != nil {
			return err
		}
		rec = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rec.Hash == "" {
		rec.Hash = draft.Hash.String()
	}
	return rec, nil
}
