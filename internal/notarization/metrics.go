package notarization

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	submissions   metric.Int64Counter
	duration      metric.Float64Histogram
	storeAttempts metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("notarization")
	}

	var (
		m   metrics
		err error
	)

	m.submissions, err = meter.Int64Counter("notary.submissions",
		metric.WithDescription("Notarization submissions by result code"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram("notary.submission.duration",
		metric.WithDescription("Submission pipeline duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.storeAttempts, err = meter.Int64Counter("notary.store.attempts",
		metric.WithDescription("Record store create attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metrics) record(ctx context.Context, code Code, elapsed time.Duration) {
	outcome := "failure"
	if code == CodeCreated || code == CodeIdempotent {
		outcome = "success"
	}

	attrs := metric.WithAttributes(
		attribute.String("code", string(code)),
		attribute.String("outcome", outcome),
	)
	m.submissions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *metrics) attempt(ctx context.Context, ok bool) {
	m.storeAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}
