// Package notarization accepts signed decision submissions and turns each
// distinct decision into exactly one record.
//
// Stages run in a fixed order: rate limit, signature, decode, timestamp,
// nonce, validate, schema, hash, resolve, write, archive. Each stage either
// passes or ends the request with an *Error. A nonce is spent once it is
// registered, even when a later stage rejects the payload.
package notarization

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/canonical"
	"github.com/JaimeStill/notary/pkg/formatting"
	"github.com/JaimeStill/notary/pkg/nonce"
	"github.com/JaimeStill/notary/pkg/ratelimit"
	"github.com/JaimeStill/notary/pkg/retry"
	"github.com/JaimeStill/notary/pkg/signature"
)

// System runs the notarization pipeline.
type System interface {
	// Submit runs every stage for one request. Failures are returned as *Error.
	Submit(ctx context.Context, sub Submission) (*Result, error)
	Handler() *Handler
}

// Submission is one inbound request. Body is read only after the client
// passes the rate limit.
type Submission struct {
	Body        io.Reader
	ContentType string
	Signature   string
	Client      string
	RequestID   string
}

// Result identifies the record a submission resolved to.
type Result struct {
	Code   Code
	Record records.Record
	Hash   canonical.Digest
}

// Status returns the HTTP status for a successful result.
func (r *Result) Status() int {
	if r.Code == CodeCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

// Archive receives the canonical form of each new record.
// storage.System satisfies it.
type Archive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Deps are the collaborators of the pipeline. Archive, Meter, Tracer and
// Clock are optional.
type Deps struct {
	Records records.Store
	Nonces  nonce.Store
	Limiter ratelimit.Limiter
	Archive Archive
	Meter   metric.Meter
	Tracer  trace.Tracer
	Logger  *slog.Logger
	Clock   func() time.Time
}

type gateway struct {
	secret     []byte
	window     time.Duration
	nonceTTL   time.Duration
	timeout    time.Duration
	maxBody    int64
	trustProxy bool

	nonces   nonce.Store
	limiter  ratelimit.Limiter
	archive  Archive
	schema   *picc.Schema
	resolver *resolver
	writer   *writer
	inflight singleflight.Group

	metrics *metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the pipeline from a finalized config.
func New(cfg *Config, deps Deps) (System, error) {
	if deps.Records == nil || deps.Nonces == nil || deps.Limiter == nil {
		return nil, fmt.Errorf("records, nonces and limiter are required")
	}

	schema, err := picc.CompileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("notarization")
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	logger := deps.Logger.With("system", "notarization")

	return &gateway{
		secret:     []byte(cfg.Secret),
		window:     cfg.TimestampWindowDuration(),
		nonceTTL:   cfg.NonceTTLDuration(),
		timeout:    cfg.RequestTimeoutDuration(),
		maxBody:    cfg.MaxBodySizeBytes(),
		trustProxy: cfg.TrustProxy,
		nonces:     deps.Nonces,
		limiter:    deps.Limiter,
		archive:    deps.Archive,
		schema:     schema,
		resolver:   &resolver{store: deps.Records, logger: logger},
		writer: &writer{
			store: deps.Records,
			policy: retry.Policy{
				MaxAttempts: cfg.WriteAttempts,
				Delay:       cfg.WriteDelayDuration(),
				Jitter:      cfg.WriteJitterFraction(),
			},
			metrics: m,
			logger:  logger,
		},
		metrics: m,
		tracer:  tracer,
		logger:  logger,
		now:     now,
	}, nil
}

func (g *gateway) Handler() *Handler {
	return NewHandler(g, g.trustProxy)
}

func (g *gateway) Submit(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx, span := g.tracer.Start(ctx, "notarization.submit",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("client", sub.Client)),
	)
	defer span.End()

	res, err := g.run(ctx, sub)

	logger := g.logger.With("client", sub.Client, "request_id", sub.RequestID)
	if err != nil {
		e := AsError(err)
		g.metrics.record(ctx, e.Code, time.Since(start))
		span.SetStatus(codes.Error, string(e.Code))
		span.RecordError(err)

		level := slog.LevelInfo
		if e.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "submission rejected", "code", e.Code, "status", e.Status, "error", err)
		return nil, e
	}

	g.metrics.record(ctx, res.Code, time.Since(start))
	span.SetAttributes(
		attribute.String("code", string(res.Code)),
		attribute.String("hash", res.Hash.String()),
	)
	logger.Info("submission accepted", "code", res.Code, "hash", res.Hash, "issue_number", res.Record.Number)
	return res, nil
}

func (g *gateway) run(ctx context.Context, sub Submission) (*Result, error) {
	if err := g.admit(ctx, sub.Client); err != nil {
		return nil, err
	}

	if err := checkContentType(sub.ContentType); err != nil {
		return nil, err
	}

	body, err := g.read(sub.Body)
	if err != nil {
		return nil, err
	}

	if err := signature.Verify(g.secret, body, sub.Signature); err != nil {
		return nil, fail(CodeBadSignature, http.StatusUnauthorized, "signature verification failed", err)
	}

	payload, err := picc.Decode(body)
	if err != nil {
		var verr *picc.ValidationError
		if errors.As(err, &verr) {
			return nil, violationError(verr)
		}
		return nil, fail(CodeBadPayload, http.StatusBadRequest, "body must be a json object", err)
	}

	if err := g.checkTimestamp(payload.Timestamp); err != nil {
		return nil, err
	}

	if err := picc.CheckNonce(payload.Nonce); err != nil {
		return nil, AsError(err)
	}

	if err := g.registerNonce(ctx, payload.Nonce); err != nil {
		return nil, err
	}

	if err := picc.Validate(payload); err != nil {
		return nil, AsError(err)
	}

	if err := g.schema.Validate(body); err != nil {
		return nil, AsError(err)
	}

	content := payload.Content()
	digest, canon, err := canonical.Hash(content)
	if err != nil {
		return nil, fail(CodeInternal, http.StatusInternalServerError, "internal error", err)
	}

	draft := records.NewDraft(content, digest, canon)

	rec, code, err := g.settle(ctx, draft)
	if err != nil {
		return nil, storeError(err)
	}

	if code == CodeCreated {
		g.store(ctx, draft)
	}

	return &Result{Code: code, Record: *rec, Hash: digest}, nil
}

func (g *gateway) admit(ctx context.Context, client string) error {
	decision, err := g.limiter.Allow(ctx, client)
	if err != nil {
		g.logger.Warn("rate limiter unavailable, admitting request", "client", client, "error", err)
		return nil
	}
	if !decision.Allowed {
		e := fail(CodeRateLimit, http.StatusTooManyRequests, "rate limit exceeded", nil)
		e.RetryAfter = decision.RetryAfter
		return e
	}
	return nil
}

func checkContentType(value string) error {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil || mediaType != "application/json" {
		return fail(CodeBadPayload, http.StatusUnsupportedMediaType, "content type must be application/json", err)
	}
	return nil
}

func (g *gateway) read(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, fail(CodeBadPayload, http.StatusBadRequest, "empty body", nil)
	}

	data, err := io.ReadAll(io.LimitReader(body, g.maxBody+1))
	if err != nil {
		return nil, fail(CodeBadPayload, http.StatusBadRequest, "body could not be read", err)
	}
	if int64(len(data)) > g.maxBody {
		return nil, fail(CodeBadPayload, http.StatusRequestEntityTooLarge, "body exceeds "+formatting.FormatBytes(g.maxBody, 0), nil)
	}
	return data, nil
}

func (g *gateway) checkTimestamp(ts int64) error {
	skew := g.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(g.window/time.Second) {
		return fail(CodeTimestampWindow, http.StatusUnauthorized,
			fmt.Sprintf("timestamp outside %s window", g.window), nil)
	}
	return nil
}

func (g *gateway) registerNonce(ctx context.Context, value string) error {
	fresh, err := g.nonces.SetIfAbsent(ctx, value, g.nonceTTL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fail(CodeStoreUnavailable, http.StatusServiceUnavailable, "nonce store unavailable", err)
	}
	if !fresh {
		return fail(CodeNonceReuse, http.StatusUnauthorized, "nonce already used", nil)
	}
	return nil
}

type settlement struct {
	record  *records.Record
	created bool
}

// settle resolves the draft's label and writes a record when none exists.
// Concurrent submissions of the same label in this process share one
// resolve-and-write; only the caller that ran it can report CREATED.
func (g *gateway) settle(ctx context.Context, draft *records.Draft) (*records.Record, Code, error) {
	ran := false
	v, err, _ := g.inflight.Do(draft.Label(), func() (any, error) {
		ran = true
		return g.resolveOrWrite(ctx, draft)
	})
	if err != nil {
		return nil, "", err
	}

	s := v.(settlement)
	rec := *s.record
	if s.created && ran {
		return &rec, CodeCreated, nil
	}
	return &rec, CodeIdempotent, nil
}

func (g *gateway) resolveOrWrite(ctx context.Context, draft *records.Draft) (settlement, error) {
	existing, err := g.resolver.resolve(ctx, draft.Hash)
	if err != nil {
		return settlement{}, err
	}
	if existing != nil {
		return settlement{record: existing}, nil
	}

	created, err := g.writer.write(ctx, draft)
	if errors.Is(err, records.ErrDuplicate) {
		existing, rerr := g.resolver.resolve(ctx, draft.Hash)
		if rerr != nil {
			return settlement{}, rerr
		}
		if existing != nil {
			return settlement{record: existing}, nil
		}
	}
	if err != nil {
		return settlement{}, err
	}

	return settlement{record: created, created: true}, nil
}

// store archives the canonical form of a new record. Failures are logged only.
func (g *gateway) store(ctx context.Context, draft *records.Draft) {
	if g.archive == nil {
		return
	}

	key := records.ArchiveKey(draft.Hash.String())
	if err := g.archive.Upload(ctx, key, bytes.NewReader(draft.Canonical), "application/json"); err != nil {
		g.logger.Warn("canonical archive failed", "key", key, "error", err)
	}
}

func storeError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, retry.ErrDeadline):
		return fail(CodeTimeout, http.StatusGatewayTimeout, "request deadline exceeded", err)
	case errors.Is(err, ErrStoreUnavailable):
		// search failures wrap the store error too, so this precedes ErrRejected
		return fail(CodeStoreUnavailable, http.StatusServiceUnavailable, "record store unavailable", err)
	case errors.Is(err, records.ErrRejected):
		return fail(CodeWriteFailed, http.StatusBadGateway, "record store rejected the write", err)
	case errors.Is(err, retry.ErrExhausted), errors.Is(err, records.ErrDuplicate):
		return fail(CodeWriteFailed, http.StatusServiceUnavailable, "record write failed", err)
	}
	return fail(CodeInternal, http.StatusInternalServerError, "internal error", err)
}
