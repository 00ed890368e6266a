package notarization_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/JaimeStill/notary/internal/notarization"
	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/canonical"
	"github.com/JaimeStill/notary/pkg/nonce"
	"github.com/JaimeStill/notary/pkg/retry"
)

func TestMinimalSubmissionCreated(t *testing.T) {
	h := newHarness(t)
	body := h.payload(h.now.Unix(), "abcdefgh")

	rec, resp := h.submit(body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	if !resp.OK || resp.Code != notarization.CodeCreated {
		t.Fatalf("response: got %+v", resp)
	}
	if resp.IssueNumber != 1 || resp.IssueURL != "https://records.example.com/1" {
		t.Errorf("record: got #%d %s", resp.IssueNumber, resp.IssueURL)
	}

	p, err := picc.Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want, _, err := canonical.Hash(p.Content())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if resp.Hash != want.String() {
		t.Errorf("hash: got %s, want %s", resp.Hash, want)
	}
}

func TestResubmissionIsIdempotent(t *testing.T) {
	h := newHarness(t)

	rec1, first := h.submit(h.payload(h.now.Unix(), "nonce-one"))
	rec2, second := h.submit(h.payload(h.now.Unix()-10, "nonce-two"))

	if rec1.Code != http.StatusCreated || first.Code != notarization.CodeCreated {
		t.Fatalf("first: got %d %s", rec1.Code, first.Code)
	}
	if rec2.Code != http.StatusOK || second.Code != notarization.CodeIdempotent {
		t.Fatalf("second: got %d %s", rec2.Code, second.Code)
	}
	if first.Hash != second.Hash {
		t.Errorf("hash changed: %s vs %s", first.Hash, second.Hash)
	}
	if first.IssueNumber != second.IssueNumber || first.IssueURL != second.IssueURL {
		t.Errorf("record changed: #%d vs #%d", first.IssueNumber, second.IssueNumber)
	}
	if n := h.store.count(); n != 1 {
		t.Errorf("records: got %d, want 1", n)
	}
}

func TestChangedContentCreatesNewRecord(t *testing.T) {
	h := newHarness(t)

	_, first := h.submit(h.payload(h.now.Unix(), "nonce-one"))
	_, second := h.submit(h.payload(h.now.Unix(), "nonce-two", func(doc map[string]any) {
		decision(doc)["conclusion"] = "C "
	}))

	if second.Code != notarization.CodeCreated {
		t.Fatalf("second: got %s, want CREATED", second.Code)
	}
	if first.Hash == second.Hash {
		t.Error("whitespace change should change the hash")
	}
}

func TestBadSignature(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{"zero digest", "sha256=" + strings.Repeat("0", 64)},
		{"missing header", ""},
		{"missing prefix", strings.Repeat("a", 64)},
		{"uppercase hex", "sha256=" + strings.Repeat("A", 64)},
		{"wrong secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			body := h.payload(h.now.Unix(), "abcdefgh")

			sig := tt.sig
			if tt.name == "wrong secret" {
				sig = signatureFor([]byte("other-secret"), body)
			}

			rec, resp := h.send(body, sig)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
			if resp.OK || resp.Code != notarization.CodeBadSignature {
				t.Errorf("response: got %+v", resp)
			}
			if h.store.searches.Load() != 0 {
				t.Error("store should not be consulted")
			}
		})
	}
}

func TestSignatureCoversRawBytes(t *testing.T) {
	h := newHarness(t)
	body := h.payload(h.now.Unix(), "abcdefgh")
	sig := signatureFor([]byte(testSecret), body)

	spaced := append([]byte(" "), body...)
	rec, resp := h.send(spaced, sig)

	if rec.Code != http.StatusUnauthorized || resp.Code != notarization.CodeBadSignature {
		t.Errorf("re-serialized body accepted: %d %s", rec.Code, resp.Code)
	}
}

func TestTimestampWindow(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		want   int
	}{
		{"now", 0, http.StatusCreated},
		{"oldest accepted", -300, http.StatusCreated},
		{"too old", -301, http.StatusUnauthorized},
		{"newest accepted", 300, http.StatusCreated},
		{"too new", 301, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec, resp := h.submit(h.payload(h.now.Unix()+tt.offset, "abcdefgh"))

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.want, resp.Msg)
			}
			if tt.want == http.StatusUnauthorized && resp.Code != notarization.CodeTimestampWindow {
				t.Errorf("code: got %s, want TS_WINDOW", resp.Code)
			}
		})
	}
}

func TestNonceReuse(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.submit(h.payload(h.now.Unix(), "same-nonce"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first: got %d", rec.Code)
	}

	rec, resp := h.submit(h.payload(h.now.Unix(), "same-nonce", func(doc map[string]any) {
		decision(doc)["conclusion"] = "Something else"
	}))

	if rec.Code != http.StatusUnauthorized || resp.Code != notarization.CodeNonceReuse {
		t.Errorf("second: got %d %s, want 401 NONCE_REUSE", rec.Code, resp.Code)
	}
	if n := h.store.count(); n != 1 {
		t.Errorf("records: got %d, want 1", n)
	}
}

func TestNonceOutlivesTimestampWindow(t *testing.T) {
	var mu sync.Mutex
	current := time.Unix(1_760_000_000, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	h := newHarness(t, func(cfg *notarization.Config, deps *notarization.Deps) {
		cfg.TimestampWindow = "300s"
		cfg.NonceTTL = "600s"
		nonces := nonce.NewMemory(discard())
		nonces.SetClock(clock)
		deps.Nonces = nonces
		deps.Clock = clock
	})

	// stamped at the future edge of the window, so it stays acceptable
	// until just under twice the window has passed
	body := h.payload(current.Unix()+300, "replayed-nonce")

	rec, resp := h.submit(body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first: got %d %s", rec.Code, resp.Msg)
	}

	mu.Lock()
	current = current.Add(599 * time.Second)
	mu.Unlock()

	rec, resp = h.submit(body)
	if rec.Code != http.StatusUnauthorized || resp.Code != notarization.CodeNonceReuse {
		t.Errorf("replay: got %d %s, want 401 NONCE_REUSE", rec.Code, resp.Code)
	}
	if n := h.store.count(); n != 1 {
		t.Errorf("records: got %d, want 1", n)
	}
}

func TestNonceSpentBeforeValidation(t *testing.T) {
	h := newHarness(t)

	rec, resp := h.submit(h.payload(h.now.Unix(), "short"))
	if rec.Code != http.StatusBadRequest || resp.Code != notarization.CodeNonceInvalid {
		t.Fatalf("got %d %s, want 400 NONCE_INVALID", rec.Code, resp.Code)
	}

	rec, _ = h.submit(h.payload(h.now.Unix(), "same-nonce"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first: got %d", rec.Code)
	}

	invalid := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"fact with one url", func(doc map[string]any) {
			decision(doc)["premises"] = []any{map[string]any{
				"type":     "FACT",
				"text":     "A",
				"evidence": []string{"https://a.example.com"},
			}}
		}},
		{"bad confidence", func(doc map[string]any) { decision(doc)["confidence"] = "SURE" }},
		{"unknown property", func(doc map[string]any) { doc["extra"] = true }},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := h.submit(h.payload(h.now.Unix(), "same-nonce", tt.mutate))
			if rec.Code != http.StatusUnauthorized || resp.Code != notarization.CodeNonceReuse {
				t.Errorf("got %d %s, want 401 NONCE_REUSE", rec.Code, resp.Code)
			}
		})
	}

	// a payload rejected after registration still spends its nonce
	_, resp = h.submit(h.payload(h.now.Unix(), "spent-nonce", func(doc map[string]any) {
		decision(doc)["confidence"] = "SURE"
	}))
	if resp.Code != notarization.CodeConfidence {
		t.Fatalf("got %s, want CONFIDENCE_INVALID", resp.Code)
	}

	rec, resp = h.submit(h.payload(h.now.Unix(), "spent-nonce"))
	if rec.Code != http.StatusUnauthorized || resp.Code != notarization.CodeNonceReuse {
		t.Errorf("retry with spent nonce: got %d %s, want 401 NONCE_REUSE", rec.Code, resp.Code)
	}
}

func TestValidationCodes(t *testing.T) {
	premises := func(ps ...map[string]any) func(doc map[string]any) {
		return func(doc map[string]any) {
			list := make([]any, len(ps))
			for i, p := range ps {
				list[i] = p
			}
			decision(doc)["premises"] = list
		}
	}

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   notarization.Code
	}{
		{
			"unsupported schema version",
			func(doc map[string]any) { doc["schema_version"] = "PICC-2.0" },
			notarization.CodeSchemaVersion,
		},
		{
			"question too short",
			func(doc map[string]any) { decision(doc)["question"] = "Q?" },
			notarization.CodeFieldLength,
		},
		{
			"empty conclusion",
			func(doc map[string]any) { decision(doc)["conclusion"] = "" },
			notarization.CodeFieldLength,
		},
		{
			"no premises",
			premises(),
			notarization.CodeFieldLength,
		},
		{
			"bad confidence",
			func(doc map[string]any) { decision(doc)["confidence"] = "high" },
			notarization.CodeConfidence,
		},
		{
			"bad premise type",
			premises(map[string]any{"type": "GUESS", "text": "A"}),
			notarization.CodePremiseType,
		},
		{
			"fact with one url",
			premises(map[string]any{
				"type":     "FACT",
				"text":     "A",
				"evidence": []string{"https://a.example.com"},
			}),
			notarization.CodeFactEvidence,
		},
		{
			"fact with http url",
			premises(map[string]any{
				"type":     "FACT",
				"text":     "A",
				"evidence": []string{"http://a.example.com", "https://b.example.com"},
			}),
			notarization.CodeEvidenceHTTPS,
		},
		{
			"mixed case scheme",
			premises(map[string]any{
				"type":     "EXPERT_OPINION",
				"text":     "A",
				"evidence": []string{"HTTPS://a.example.com"},
			}),
			notarization.CodeEvidenceHTTPS,
		},
		{
			"short falsifier",
			func(doc map[string]any) { decision(doc)["falsifier"] = "nope" },
			notarization.CodeFalsifierLength,
		},
		{
			"unknown property",
			func(doc map[string]any) { doc["extra"] = true },
			notarization.CodeSchemaInvalid,
		},
		{
			"timestamp of wrong type",
			func(doc map[string]any) { doc["ts"] = "now" },
			notarization.CodeSchemaInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh", tt.mutate))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
			if resp.OK || resp.Code != tt.want {
				t.Errorf("code: got %s (%s), want %s", resp.Code, resp.Msg, tt.want)
			}
			if resp.Msg == "" {
				t.Error("msg should describe the violation")
			}
			if h.store.count() != 0 {
				t.Error("no record should be created")
			}
		})
	}
}

func TestFactWithTwoHTTPSURLsAccepted(t *testing.T) {
	h := newHarness(t)
	body := h.payload(h.now.Unix(), "abcdefgh", func(doc map[string]any) {
		decision(doc)["premises"] = []any{map[string]any{
			"type":     "FACT",
			"text":     "Measured",
			"evidence": []string{"https://a.example.com", "https://b.example.com"},
		}}
	})

	rec, resp := h.submit(body)
	if rec.Code != http.StatusCreated {
		t.Errorf("got %d %s (%s)", rec.Code, resp.Code, resp.Msg)
	}
}

func TestPayloadErrors(t *testing.T) {
	t.Run("wrong content type", func(t *testing.T) {
		h := newHarness(t)
		body := h.payload(h.now.Unix(), "abcdefgh")
		rec, resp := h.send(body, signatureFor([]byte(testSecret), body), func(r *http.Request) {
			r.Header.Set("Content-Type", "text/plain")
		})
		if rec.Code != http.StatusUnsupportedMediaType || resp.Code != notarization.CodeBadPayload {
			t.Errorf("got %d %s", rec.Code, resp.Code)
		}
	})

	t.Run("content type with charset", func(t *testing.T) {
		h := newHarness(t)
		body := h.payload(h.now.Unix(), "abcdefgh")
		rec, _ := h.send(body, signatureFor([]byte(testSecret), body), func(r *http.Request) {
			r.Header.Set("Content-Type", "application/json; charset=utf-8")
		})
		if rec.Code != http.StatusCreated {
			t.Errorf("got %d", rec.Code)
		}
	})

	t.Run("not json", func(t *testing.T) {
		h := newHarness(t)
		rec, resp := h.submit([]byte("not json"))
		if rec.Code != http.StatusBadRequest || resp.Code != notarization.CodeBadPayload {
			t.Errorf("got %d %s", rec.Code, resp.Code)
		}
	})

	t.Run("json array", func(t *testing.T) {
		h := newHarness(t)
		rec, resp := h.submit([]byte(`[1,2,3]`))
		if rec.Code != http.StatusBadRequest || resp.Code != notarization.CodeBadPayload {
			t.Errorf("got %d %s", rec.Code, resp.Code)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		h := newHarness(t, func(cfg *notarization.Config, _ *notarization.Deps) {
			cfg.MaxBodySize = "1KB"
		})
		body := h.payload(h.now.Unix(), "abcdefgh", func(doc map[string]any) {
			decision(doc)["conclusion"] = strings.Repeat("x", 2000)
		})
		rec, resp := h.submit(body)
		if rec.Code != http.StatusRequestEntityTooLarge || resp.Code != notarization.CodeBadPayload {
			t.Errorf("got %d %s", rec.Code, resp.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t)
	body := h.payload(h.now.Unix(), "abcdefgh")
	bad := "sha256=" + strings.Repeat("0", 64)

	for i := range 100 {
		rec, resp := h.send(body, bad)
		if resp.Code != notarization.CodeBadSignature {
			t.Fatalf("request %d: got %d %s", i+1, rec.Code, resp.Code)
		}
	}

	rec, resp := h.send(body, bad)
	if rec.Code != http.StatusTooManyRequests || resp.Code != notarization.CodeRateLimit {
		t.Fatalf("request 101: got %d %s, want 429 RATE_LIMIT", rec.Code, resp.Code)
	}

	secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || secs < 1 {
		t.Errorf("Retry-After: got %q", rec.Header().Get("Retry-After"))
	}

	rec, resp = h.send(body, bad, func(r *http.Request) {
		r.RemoteAddr = "198.51.100.7:4000"
	})
	if resp.Code != notarization.CodeBadSignature {
		t.Errorf("other client: got %d %s", rec.Code, resp.Code)
	}
}

func TestSearchFailureIsNotTreatedAsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", records.ErrUnavailable},
		{"rejected", retry.Permanent(fmt.Errorf("%w: bad credentials", records.ErrRejected))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.searchErr = func(int) error { return tt.err }

			rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))

			if rec.Code != http.StatusServiceUnavailable || resp.Code != notarization.CodeStoreUnavailable {
				t.Errorf("got %d %s, want 503 STORE_UNAVAILABLE", rec.Code, resp.Code)
			}
			if strings.Contains(resp.Msg, "write") {
				t.Errorf("message %q describes a write for a failed search", resp.Msg)
			}
			if h.store.creates.Load() != 0 {
				t.Error("create must not run after an indeterminate search")
			}
		})
	}
}

func TestWriteRetries(t *testing.T) {
	t.Run("transient then success", func(t *testing.T) {
		h := newHarness(t)
		h.store.createErr = func(_ context.Context, call int) error {
			if call < 3 {
				return records.ErrUnavailable
			}
			return nil
		}

		rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("got %d %s", rec.Code, resp.Code)
		}
		if n := h.store.creates.Load(); n != 3 {
			t.Errorf("attempts: got %d, want 3", n)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		h := newHarness(t)
		h.store.createErr = func(context.Context, int) error { return records.ErrUnavailable }

		rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))
		if rec.Code != http.StatusServiceUnavailable || resp.Code != notarization.CodeWriteFailed {
			t.Fatalf("got %d %s, want 503 WRITE_FAILED", rec.Code, resp.Code)
		}
		if n := h.store.creates.Load(); n != 3 {
			t.Errorf("attempts: got %d, want 3", n)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t)
		h.store.createErr = func(context.Context, int) error {
			return retry.Permanent(fmt.Errorf("%w: validation failed", records.ErrRejected))
		}

		rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))
		if rec.Code != http.StatusBadGateway || resp.Code != notarization.CodeWriteFailed {
			t.Fatalf("got %d %s, want 502 WRITE_FAILED", rec.Code, resp.Code)
		}
		if n := h.store.creates.Load(); n != 1 {
			t.Errorf("attempts: got %d, want 1", n)
		}
	})

	t.Run("delay beyond deadline", func(t *testing.T) {
		h := newHarness(t, func(cfg *notarization.Config, _ *notarization.Deps) {
			cfg.RequestTimeout = "200ms"
			cfg.WriteDelay = "5s"
		})
		h.store.createErr = func(context.Context, int) error { return records.ErrUnavailable }

		rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))
		if rec.Code != http.StatusGatewayTimeout || resp.Code != notarization.CodeTimeout {
			t.Fatalf("got %d %s, want 504 TIMEOUT", rec.Code, resp.Code)
		}
		if n := h.store.creates.Load(); n != 1 {
			t.Errorf("attempts: got %d, want 1", n)
		}
	})
}

func TestWriteHangsUntilDeadline(t *testing.T) {
	h := newHarness(t, func(cfg *notarization.Config, _ *notarization.Deps) {
		cfg.RequestTimeout = "50ms"
	})
	h.store.createErr = func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))

	if rec.Code != http.StatusGatewayTimeout || resp.Code != notarization.CodeTimeout {
		t.Errorf("got %d %s, want 504 TIMEOUT", rec.Code, resp.Code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("request took %v", elapsed)
	}
}

func TestDuplicateOnCreateResolvesExisting(t *testing.T) {
	h := newHarness(t)
	body := h.payload(h.now.Unix(), "abcdefgh")

	p, _ := picc.Decode(body)
	digest, canon, _ := canonical.Hash(p.Content())
	winner, err := h.store.Create(context.Background(), records.NewDraft(p.Content(), digest, canon))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// the first search misses the record, as if another process won the race
	h.store.searchErr = func(call int) error {
		if call == 1 {
			return errMiss
		}
		return nil
	}
	h.store.createErr = func(context.Context, int) error {
		return retry.Permanent(records.ErrDuplicate)
	}

	rec, resp := h.submit(body)

	if rec.Code != http.StatusOK || resp.Code != notarization.CodeIdempotent {
		t.Fatalf("got %d %s, want 200 IDEMPOTENT", rec.Code, resp.Code)
	}
	if resp.IssueNumber != winner.Number {
		t.Errorf("issue_number: got %d, want %d", resp.IssueNumber, winner.Number)
	}
}

func TestConcurrentSubmissionsCreateOnce(t *testing.T) {
	h := newHarness(t)
	h.store.delay = 50 * time.Millisecond

	const n = 10
	codes := make([]notarization.Code, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			_, resp := h.submit(h.payload(h.now.Unix(), fmt.Sprintf("nonce-%04d", i)))
			codes[i] = resp.Code
		})
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		switch c {
		case notarization.CodeCreated:
			created++
		case notarization.CodeIdempotent:
		default:
			t.Errorf("unexpected code %s", c)
		}
	}

	if created != 1 {
		t.Errorf("CREATED responses: got %d, want 1", created)
	}
	if got := h.store.count(); got != 1 {
		t.Errorf("records: got %d, want 1", got)
	}
}

func TestCanonicalArchive(t *testing.T) {
	archive := &memArchive{}
	h := newHarness(t, func(_ *notarization.Config, deps *notarization.Deps) {
		deps.Archive = archive
	})

	_, resp := h.submit(h.payload(h.now.Unix(), "nonce-one"))
	h.submit(h.payload(h.now.Unix(), "nonce-two"))

	if len(archive.uploads) != 1 {
		t.Fatalf("uploads: got %d, want 1", len(archive.uploads))
	}

	up := archive.uploads[0]
	if up.key != "decisions/"+resp.Hash+".json" {
		t.Errorf("key: got %s", up.key)
	}
	if canonical.Sum(up.body).String() != resp.Hash {
		t.Error("archived bytes should hash to the record hash")
	}
}

func TestArchiveFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t, func(_ *notarization.Config, deps *notarization.Deps) {
		deps.Archive = &memArchive{err: errors.New("storage down")}
	})

	rec, resp := h.submit(h.payload(h.now.Unix(), "abcdefgh"))
	if rec.Code != http.StatusCreated {
		t.Errorf("got %d %s", rec.Code, resp.Code)
	}
}

func TestSubmissionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h := newHarness(t, func(_ *notarization.Config, deps *notarization.Deps) {
		deps.Meter = provider.Meter("test")
	})

	h.submit(h.payload(h.now.Unix(), "nonce-one"))
	h.submit(h.payload(h.now.Unix(), "nonce-two"))
	h.send(h.payload(h.now.Unix(), "nonce-three"), "sha256="+strings.Repeat("0", 64))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	byCode := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "notary.submissions" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				code, _ := dp.Attributes.Value("code")
				byCode[code.AsString()] += dp.Value
			}
		}
	}

	want := map[string]int64{"CREATED": 1, "IDEMPOTENT": 1, "BAD_SIG": 1}
	for code, n := range want {
		if byCode[code] != n {
			t.Errorf("%s: got %d, want %d", code, byCode[code], n)
		}
	}
}
