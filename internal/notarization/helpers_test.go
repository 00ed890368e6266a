package notarization_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/notary/internal/notarization"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/nonce"
	"github.com/JaimeStill/notary/pkg/ratelimit"
	"github.com/JaimeStill/notary/pkg/routes"
	"github.com/JaimeStill/notary/pkg/signature"
)

const testSecret = "test-secret"

var errMiss = errors.New("miss")

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory record store. searchErr and createErr, when set,
// run before the default behavior and may return a non-nil error to inject
// failures. A searchErr of errMiss reports an empty result.
type memStore struct {
	mu      sync.Mutex
	byLabel map[string][]records.Record
	next    int64

	searches atomic.Int32
	creates  atomic.Int32

	searchErr func(call int) error
	createErr func(ctx context.Context, call int) error
	delay     time.Duration
}

func newMemStore() *memStore {
	return &memStore{byLabel: make(map[string][]records.Record)}
}

func (s *memStore) Search(ctx context.Context, label string) ([]records.Record, error) {
	call := int(s.searches.Add(1))
	if s.searchErr != nil {
		if err := s.searchErr(call); errors.Is(err, errMiss) {
			return []records.Record{}, nil
		} else if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]records.Record(nil), s.byLabel[label]...), nil
}

func (s *memStore) Create(ctx context.Context, draft *records.Draft) (*records.Record, error) {
	call := int(s.creates.Add(1))
	if s.createErr != nil {
		if err := s.createErr(ctx, call); err != nil {
			return nil, err
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	rec := records.Record{
		Number:    s.next,
		URL:       fmt.Sprintf("https://records.example.com/%d", s.next),
		Hash:      draft.Hash.String(),
		Label:     draft.Label(),
		CreatedAt: time.Now(),
	}
	s.byLabel[rec.Label] = append(s.byLabel[rec.Label], rec)
	return &rec, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, recs := range s.byLabel {
		n += len(recs)
	}
	return n
}

type upload struct {
	key  string
	body []byte
}

type memArchive struct {
	mu      sync.Mutex
	uploads []upload
	err     error
}

func (a *memArchive) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if a.err != nil {
		return a.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, upload{key: key, body: data})
	return nil
}

type harness struct {
	t       *testing.T
	sys     notarization.System
	store   *memStore
	handler http.Handler
	now     time.Time
}

type option func(cfg *notarization.Config, deps *notarization.Deps)

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	now := time.Unix(1_760_000_000, 0)
	store := newMemStore()

	cfg := &notarization.Config{
		Secret:         testSecret,
		WriteDelay:     "1ms",
		RequestTimeout: "2s",
	}
	deps := notarization.Deps{
		Records: store,
		Nonces:  nonce.NewMemory(discard()),
		Logger:  discard(),
		Clock:   func() time.Time { return now },
	}

	for _, opt := range opts {
		opt(cfg, &deps)
	}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewMemory(cfg.RateCapacity, cfg.RateWindowDuration(), discard())
	}

	sys, err := notarization.New(cfg, deps)
	if err != nil {
		t.Fatalf("new system: %v", err)
	}

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())

	return &harness{t: t, sys: sys, store: store, handler: mux, now: now}
}

// payload builds a submission body around the minimal valid decision.
// mutate may edit the decoded document before it is encoded.
func (h *harness) payload(ts int64, nonceValue string, mutate ...func(doc map[string]any)) []byte {
	h.t.Helper()

	doc := map[string]any{
		"schema_version": "PICC-1.0",
		"ts":             ts,
		"nonce":          nonceValue,
		"decision": map[string]any{
			"question":   "Why?",
			"conclusion": "C",
			"confidence": "HIGH",
			"premises": []any{
				map[string]any{"type": "ASSUMPTION", "text": "A"},
			},
			"falsifier": "If X then invalid",
		},
	}
	for _, m := range mutate {
		m(doc)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		h.t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func (h *harness) send(body []byte, sig string, configure ...func(r *http.Request)) (*httptest.ResponseRecorder, notarization.Response) {
	h.t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/picc/notarize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(signature.Header, sig)
	}
	for _, c := range configure {
		c(req)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var resp notarization.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		h.t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

// submit signs body with the test secret and sends it.
func (h *harness) submit(body []byte) (*httptest.ResponseRecorder, notarization.Response) {
	h.t.Helper()
	return h.send(body, signatureFor([]byte(testSecret), body))
}

func decision(doc map[string]any) map[string]any {
	return doc["decision"].(map[string]any)
}

func signatureFor(secret, body []byte) string {
	return signature.Sign(secret, body)
}
