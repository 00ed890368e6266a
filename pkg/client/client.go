// Package client submits signed decisions to a notary gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/pkg/canonical"
	"github.com/JaimeStill/notary/pkg/retry"
	"github.com/JaimeStill/notary/pkg/signature"
)

// NotarizePath is appended to the base URL for submissions.
const NotarizePath = "/picc/notarize"

// Result is a successful submission.
type Result struct {
	StatusCode  int    `json:"-"`
	OK          bool   `json:"ok"`
	Code        string `json:"code"`
	IssueURL    string `json:"issue_url"`
	IssueNumber int64  `json:"issue_number"`
	Hash        string `json:"hash"`
}

// Created reports whether this submission created the record.
func (r *Result) Created() bool {
	return r.StatusCode == http.StatusCreated
}

// Error is a rejected submission.
type Error struct {
	StatusCode int
	Code       string
	Msg        string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notary: status %d", e.StatusCode)
	}
	return fmt.Sprintf("notary: %s (%d): %s", e.Code, e.StatusCode, e.Msg)
}

// Retryable reports whether the gateway may accept the same decision later.
func (e *Error) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client signs and submits decisions.
type Client struct {
	baseURL string
	secret  []byte
	http    *http.Client
	policy  retry.Policy
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the attempt budget and base delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.policy.MaxAttempts = attempts
		c.policy.Delay = delay
	}
}

// WithClock overrides the clock used to stamp ts.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for retry messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the API rooted at baseURL, for example
// https://notary.example.com/api.
func New(baseURL, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		http:    &http.Client{Timeout: 30 * time.Second},
		policy: retry.Policy{
			MaxAttempts: 3,
			Delay:       time.Second,
			Jitter:      0.1,
		},
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	logger := c.logger
	c.policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("submission failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	return c
}

// Submit sends p to the gateway. Each attempt carries a fresh ts and nonce,
// so a retried request is never rejected as a replay.
func (c *Client) Submit(ctx context.Context, p picc.Payload) (*Result, error) {
	if p.SchemaVersion == "" {
		p.SchemaVersion = picc.SchemaVersion
	}

	var result *Result
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		p.Timestamp = c.now().Unix()
		p.Nonce = uuid.NewString()

		res, err := c.send(ctx, &p)
		if err != nil {
			return classify(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Hash returns the content hash the gateway will assign to p.
func Hash(p *picc.Payload) (canonical.Digest, error) {
	if p.SchemaVersion == "" {
		p.SchemaVersion = picc.SchemaVersion
	}
	digest, _, err := canonical.Hash(p.Content())
	return digest, err
}

func (c *Client) send(ctx context.Context, p *picc.Payload) (*Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+NotarizePath, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.Header, signature.Sign(c.secret, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var res Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		res.StatusCode = resp.StatusCode
		return &res, nil
	}

	var envelope struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	json.Unmarshal(data, &envelope)

	return nil, &Error{
		StatusCode: resp.StatusCode,
		Code:       envelope.Code,
		Msg:        envelope.Msg,
		RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
	}
}

func classify(err error) error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if !apiErr.Retryable() {
		return retry.Permanent(err)
	}
	if apiErr.RetryAfter > 0 {
		return retry.After(err, apiErr.RetryAfter)
	}
	return err
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
