package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/notary/pkg/lifecycle"
)

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Memory keeps one rate.Limiter per client in process memory.
type Memory struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	every    rate.Limit
	now      func() time.Time
	logger   *slog.Logger
}

// NewMemory creates a limiter allowing capacity requests per window for each key.
func NewMemory(capacity int, window time.Duration, logger *slog.Logger) *Memory {
	return &Memory{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		window:   window,
		every:    rate.Every(window / time.Duration(capacity)),
		now:      time.Now,
		logger:   logger.With("system", "ratelimit"),
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.every, m.capacity)}
		m.buckets[key] = b
	}
	b.seen = now
	m.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: m.window}, nil
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: int(b.limiter.TokensAt(now)),
	}, nil
}

// Len returns the number of tracked clients.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Prune drops buckets not used within idle and returns how many were removed.
// A bucket idle for a full window has refilled, so dropping it loses nothing.
func (m *Memory) Prune(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	removed := 0
	for key, b := range m.buckets {
		if b.seen.Before(cutoff) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Start prunes buckets idle for a full window every interval until the
// lifecycle context is cancelled.
func (m *Memory) Start(lc *lifecycle.Coordinator, interval time.Duration) {
	lc.OnShutdown(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				m.logger.Info("rate limit sweeper stopped")
				return
			case <-ticker.C:
				if n := m.Prune(m.window); n > 0 {
					m.logger.Debug("idle rate limit buckets removed", "count", n)
				}
			}
		}
	})
}
