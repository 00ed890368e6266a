package nonce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/notary/pkg/lifecycle"
)

// Memory is an in-process Store. Expired entries are removed lazily on access
// and periodically by a sweeper started with Start.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	logger  *slog.Logger
}

// NewMemory creates an empty in-process store.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
		logger:  logger.With("system", "nonce"),
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.entries[key]; ok && now.Before(expires) {
		return false, nil
	}

	m.entries[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of tracked entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, expires := range m.entries {
		if !now.Before(expires) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Start runs Sweep every interval until the lifecycle context is cancelled.
func (m *Memory) Start(lc *lifecycle.Coordinator, interval time.Duration) {
	lc.OnShutdown(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				m.logger.Info("nonce sweeper stopped")
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("expired nonces removed", "count", n)
				}
			}
		}
	})
}
