// Package cache provides a Redis client with lifecycle coordination.
// It backs the shared nonce store and rate limiter when the gateway runs
// as more than one process.
package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/notary/pkg/lifecycle"
)

// System manages a Redis client and its lifecycle.
type System interface {
	// Client returns the underlying Redis client.
	Client() redis.UniversalClient
	// Key namespaces name under the configured prefix.
	Key(parts ...string) string
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type cache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	cfg    *Config
}

// New creates a cache system. No connection is made until Start.
func New(cfg *Config, logger *slog.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeoutDuration(),
	})

	return &cache{
		client: client,
		prefix: cfg.Prefix,
		logger: logger.With("system", "cache"),
		cfg:    cfg,
	}
}

func (c *cache) Client() redis.UniversalClient {
	return c.client
}

func (c *cache) Key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (c *cache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection", "addr", c.cfg.Addr)

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), c.cfg.DialTimeoutDuration())
		defer cancel()

		if err := c.client.Ping(pingCtx).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return
		}

		c.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.logger.Info("closing cache connection")

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}
