// Package infrastructure provides core service initialization for application startup.
// It assembles the backing services the gateway depends on: logging, telemetry,
// the record store, replay and throttle state, and the optional archive.
package infrastructure

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/cache"
	"github.com/JaimeStill/notary/pkg/database"
	"github.com/JaimeStill/notary/pkg/lifecycle"
	"github.com/JaimeStill/notary/pkg/nonce"
	"github.com/JaimeStill/notary/pkg/ratelimit"
	"github.com/JaimeStill/notary/pkg/storage"
	"github.com/JaimeStill/notary/pkg/telemetry"
)

const sweepInterval = time.Minute

// Infrastructure holds the systems shared by all domain modules.
// Database, Storage and Cache are nil when their backends are not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Telemetry telemetry.System
	Database  database.System
	Storage   storage.System
	Cache     cache.System
	Records   records.Store
	Nonces    nonce.Store
	Limiter   ratelimit.Limiter

	sweepers []sweeper
}

type sweeper interface {
	Start(lc *lifecycle.Coordinator, interval time.Duration)
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
	}

	tel, err := telemetry.New(lc.Context(), &cfg.Telemetry, cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}
	infra.Telemetry = tel

	if cfg.Records.Backend == records.BackendPostgres {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.Storage.Enabled() {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	}

	if err := infra.initRecords(cfg); err != nil {
		return nil, fmt.Errorf("records init failed: %w", err)
	}

	infra.initState(cfg)

	return infra, nil
}

func (i *Infrastructure) initRecords(cfg *config.Config) error {
	store, err := records.New(&cfg.Records, i.connection(), i.Logger, cfg.API.Pagination)
	if err != nil {
		return err
	}
	i.Records = store
	return nil
}

// initState selects shared Redis state when a cache is configured and
// process-local state otherwise.
func (i *Infrastructure) initState(cfg *config.Config) {
	gw := &cfg.Gateway

	if cfg.Cache.Enabled() {
		c := cache.New(&cfg.Cache, i.Logger)
		i.Cache = c
		i.Nonces = nonce.NewRedis(c.Client(), c.Key("nonce", ""))
		i.Limiter = ratelimit.NewRedis(c.Client(), c.Key("rate", ""), gw.RateCapacity, gw.RateWindowDuration())
		i.Logger.Info("using shared replay and rate state", "addr", cfg.Cache.Addr)
		return
	}

	nonces := nonce.NewMemory(i.Logger)
	limiter := ratelimit.NewMemory(gw.RateCapacity, gw.RateWindowDuration(), i.Logger)

	i.Nonces = nonces
	i.Limiter = limiter
	i.sweepers = append(i.sweepers, nonces, limiter)
}

func (i *Infrastructure) connection() *sql.DB {
	if i.Database == nil {
		return nil
	}
	return i.Database.Connection()
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Telemetry.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("telemetry start failed: %w", err)
	}
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	if i.Cache != nil {
		if err := i.Cache.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
	}
	for _, s := range i.sweepers {
		s.Start(i.Lifecycle, sweepInterval)
	}
	return nil
}
