package api

import (
	"fmt"

	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/internal/decisions"
	"github.com/JaimeStill/notary/internal/notarization"
	"github.com/JaimeStill/notary/pkg/routes"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Notarization notarization.System
	Decisions    decisions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	deps := notarization.Deps{
		Records: runtime.Records,
		Nonces:  runtime.Nonces,
		Limiter: runtime.Limiter,
		Meter:   runtime.Telemetry.Meter(),
		Tracer:  runtime.Telemetry.Tracer(),
		Logger:  runtime.Logger,
	}

	var archive decisions.Downloader
	if runtime.Storage != nil {
		deps.Archive = runtime.Storage
		archive = runtime.Storage
	}

	gateway, err := notarization.New(&cfg.Gateway, deps)
	if err != nil {
		return nil, fmt.Errorf("notarization init failed: %w", err)
	}

	return &Domain{
		Notarization: gateway,
		Decisions: decisions.New(
			runtime.Records,
			archive,
			runtime.Logger,
			runtime.Pagination,
		),
	}, nil
}

// Routes returns the route groups of every domain handler.
func (d *Domain) Routes() []routes.Group {
	return []routes.Group{
		d.Notarization.Handler().Routes(),
		d.Decisions.Handler().Routes(),
	}
}
