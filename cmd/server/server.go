package main

import (
	"context"
	"time"

	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/internal/infrastructure"
)

// Server owns the gateway process: shared infrastructure, the mounted
// modules and the HTTP listener.
type Server struct {
	infra           *infrastructure.Infrastructure
	modules         *Modules
	http            *httpServer
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"modules", router.Prefixes(),
		"version", cfg.Version,
		"records", cfg.Records.Backend,
		"archive", infra.Storage != nil,
	)

	return &Server{
		infra:           infra,
		modules:         modules,
		http:            newHTTPServer(&cfg.Server, router, infra.Logger),
		shutdownTimeout: cfg.ShutdownTimeoutDuration(),
	}, nil
}

// Run starts every subsystem, blocks until ctx is cancelled, then drains.
func (s *Server) Run(ctx context.Context) error {
	s.infra.Logger.Info("starting notary")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		start := time.Now()
		s.infra.Lifecycle.WaitForStartup()
		if ctx.Err() == nil {
			s.infra.Logger.Info("gateway ready", "startup", time.Since(start))
		}
	}()

	<-ctx.Done()

	s.infra.Logger.Info("initiating shutdown", "timeout", s.shutdownTimeout)
	if err := s.infra.Lifecycle.Shutdown(s.shutdownTimeout); err != nil {
		return err
	}
	s.infra.Logger.Info("notary stopped")
	return nil
}
