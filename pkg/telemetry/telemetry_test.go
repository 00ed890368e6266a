package telemetry_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/notary/pkg/lifecycle"
	"github.com/JaimeStill/notary/pkg/telemetry"
)

func TestDisabledUsesNoop(t *testing.T) {
	cfg := &telemetry.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	sys, err := telemetry.New(context.Background(), cfg, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	_, span := sys.Tracer().Start(context.Background(), "op")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer should not produce valid span contexts")
	}
	span.End()

	counter, err := sys.Meter().Int64Counter("test.counter")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 1)

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := lc.Shutdown(time.Second); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := telemetry.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Endpoint != "localhost:4317" {
		t.Errorf("endpoint: got %s", cfg.Endpoint)
	}
	if cfg.ServiceName != "notary" {
		t.Errorf("service_name: got %s", cfg.ServiceName)
	}
	if cfg.ExportIntervalDuration() != 15*time.Second {
		t.Errorf("export_interval: got %v", cfg.ExportIntervalDuration())
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_OTEL_ENABLED", "true")
	t.Setenv("TEST_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("TEST_OTEL_SAMPLE_RATE", "0.25")

	cfg := telemetry.Config{}
	err := cfg.Finalize(&telemetry.Env{
		Enabled:    "TEST_OTEL_ENABLED",
		Endpoint:   "TEST_OTEL_ENDPOINT",
		SampleRate: "TEST_OTEL_SAMPLE_RATE",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if !cfg.Enabled || cfg.Endpoint != "collector:4317" || cfg.SampleRate != 0.25 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.Config
		wantErr string
	}{
		{"sample rate above one", telemetry.Config{SampleRate: 1.5}, "sample_rate"},
		{"bad interval", telemetry.Config{ExportInterval: "soon"}, "export_interval"},
		{"zero interval", telemetry.Config{ExportInterval: "0s"}, "export_interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error: got %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
