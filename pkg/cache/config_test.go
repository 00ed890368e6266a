package cache_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/notary/pkg/cache"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &cache.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.Enabled() {
		t.Error("Enabled() = true with empty addr")
	}
	if cfg.Prefix != "notary" {
		t.Errorf("Prefix = %s, want notary", cfg.Prefix)
	}
	if cfg.DialTimeoutDuration() != 5*time.Second {
		t.Errorf("DialTimeoutDuration = %v, want 5s", cfg.DialTimeoutDuration())
	}
}

func TestConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_CACHE_ADDR", "redis:6379")
	t.Setenv("TEST_CACHE_DB", "2")

	cfg := &cache.Config{}
	env := &cache.Env{Addr: "TEST_CACHE_ADDR", DB: "TEST_CACHE_DB"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if !cfg.Enabled() || cfg.Addr != "redis:6379" {
		t.Errorf("Addr = %s, want redis:6379", cfg.Addr)
	}
	if cfg.DB != 2 {
		t.Errorf("DB = %d, want 2", cfg.DB)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &cache.Config{DialTimeout: "soon"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for invalid dial_timeout")
	}
}

func TestConfigMerge(t *testing.T) {
	base := &cache.Config{Addr: "a:1", Prefix: "base"}
	base.Merge(&cache.Config{Addr: "b:2"})

	if base.Addr != "b:2" {
		t.Errorf("Addr = %s, want b:2", base.Addr)
	}
	if base.Prefix != "base" {
		t.Errorf("Prefix = %s, want base", base.Prefix)
	}
}
