package notarization

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/notary/pkg/formatting"
)

// Config holds the gateway's authentication, throttling and write settings.
// Durations are Go duration strings.
type Config struct {
	Secret          string   `toml:"secret"`
	TimestampWindow string   `toml:"timestamp_window"`
	NonceTTL        string   `toml:"nonce_ttl"`
	RateCapacity    int      `toml:"rate_capacity"`
	RateWindow      string   `toml:"rate_window"`
	WriteAttempts   int      `toml:"write_attempts"`
	WriteDelay      string   `toml:"write_delay"`
	WriteJitter     *float64 `toml:"write_jitter"`
	RequestTimeout  string   `toml:"request_timeout"`
	MaxBodySize     string   `toml:"max_body_size"`
	TrustProxy      bool     `toml:"trust_proxy"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Secret          string
	TimestampWindow string
	NonceTTL        string
	RateCapacity    string
	RateWindow      string
	WriteAttempts   string
	WriteDelay      string
	RequestTimeout  string
	MaxBodySize     string
	TrustProxy      string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. TrustProxy always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.TimestampWindow != "" {
		c.TimestampWindow = overlay.TimestampWindow
	}
	if overlay.NonceTTL != "" {
		c.NonceTTL = overlay.NonceTTL
	}
	if overlay.RateCapacity != 0 {
		c.RateCapacity = overlay.RateCapacity
	}
	if overlay.RateWindow != "" {
		c.RateWindow = overlay.RateWindow
	}
	if overlay.WriteAttempts != 0 {
		c.WriteAttempts = overlay.WriteAttempts
	}
	if overlay.WriteDelay != "" {
		c.WriteDelay = overlay.WriteDelay
	}
	if overlay.WriteJitter != nil {
		c.WriteJitter = overlay.WriteJitter
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	c.TrustProxy = overlay.TrustProxy
}

// TimestampWindowDuration returns TimestampWindow as a time.Duration.
func (c *Config) TimestampWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.TimestampWindow)
	return d
}

// NonceTTLDuration returns NonceTTL as a time.Duration.
func (c *Config) NonceTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.NonceTTL)
	return d
}

// RateWindowDuration returns RateWindow as a time.Duration.
func (c *Config) RateWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.RateWindow)
	return d
}

// WriteDelayDuration returns WriteDelay as a time.Duration.
func (c *Config) WriteDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteDelay)
	return d
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// WriteJitterFraction returns WriteJitter, or zero when unset.
// An explicit zero disables jitter.
func (c *Config) WriteJitterFraction() float64 {
	if c.WriteJitter == nil {
		return 0
	}
	return *c.WriteJitter
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *Config) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 64 * 1024
	}
	return size
}

func (c *Config) loadDefaults() {
	if c.TimestampWindow == "" {
		c.TimestampWindow = "300s"
	}
	if c.NonceTTL == "" {
		c.NonceTTL = "600s"
	}
	if c.RateCapacity <= 0 {
		c.RateCapacity = 100
	}
	if c.RateWindow == "" {
		c.RateWindow = "10m"
	}
	if c.WriteAttempts <= 0 {
		c.WriteAttempts = 3
	}
	if c.WriteDelay == "" {
		c.WriteDelay = "2s"
	}
	if c.WriteJitter == nil {
		jitter := 0.1
		c.WriteJitter = &jitter
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "10s"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64KB"
	}
}

func (c *Config) loadEnv(env *Env) {
	str := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str(env.Secret, &c.Secret)
	str(env.TimestampWindow, &c.TimestampWindow)
	str(env.NonceTTL, &c.NonceTTL)
	num(env.RateCapacity, &c.RateCapacity)
	str(env.RateWindow, &c.RateWindow)
	num(env.WriteAttempts, &c.WriteAttempts)
	str(env.WriteDelay, &c.WriteDelay)
	str(env.RequestTimeout, &c.RequestTimeout)
	str(env.MaxBodySize, &c.MaxBodySize)

	if env.TrustProxy != "" {
		if v := os.Getenv(env.TrustProxy); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.TrustProxy = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret required")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"timestamp_window", c.TimestampWindow},
		{"nonce_ttl", c.NonceTTL},
		{"rate_window", c.RateWindow},
		{"write_delay", c.WriteDelay},
		{"request_timeout", c.RequestTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	window := c.TimestampWindowDuration()
	ttl := c.NonceTTLDuration()
	if window <= 0 {
		return fmt.Errorf("timestamp_window must be positive")
	}
	if ttl <= 0 {
		return fmt.Errorf("nonce_ttl must be positive")
	}
	// A nonce must outlive every timestamp that could still be accepted
	// with it, which spans the window on both sides of now.
	if ttl < 2*window {
		return fmt.Errorf("nonce_ttl %s must be at least twice timestamp_window %s", ttl, window)
	}

	if c.RateCapacity < 1 {
		return fmt.Errorf("rate_capacity must be positive")
	}
	if j := c.WriteJitterFraction(); j < 0 || j > 1 {
		return fmt.Errorf("write_jitter must be between 0 and 1")
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	return nil
}
