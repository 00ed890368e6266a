package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds OpenTelemetry export settings. Export is off unless Enabled.
type Config struct {
	Enabled        bool    `toml:"enabled"`
	Endpoint       string  `toml:"endpoint"`
	Insecure       bool    `toml:"insecure"`
	ServiceName    string  `toml:"service_name"`
	SampleRate     float64 `toml:"sample_rate"`
	ExportInterval string  `toml:"export_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled        string
	Endpoint       string
	Insecure       string
	ServiceName    string
	SampleRate     string
	ExportInterval string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Boolean fields always apply.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	c.Insecure = overlay.Insecure

	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.SampleRate != 0 {
		c.SampleRate = overlay.SampleRate
	}
	if overlay.ExportInterval != "" {
		c.ExportInterval = overlay.ExportInterval
	}
}

// ExportIntervalDuration returns ExportInterval as a time.Duration.
func (c *Config) ExportIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.ExportInterval)
	return d
}

func (c *Config) loadDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.ServiceName == "" {
		c.ServiceName = "notary"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
	if c.ExportInterval == "" {
		c.ExportInterval = "15s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.Insecure != "" {
		if v := os.Getenv(env.Insecure); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Insecure = b
			}
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.SampleRate != "" {
		if v := os.Getenv(env.SampleRate); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.SampleRate = f
			}
		}
	}
	if env.ExportInterval != "" {
		if v := os.Getenv(env.ExportInterval); v != "" {
			c.ExportInterval = v
		}
	}
}

func (c *Config) validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0 and 1")
	}
	d, err := time.ParseDuration(c.ExportInterval)
	if err != nil {
		return fmt.Errorf("invalid export_interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("export_interval must be positive")
	}
	return nil
}
