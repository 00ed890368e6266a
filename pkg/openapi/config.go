package openapi

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds document metadata. ServerURL, when set, replaces the
// API base path as the advertised server.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	ServerURL   string `toml:"server_url"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
	ServerURL   string
}

func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields that are set in overlay.
func (c *Config) Merge(overlay *Config) {
	for _, f := range []struct{ dst, v *string }{
		{&c.Title, &overlay.Title},
		{&c.Description, &overlay.Description},
		{&c.ServerURL, &overlay.ServerURL},
	} {
		if *f.v != "" {
			*f.dst = *f.v
		}
	}
}

// ServerURLOr returns ServerURL, or fallback when none is configured.
func (c *Config) ServerURLOr(fallback string) string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return fallback
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Notary API"
	}
	if c.Description == "" {
		c.Description = "Notarization gateway that records signed PICC decisions once per content hash."
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	for _, f := range []struct {
		dst  *string
		name string
	}{
		{&c.Title, env.Title},
		{&c.Description, env.Description},
		{&c.ServerURL, env.ServerURL},
	} {
		if f.name == "" {
			continue
		}
		if v := os.Getenv(f.name); v != "" {
			*f.dst = v
		}
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title must not be blank")
	}
	if c.ServerURL == "" || strings.HasPrefix(c.ServerURL, "/") {
		return nil
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q must be absolute or start with /", c.ServerURL)
	}
	return nil
}
