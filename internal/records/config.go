package records

import (
	"fmt"
	"os"
	"strings"
)

// Backend names.
const (
	BackendGitHub   = "github"
	BackendPostgres = "postgres"
)

// Config selects and configures the record store.
type Config struct {
	Backend   string       `toml:"backend"`
	PublicURL string       `toml:"public_url"`
	GitHub    GitHubConfig `toml:"github"`
}

// GitHubConfig identifies the repository whose issues hold records.
type GitHubConfig struct {
	Owner   string `toml:"owner"`
	Repo    string `toml:"repo"`
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	PublicURL     string
	GitHubOwner   string
	GitHubRepo    string
	GitHubToken   string
	GitHubBaseURL string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.PublicURL != "" {
		c.PublicURL = overlay.PublicURL
	}
	if overlay.GitHub.Owner != "" {
		c.GitHub.Owner = overlay.GitHub.Owner
	}
	if overlay.GitHub.Repo != "" {
		c.GitHub.Repo = overlay.GitHub.Repo
	}
	if overlay.GitHub.Token != "" {
		c.GitHub.Token = overlay.GitHub.Token
	}
	if overlay.GitHub.BaseURL != "" {
		c.GitHub.BaseURL = overlay.GitHub.BaseURL
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendGitHub
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:8080/api"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Backend, &c.Backend)
	set(env.PublicURL, &c.PublicURL)
	set(env.GitHubOwner, &c.GitHub.Owner)
	set(env.GitHubRepo, &c.GitHub.Repo)
	set(env.GitHubToken, &c.GitHub.Token)
	set(env.GitHubBaseURL, &c.GitHub.BaseURL)
}

func (c *Config) validate() error {
	c.Backend = strings.ToLower(c.Backend)
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	switch c.Backend {
	case BackendGitHub:
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("github owner and repo required")
		}
		if c.GitHub.Token == "" {
			return fmt.Errorf("github token required")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
