package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/notary/internal/notarization"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/cache"
	"github.com/JaimeStill/notary/pkg/database"
	"github.com/JaimeStill/notary/pkg/storage"
	"github.com/JaimeStill/notary/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvNotaryEnv             = "NOTARY_ENV"
	EnvNotaryShutdownTimeout = "NOTARY_SHUTDOWN_TIMEOUT"
	EnvNotaryVersion         = "NOTARY_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "NOTARY_DB_HOST",
	Port:            "NOTARY_DB_PORT",
	Name:            "NOTARY_DB_NAME",
	User:            "NOTARY_DB_USER",
	Password:        "NOTARY_DB_PASSWORD",
	SSLMode:         "NOTARY_DB_SSL_MODE",
	MaxOpenConns:    "NOTARY_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "NOTARY_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "NOTARY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "NOTARY_DB_CONN_TIMEOUT",
}

// DatabaseDSN builds a connection URL from the NOTARY_DB_* variables alone,
// for tools that run without the TOML config.
func DatabaseDSN() (string, error) {
	var cfg database.Config
	if err := cfg.Finalize(databaseEnv); err != nil {
		return "", fmt.Errorf("database: %w", err)
	}
	return cfg.Dsn(), nil
}

var storageEnv = &storage.Env{
	ContainerName:    "NOTARY_STORAGE_CONTAINER_NAME",
	ConnectionString: "NOTARY_STORAGE_CONNECTION_STRING",
	ServiceURL:       "NOTARY_STORAGE_SERVICE_URL",
}

var cacheEnv = &cache.Env{
	Addr:        "NOTARY_REDIS_ADDR",
	Password:    "NOTARY_REDIS_PASSWORD",
	DB:          "NOTARY_REDIS_DB",
	Prefix:      "NOTARY_REDIS_PREFIX",
	DialTimeout: "NOTARY_REDIS_DIAL_TIMEOUT",
}

var gatewayEnv = &notarization.Env{
	Secret:          "NOTARY_WEBHOOK_SECRET",
	TimestampWindow: "NOTARY_TIMESTAMP_WINDOW",
	NonceTTL:        "NOTARY_NONCE_TTL",
	RateCapacity:    "NOTARY_RATE_CAPACITY",
	RateWindow:      "NOTARY_RATE_WINDOW",
	WriteAttempts:   "NOTARY_WRITE_ATTEMPTS",
	WriteDelay:      "NOTARY_WRITE_DELAY",
	RequestTimeout:  "NOTARY_REQUEST_TIMEOUT",
	MaxBodySize:     "NOTARY_MAX_BODY_SIZE",
	TrustProxy:      "NOTARY_TRUST_PROXY",
}

var recordsEnv = &records.Env{
	Backend:       "NOTARY_RECORDS_BACKEND",
	PublicURL:     "NOTARY_PUBLIC_URL",
	GitHubOwner:   "NOTARY_GITHUB_OWNER",
	GitHubRepo:    "NOTARY_GITHUB_REPO",
	GitHubToken:   "NOTARY_GITHUB_TOKEN",
	GitHubBaseURL: "NOTARY_GITHUB_BASE_URL",
}

var telemetryEnv = &telemetry.Env{
	Enabled:        "NOTARY_OTEL_ENABLED",
	Endpoint:       "NOTARY_OTEL_ENDPOINT",
	Insecure:       "NOTARY_OTEL_INSECURE",
	ServiceName:    "NOTARY_OTEL_SERVICE_NAME",
	SampleRate:     "NOTARY_OTEL_SAMPLE_RATE",
	ExportInterval: "NOTARY_OTEL_EXPORT_INTERVAL",
}

// Config is the root configuration for the notary service.
type Config struct {
	Server          ServerConfig        `toml:"server"`
	API             APIConfig           `toml:"api"`
	Gateway         notarization.Config `toml:"gateway"`
	Records         records.Config      `toml:"records"`
	Database        database.Config     `toml:"database"`
	Storage         storage.Config      `toml:"storage"`
	Cache           cache.Config        `toml:"cache"`
	Telemetry       telemetry.Config    `toml:"telemetry"`
	ShutdownTimeout string              `toml:"shutdown_timeout"`
	Version         string              `toml:"version"`
}

// Env returns the NOTARY_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvNotaryEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Gateway.Merge(&overlay.Gateway)
	c.Records.Merge(&overlay.Records)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Telemetry.Merge(&overlay.Telemetry)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Gateway.Finalize(gatewayEnv); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.Records.Finalize(recordsEnv); err != nil {
		return fmt.Errorf("records: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvNotaryShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvNotaryVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvNotaryEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
