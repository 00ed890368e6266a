package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/internal/infrastructure"
	"github.com/JaimeStill/notary/internal/notarization"
	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/cache"
	"github.com/JaimeStill/notary/pkg/database"
	"github.com/JaimeStill/notary/pkg/nonce"
	"github.com/JaimeStill/notary/pkg/pagination"
	"github.com/JaimeStill/notary/pkg/ratelimit"
	"github.com/JaimeStill/notary/pkg/storage"
	"github.com/JaimeStill/notary/pkg/telemetry"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Gateway: notarization.Config{
			Secret:       "secret",
			RateCapacity: 100,
			RateWindow:   "10m",
		},
		Records: records.Config{
			Backend:   records.BackendPostgres,
			PublicURL: "http://localhost:8080/api",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "notary",
			User:            "notary",
			Password:        "notary",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage:   storage.Config{ContainerName: "decisions"},
		Telemetry: telemetry.Config{ServiceName: "notary"},
		API: config.APIConfig{
			Pagination: pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Telemetry == nil {
		t.Error("Telemetry is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil for the postgres backend")
	}
	if infra.Storage != nil {
		t.Error("Storage should be nil without a connection string")
	}
	if infra.Cache != nil {
		t.Error("Cache should be nil without an address")
	}
	if _, ok := infra.Records.(*records.Postgres); !ok {
		t.Errorf("Records: got %T, want *records.Postgres", infra.Records)
	}
	if _, ok := infra.Nonces.(*nonce.Memory); !ok {
		t.Errorf("Nonces: got %T, want *nonce.Memory", infra.Nonces)
	}
	if _, ok := infra.Limiter.(*ratelimit.Memory); !ok {
		t.Errorf("Limiter: got %T, want *ratelimit.Memory", infra.Limiter)
	}

	infra.Database.Connection().Close()
}

func TestNewGitHubBackendSkipsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Records.Backend = records.BackendGitHub
	cfg.Records.GitHub = records.GitHubConfig{Owner: "acme", Repo: "decisions", Token: "t"}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Database != nil {
		t.Error("Database should be nil for the github backend")
	}
	if _, ok := infra.Records.(*records.GitHub); !ok {
		t.Errorf("Records: got %T, want *records.GitHub", infra.Records)
	}
}

func TestNewWithCache(t *testing.T) {
	cfg := validConfig()
	cfg.Cache = cache.Config{Addr: "127.0.0.1:6379", Prefix: "notary", DialTimeout: "1s"}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Cache == nil {
		t.Fatal("Cache is nil")
	}
	if _, ok := infra.Nonces.(*nonce.Redis); !ok {
		t.Errorf("Nonces: got %T, want *nonce.Redis", infra.Nonces)
	}
	if _, ok := infra.Limiter.(*ratelimit.Redis); !ok {
		t.Errorf("Limiter: got %T, want *ratelimit.Redis", infra.Limiter)
	}
}

func TestNewWithStorage(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = azuriteConnString

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}
