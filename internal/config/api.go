package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/notary/pkg/middleware"
	"github.com/JaimeStill/notary/pkg/openapi"
	"github.com/JaimeStill/notary/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "NOTARY_CORS_ENABLED",
	Origins:          "NOTARY_CORS_ORIGINS",
	AllowedMethods:   "NOTARY_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "NOTARY_CORS_ALLOWED_HEADERS",
	AllowCredentials: "NOTARY_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "NOTARY_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "NOTARY_OPENAPI_TITLE",
	Description: "NOTARY_OPENAPI_DESCRIPTION",
	ServerURL:   "NOTARY_OPENAPI_SERVER_URL",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "NOTARY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "NOTARY_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
	OpenAPI    openapi.Config        `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("NOTARY_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
}

func (c *APIConfig) validate() error {
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("invalid base_path: %q", c.BasePath)
	}
	return nil
}
