// Package config loads process configuration from environment
// variables, matching spec §6: DSNs for Postgres, Elasticsearch, and
// (read-only, unwired — see DESIGN.md) RabbitMQ, plus an ENVIRONMENT
// tag. Loaded once at startup, in the teacher's ConfigInterface style
// (config/interface.go): a plain struct with Validate/SetDefaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full process configuration.
type Config struct {
	Environment string

	PostgresDSN      string
	ElasticSearchDSN string
	RabbitMQDSN      string

	HTTPAddr string

	LogLevel string

	OTelTracesEnabled bool
	OTelServiceName   string

	// SearchSchemaDefaultsPath, when set, names a JSON file of
	// namespace -> schema defaults that is loaded at startup and
	// hot-reloaded via fsnotify (see schema_defaults.go). This is an operational
	// convenience absent from the Python original, supplementing it in
	// the teacher's idiom of watched config (pkg/config/provider/file.go).
	SearchSchemaDefaultsPath string

	JobPollInterval string

	RateLimitEnabled   bool
	RateLimitPerMinute int64
	RateLimitPerHour   int64
}

// Interface mirrors the teacher's config.ConfigInterface
// (config/interface.go): every concrete config type can validate itself
// and fill in defaults before use.
type Interface interface {
	Validate() error
	SetDefaults()
}

var _ Interface = (*Config)(nil)

// SetDefaults fills in zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OTelServiceName == "" {
		c.OTelServiceName = "jsonstorage"
	}
	if c.JobPollInterval == "" {
		c.JobPollInterval = "500ms"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.RateLimitPerHour == 0 {
		c.RateLimitPerHour = 3000
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("config: POSTGRES__DSN is required")
	}
	if c.ElasticSearchDSN == "" {
		return fmt.Errorf("config: ELASTIC_SEARCH__DSN is required")
	}
	return nil
}

// Load reads configuration from the environment, applying the `__`
// nested-key convention from spec §6 (POSTGRES__DSN, ELASTIC_SEARCH__DSN,
// RABBIT_MQ__DSN), matching the Python original's
// env_nested_delimiter='__'.
func Load() (*Config, error) {
	c := &Config{
		Environment:              os.Getenv("ENVIRONMENT"),
		PostgresDSN:              os.Getenv("POSTGRES__DSN"),
		ElasticSearchDSN:         os.Getenv("ELASTIC_SEARCH__DSN"),
		RabbitMQDSN:              os.Getenv("RABBIT_MQ__DSN"),
		HTTPAddr:                 os.Getenv("HTTP_ADDR"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		OTelTracesEnabled:        parseBool(os.Getenv("OTEL_TRACES_ENABLED")),
		OTelServiceName:          os.Getenv("OTEL_SERVICE_NAME"),
		SearchSchemaDefaultsPath: strings.TrimSpace(os.Getenv("SEARCH_SCHEMA_DEFAULTS_PATH")),
		RateLimitEnabled:         parseBool(os.Getenv("RATE_LIMIT__ENABLED")),
		RateLimitPerMinute:       parseInt64(os.Getenv("RATE_LIMIT__PER_MINUTE")),
		RateLimitPerHour:         parseInt64(os.Getenv("RATE_LIMIT__PER_HOUR")),
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(s))
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
