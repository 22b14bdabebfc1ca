// Package config provides centralized configuration management for the
// outreach pipeline commands.
//
// Process settings (server, database, logging, data locations) come from
// environment variables with sensible defaults and are validated on startup
// to fail fast on misconfiguration. The per-run pipeline options mapping is
// described in options.go.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all process configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Data     DataConfig
	Pipeline PipelineConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the reporting database settings.
// The database is optional; publishing is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table is the destination table for published records (default: outreach_events)
	Table string `env:"DB_TABLE" default:"outreach_events"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// PublishTimeout bounds a single publish operation (default: 2m)
	PublishTimeout time.Duration `env:"DB_PUBLISH_TIMEOUT" default:"2m"`
}

// Enabled reports whether a reporting database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// DataConfig locates the event-log exports.
type DataConfig struct {
	// Dir is the base data directory (default: data)
	Dir string `env:"DATA_DIR" default:"data"`

	// InputDirname is the subdirectory holding raw exports (default: input)
	InputDirname string `env:"INPUT_DIRNAME" default:"input"`

	// FilePattern is the glob matched inside the input directory (default: *.csv)
	FilePattern string `env:"WEBSITE_DATA_FILE_PATTERN" default:"*.csv"`

	// OptionsFile is an optional YAML file overlaid on the pipeline options
	OptionsFile string `env:"OPTIONS_FILE"`
}

// PipelineConfig holds the tunable cleaning policy.
type PipelineConfig struct {
	// AttendeeFallback replaces attendee counts that are not integers (default: 10)
	AttendeeFallback int `env:"ATTENDEE_FALLBACK" default:"10"`

	// LegacyCutoffYear is the first year labeled CURRENT (default: 2014)
	LegacyCutoffYear int `env:"LEGACY_CUTOFF_YEAR" default:"2014"`

	// MaxConcurrentRuns caps pipeline runs served in parallel (default: 4)
	MaxConcurrentRuns int `env:"MAX_CONCURRENT_RUNS" default:"4"`

	// RunWaitTimeout is how long a request waits for a run slot (default: 10s)
	RunWaitTimeout time.Duration `env:"RUN_WAIT_TIMEOUT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects the publish endpoint with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Options seeds the pipeline options mapping from the process config.
func (c *Config) Options() Options {
	return Options{
		KeyDataDir:          c.Data.Dir,
		KeyInputDirname:     c.Data.InputDirname,
		KeyFilePattern:      c.Data.FilePattern,
		KeyAttendeeFallback: c.Pipeline.AttendeeFallback,
		KeyLegacyCutoffYear: c.Pipeline.LegacyCutoffYear,
	}
}
