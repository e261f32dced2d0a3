// Package config loads jobinsights settings from the environment.
//
// Every field is bound to an environment variable through struct tags:
//
//	env:"NAME"       primary variable
//	envAlt:"NAME"    fallback variable
//	default:"value"  used when neither variable is set
//	required:"true"  fail when nothing is set and there is no default
//
// Settings are validated once at startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by the chi Timeout middleware.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DataConfig locates the datasets served by the API.
type DataConfig struct {
	// Path is the dataset registered under the name "default".
	Path string `env:"JOBS_DATA_PATH" envAlt:"DATA_PATH" default:"data/jobs.csv"`

	// CatalogFile is an optional YAML file naming additional datasets.
	CatalogFile string `env:"JOBS_CATALOG_FILE"`

	// Preload parses every catalog dataset at startup.
	Preload bool `env:"JOBS_PRELOAD" default:"true"`

	// MaxConcurrentLoads caps parses of distinct files running at once.
	MaxConcurrentLoads int           `env:"JOBS_MAX_CONCURRENT_LOADS" default:"4"`
	LoadWait           time.Duration `env:"JOBS_LOAD_WAIT" default:"10s"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_REQUESTS_PER_SECOND" default:"10"`
	Burst             int     `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
