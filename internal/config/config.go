// Package config provides centralized configuration management for the
// converter binaries. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Convert  ConvertConfig
	Network  NetworkConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional database sink settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the sink.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema is the target schema for converted tables (default: transit)
	Schema string `env:"DB_SCHEMA" default:"transit"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// Timeout bounds one populate call (default: 5m)
	Timeout time.Duration `env:"DB_TIMEOUT" default:"5m"`
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// UploadConfig holds HTTP upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects the conversion endpoints with X-API-Key (default: false)
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

	// SeqURL enables shipping logs to a Seq server when set
	SeqURL string `env:"LOG_SEQ_URL"`
}

// ConvertConfig holds the values written into feeds that network files
// have no column for.
type ConvertConfig struct {
	// AgencyURL is written to every agency row
	AgencyURL string `env:"CONVERT_AGENCY_URL" default:"http://www.example.org"`

	// AgencyTimezone is an IANA zone written to every agency row
	AgencyTimezone string `env:"CONVERT_AGENCY_TIMEZONE" default:"Europe/Berlin"`

	// ServiceStart is the first service day, YYYYMMDD
	ServiceStart string `env:"CONVERT_SERVICE_START" default:"20200101"`

	// ServiceEnd is the last service day, YYYYMMDD
	ServiceEnd string `env:"CONVERT_SERVICE_END" default:"20301231"`

	// DefaultRouteType is used for transport systems with no known route type (default: 3, bus)
	DefaultRouteType int `env:"CONVERT_DEFAULT_ROUTE_TYPE" default:"3"`
}

// NetworkConfig holds network file codec settings.
type NetworkConfig struct {
	// SourceEPSG is assumed when a file declares no projection (default: 53004)
	SourceEPSG int `env:"NETWORK_SOURCE_EPSG" default:"53004"`

	// LegacyCodePage decodes lines that are not valid UTF-8
	LegacyCodePage string `env:"NETWORK_LEGACY_CODEPAGE" default:"windows-1252"`

	// WriteEncoding is the encoding of written network files
	WriteEncoding string `env:"NETWORK_WRITE_ENCODING" default:"utf-8"`

	// ProjectionDefs is an optional YAML file overlaying the built-in projections
	ProjectionDefs string `env:"NETWORK_PROJECTION_DEFS"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
