package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/transitconv/internal/convert"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
	"github.com/JonMunkholm/transitconv/internal/textio"
)

// Lookup returns the value of a variable and whether it is set.
// os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// MapLookup serves variables from m.
func MapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Load reads the configuration from the process environment, fills
// defaults and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load over an explicit variable source.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := &Config{}
	if err := decode(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// parsers convert a variable to each supported field type. Empty entries
// of a list are dropped.
var parsers = map[reflect.Type]func(string) (any, error){
	reflect.TypeFor[string]():        func(s string) (any, error) { return s, nil },
	reflect.TypeFor[int]():           func(s string) (any, error) { return strconv.Atoi(s) },
	reflect.TypeFor[int64]():         func(s string) (any, error) { return strconv.ParseInt(s, 10, 64) },
	reflect.TypeFor[bool]():          func(s string) (any, error) { return strconv.ParseBool(s) },
	reflect.TypeFor[time.Duration](): func(s string) (any, error) { return time.ParseDuration(s) },
	reflect.TypeFor[[]string](): func(s string) (any, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	},
}

// decode fills every field of v tagged with env, descending into nested
// groups. A variable that is unset or empty takes the default tag; a
// required one without a value is an error. All problems are reported
// together.
func decode(v reflect.Value, lookup Lookup) error {
	var errs []error
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := decode(fv, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		value, _ := lookup(name)
		if alt := sf.Tag.Get("envAlt"); value == "" && alt != "" {
			value, _ = lookup(alt)
		}
		if value == "" {
			if sf.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required variable %s is not set", name))
				continue
			}
			value = sf.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		parse, ok := parsers[sf.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unsupported field type %s", name, sf.Type))
			continue
		}
		parsed, err := parse(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
			continue
		}
		fv.Set(reflect.ValueOf(parsed))
	}
	return errors.Join(errs...)
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.Timeout <= 0 {
		errs = append(errs, "DB_TIMEOUT must be positive")
	}
	if c.Database.Enabled() && !schemaName.MatchString(strings.ToLower(c.Database.Schema)) {
		errs = append(errs, fmt.Sprintf("DB_SCHEMA (%q) is not a valid schema name", c.Database.Schema))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Convert validation
	if _, err := c.ConvertSettings(); err != nil {
		errs = append(errs, err.Error())
	}

	// Network validation
	if c.Network.SourceEPSG <= 0 {
		errs = append(errs, fmt.Sprintf("NETWORK_SOURCE_EPSG (%d) must be positive", c.Network.SourceEPSG))
	}
	if _, err := textio.NewDecoder(c.Network.LegacyCodePage); err != nil {
		errs = append(errs, fmt.Sprintf("NETWORK_LEGACY_CODEPAGE: %v", err))
	}
	if _, err := textio.NewEncoder(c.Network.WriteEncoding); err != nil {
		errs = append(errs, fmt.Sprintf("NETWORK_WRITE_ENCODING: %v", err))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

var schemaName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ConvertSettings builds converter settings from the Convert group.
func (c *Config) ConvertSettings() (convert.Settings, error) {
	start, err := table.ParseDate(c.Convert.ServiceStart)
	if err != nil {
		return convert.Settings{}, fmt.Errorf("CONVERT_SERVICE_START (%q) must be YYYYMMDD", c.Convert.ServiceStart)
	}
	end, err := table.ParseDate(c.Convert.ServiceEnd)
	if err != nil {
		return convert.Settings{}, fmt.Errorf("CONVERT_SERVICE_END (%q) must be YYYYMMDD", c.Convert.ServiceEnd)
	}

	s := convert.Settings{
		AgencyURL:        c.Convert.AgencyURL,
		AgencyTimezone:   c.Convert.AgencyTimezone,
		ServiceStart:     start,
		ServiceEnd:       end,
		DefaultRouteType: c.Convert.DefaultRouteType,
	}
	if err := s.Validate(); err != nil {
		return convert.Settings{}, err
	}
	return s, nil
}

// NetworkOptions returns the codec options for reading and writing network
// files.
func (c *Config) NetworkOptions(logger *slog.Logger) []network.Option {
	return []network.Option{
		network.WithLogger(logger),
		network.WithLegacyCodePage(c.Network.LegacyCodePage),
		network.WithWriteEncoding(c.Network.WriteEncoding),
		network.WithSourceEPSG(c.Network.SourceEPSG),
	}
}

// Registry builds the projection registry, applying the definitions overlay
// when one is configured.
func (c *Config) Registry(logger *slog.Logger) (*projection.Registry, error) {
	opts := []projection.Option{projection.WithLogger(logger)}
	if c.Network.ProjectionDefs != "" {
		f, err := os.Open(c.Network.ProjectionDefs)
		if err != nil {
			return nil, fmt.Errorf("projection definitions: %w", err)
		}
		defer f.Close()
		opts = append(opts, projection.WithDefinitions(f))
	}
	return projection.NewRegistry(opts...)
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	if c.Database.Enabled() {
		b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], Schema: %q, MaxConns: %d}, ",
			c.Database.Schema, c.Database.MaxConns))
	} else {
		b.WriteString("Database: {disabled}, ")
	}
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d, TrustedProxies: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), len(c.Security.TrustedProxies)))
	b.WriteString(fmt.Sprintf("Convert: {AgencyTimezone: %q, Service: %s-%s, DefaultRouteType: %d}, ",
		c.Convert.AgencyTimezone, c.Convert.ServiceStart, c.Convert.ServiceEnd, c.Convert.DefaultRouteType))
	b.WriteString(fmt.Sprintf("Network: {SourceEPSG: %d, LegacyCodePage: %q, WriteEncoding: %q}, ",
		c.Network.SourceEPSG, c.Network.LegacyCodePage, c.Network.WriteEncoding))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q, Seq: %v}",
		c.Logging.Level, c.Logging.Format, c.Logging.SeqURL != ""))
	b.WriteString("}")
	return b.String()
}
