// Package config loads and validates the metcatalog configuration.
//
// Files are TOML or YAML, chosen by extension. Missing keys keep their
// defaults; unknown keys are rejected.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"metcatalog/internal/cache"
	"metcatalog/internal/errors"
	"metcatalog/internal/logging"
	"metcatalog/internal/metapi"
	"metcatalog/internal/retry"
)

// DefaultNationalitiesFile is the nationality list shipped with the repo.
const DefaultNationalitiesFile = "data/nationalities.txt"

// Duration is a time.Duration written as a Go duration string ("10m").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CacheConfig holds the per-region cache settings.
type CacheConfig struct {
	WorksTTL             Duration `toml:"works_ttl" yaml:"works_ttl"`
	DepartmentsTTL       Duration `toml:"departments_ttl" yaml:"departments_ttl"`
	SearchesTTL          Duration `toml:"searches_ttl" yaml:"searches_ttl"`
	DepartmentIDsTTL     Duration `toml:"department_ids_ttl" yaml:"department_ids_ttl"`
	AutoCleanupThreshold int      `toml:"auto_cleanup_threshold" yaml:"auto_cleanup_threshold"`
	// CleanupInterval enables the background sweep when positive.
	CleanupInterval Duration `toml:"cleanup_interval" yaml:"cleanup_interval"`
}

// RetryConfig tunes API retries.
type RetryConfig struct {
	MaxAttempts  int      `toml:"max_attempts" yaml:"max_attempts"`
	InitialDelay Duration `toml:"initial_delay" yaml:"initial_delay"`
	MaxDelay     Duration `toml:"max_delay" yaml:"max_delay"`
}

// APIConfig holds the collection API settings.
type APIConfig struct {
	BaseURL string      `toml:"base_url" yaml:"base_url"`
	Timeout Duration    `toml:"timeout" yaml:"timeout"`
	Retry   RetryConfig `toml:"retry" yaml:"retry"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Verbose bool `toml:"verbose" yaml:"verbose"`
	JSON    bool `toml:"json" yaml:"json"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Config mirrors the metcatalog configuration file.
type Config struct {
	Cache             CacheConfig   `toml:"cache" yaml:"cache"`
	API               APIConfig     `toml:"api" yaml:"api"`
	Logging           LoggingConfig `toml:"logging" yaml:"logging"`
	Metrics           MetricsConfig `toml:"metrics" yaml:"metrics"`
	NationalitiesFile string        `toml:"nationalities_file" yaml:"nationalities_file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	c := cache.DefaultConfig()
	r := retry.DefaultConfig()
	return Config{
		Cache: CacheConfig{
			WorksTTL:             Duration(c.WorksTTL),
			DepartmentsTTL:       Duration(c.DepartmentsTTL),
			SearchesTTL:          Duration(c.SearchesTTL),
			DepartmentIDsTTL:     Duration(c.DepartmentIDsTTL),
			AutoCleanupThreshold: c.AutoCleanupThreshold,
			CleanupInterval:      Duration(time.Minute),
		},
		API: APIConfig{
			BaseURL: metapi.DefaultBaseURL,
			Timeout: Duration(10 * time.Second),
			Retry: RetryConfig{
				MaxAttempts:  r.MaxAttempts,
				InitialDelay: Duration(r.InitialDelay),
				MaxDelay:     Duration(r.MaxDelay),
			},
		},
		NationalitiesFile: DefaultNationalitiesFile,
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, errors.WrapFatal(err, "config", "Load", "read "+path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return cfg, errors.WrapFatal(errors.ErrInvalidConfig, "config", "Load",
			fmt.Sprintf("%s: unsupported extension %q, want .toml, .yaml or .yml", path, ext))
	}
	if err != nil {
		return cfg, errors.WrapFatal(errors.ErrInvalidConfig, "config", "Load", fmt.Sprintf("%s: %v", path, err))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	ttls := []struct {
		name  string
		value Duration
	}{
		{"cache.works_ttl", c.Cache.WorksTTL},
		{"cache.departments_ttl", c.Cache.DepartmentsTTL},
		{"cache.searches_ttl", c.Cache.SearchesTTL},
		{"cache.department_ids_ttl", c.Cache.DepartmentIDsTTL},
		{"api.timeout", c.API.Timeout},
	}
	for _, ttl := range ttls {
		if ttl.value <= 0 {
			return invalid(fmt.Sprintf("%s must be positive, got %s", ttl.name, ttl.value.Std()))
		}
	}
	if c.Cache.AutoCleanupThreshold <= 0 {
		return invalid(fmt.Sprintf("cache.auto_cleanup_threshold must be positive, got %d", c.Cache.AutoCleanupThreshold))
	}
	if c.Cache.CleanupInterval < 0 {
		return invalid("cache.cleanup_interval cannot be negative")
	}
	if c.API.Retry.MaxAttempts <= 0 {
		return invalid(fmt.Sprintf("api.retry.max_attempts must be positive, got %d", c.API.Retry.MaxAttempts))
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(fmt.Sprintf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL))
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate", msg)
}

// CacheConfig converts the cache section for cache.New.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		WorksTTL:             c.Cache.WorksTTL.Std(),
		DepartmentsTTL:       c.Cache.DepartmentsTTL.Std(),
		SearchesTTL:          c.Cache.SearchesTTL.Std(),
		DepartmentIDsTTL:     c.Cache.DepartmentIDsTTL.Std(),
		AutoCleanupThreshold: c.Cache.AutoCleanupThreshold,
		CleanupInterval:      c.Cache.CleanupInterval.Std(),
	}
}

// APIConfig converts the api section for metapi.New.
func (c Config) APIConfig() metapi.Config {
	r := retry.DefaultConfig()
	r.MaxAttempts = c.API.Retry.MaxAttempts
	r.InitialDelay = c.API.Retry.InitialDelay.Std()
	r.MaxDelay = c.API.Retry.MaxDelay.Std()
	return metapi.Config{
		BaseURL: strings.TrimRight(c.API.BaseURL, "/"),
		Timeout: c.API.Timeout.Std(),
		Retry:   r,
	}
}

// LoggingOptions converts the logging section for logging.New.
func (c Config) LoggingOptions(w io.Writer) logging.Options {
	return logging.Options{Verbose: c.Logging.Verbose, JSON: c.Logging.JSON, Writer: w}
}
