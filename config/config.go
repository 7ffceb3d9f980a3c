// Package config loads and validates the process-wide configuration.
// The Config is read once at startup and immutable afterwards.
package config

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sievelab/sieved/domain"
)

const (
	// EnvConfigPath points at the YAML configuration file.
	EnvConfigPath = "SIEVED_CONFIG"
	// EnvConfigURL, when set, fetches the YAML configuration over HTTP
	// instead of reading it from disk.
	EnvConfigURL = "SIEVED_CONFIG_URL"

	defaultPath         = "config.yml"
	remoteFetchTimeout  = 10 * time.Second
	maxRemoteConfigSize = 1 << 20
)

// Redis holds the optional snapshot store settings. An empty Addr
// disables snapshot persistence entirely.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config is the full service configuration.
type Config struct {
	MaxBound               uint64                       `yaml:"max_bound"`
	CacheTTLSeconds        int                          `yaml:"cache_ttl_seconds"`
	CacheMaxEntries        int                          `yaml:"cache_max_entries"`
	CacheMaxBytes          uint64                       `yaml:"cache_max_bytes"`
	ListenHost             string                       `yaml:"listen_host"`
	ListenPort             int                          `yaml:"listen_port"`
	ComputeTimeoutSeconds  int                          `yaml:"compute_timeout_seconds"`
	ShutdownTimeoutSeconds int                          `yaml:"shutdown_timeout_seconds"`
	JanitorIntervalSeconds int                          `yaml:"janitor_interval_seconds"`
	Redis                  Redis                        `yaml:"redis"`
	Filters                map[string]domain.FilterSpec `yaml:"filters"`
}

// Default returns the configuration used when a setting is omitted.
func Default() *Config {
	return &Config{
		MaxBound:               10_000_000,
		CacheTTLSeconds:        600,
		CacheMaxEntries:        64,
		CacheMaxBytes:          256 << 20,
		ListenHost:             "",
		ListenPort:             8080,
		ComputeTimeoutSeconds:  30,
		ShutdownTimeoutSeconds: 5,
		JanitorIntervalSeconds: 30,
	}
}

// Load resolves the configuration source (remote URL first, then file
// path, then defaults when no file exists) and returns the validated
// Config.
func Load() (*Config, error) {
	if url := os.Getenv(EnvConfigURL); url != "" {
		data, err := fetchRemote(url)
		if err != nil {
			return nil, fmt.Errorf("fetch remote config: %w", err)
		}
		return Parse(data)
	}

	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = defaultPath
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && os.Getenv(EnvConfigPath) == "" {
		// No config file at the default location is fine; run on defaults.
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fetchRemote(url string) ([]byte, error) {
	client := &http.Client{Timeout: remoteFetchTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config source returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigSize))
}

// Validate checks every configured value; a failure here is fatal at
// startup.
func (c *Config) Validate() error {
	if c.MaxBound == 0 {
		return fmt.Errorf("max_bound must be positive")
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be at least 1")
	}
	if c.ComputeTimeoutSeconds < 1 {
		return fmt.Errorf("compute_timeout_seconds must be at least 1")
	}
	for name, spec := range c.Filters {
		if name == "" {
			return fmt.Errorf("filter with empty name")
		}
		switch spec.Kind {
		case domain.FilterPrimes:
		case domain.FilterCoprime:
			if len(spec.Base) == 0 {
				return fmt.Errorf("filter %s: coprime requires base moduli", name)
			}
			for _, b := range spec.Base {
				if b < 2 {
					return fmt.Errorf("filter %s: base modulus %d below 2", name, b)
				}
			}
		default:
			return fmt.Errorf("filter %s: unknown kind %q", name, spec.Kind)
		}
	}
	return nil
}

// Addr is the listener bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// CacheTTL is the idle lifetime of a cache entry; zero disables TTL
// eviction.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ComputeTimeout is the per-request ceiling on sieve extension time.
func (c *Config) ComputeTimeout() time.Duration {
	return time.Duration(c.ComputeTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// JanitorInterval is the cache sweep period.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}
