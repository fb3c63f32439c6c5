package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"querit-websearch/internal/domain"
)

// DefaultEndpoint is the Querit search API URL.
const DefaultEndpoint = "https://api.querit.ai/v1/search"

// Config is the top-level application configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SearchConfig holds the web search tool and backend settings.
// Region and SafeSearch are accepted for compatibility with existing tool
// configurations but are never sent to the API.
type SearchConfig struct {
	APIKey     string `yaml:"api_key" env:"QUERIT_API_KEY"`
	Endpoint   string `yaml:"endpoint" env:"WEBSEARCH_SEARCH_ENDPOINT"`
	NumResults int    `yaml:"num_results" env:"WEBSEARCH_SEARCH_NUM_RESULTS"`
	Region     string `yaml:"region" env:"WEBSEARCH_SEARCH_REGION"`
	SafeSearch bool   `yaml:"safe_search" env:"WEBSEARCH_SEARCH_SAFE_SEARCH"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level" env:"WEBSEARCH_LOGGER_LEVEL"`
	Format string `yaml:"format" env:"WEBSEARCH_LOGGER_FORMAT"`
	Output string `yaml:"output" env:"WEBSEARCH_LOGGER_OUTPUT"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled" env:"WEBSEARCH_TRACER_ENABLED"`
	Exporter string `yaml:"exporter" env:"WEBSEARCH_TRACER_EXPORTER"`
}

// MetricsConfig holds the Prometheus listener settings used by `serve`.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"WEBSEARCH_METRICS_ENABLED"`
	Addr    string `yaml:"addr" env:"WEBSEARCH_METRICS_ADDR"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Search: SearchConfig{
			Endpoint:   DefaultEndpoint,
			NumResults: 10,
			Region:     "en-US",
			SafeSearch: true,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and validates.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, err.Error())
		}
	} else {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, "parse config: "+err.Error())
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps WEBSEARCH_* (and QUERIT_API_KEY) env vars onto cfg.
// Unset variables leave the existing value untouched.
func ApplyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return domain.NewDomainError("Config.ApplyEnvOverrides", domain.ErrConfigLoad, err.Error())
	}
	return nil
}

// validatePermissions rejects config files writable by group or others,
// since they may carry the API key.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Readable by others is fine; writable by group or others is not.
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
