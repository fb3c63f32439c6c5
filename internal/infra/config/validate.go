package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Bounds for search.num_results.
const (
	MinNumResults = 1
	MaxNumResults = 50
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// A missing API key is not a validation error; the backend reports it per call.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateSearch(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if s.NumResults < MinNumResults || s.NumResults > MaxNumResults {
		ve.Add("search.num_results must be %d-%d (got %d)", MinNumResults, MaxNumResults, s.NumResults)
	}
	if s.Endpoint == "" {
		ve.Add("search.endpoint is required")
		return
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		ve.Add("search.endpoint is invalid: %v", err)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		ve.Add("search.endpoint scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		ve.Add("search.endpoint is missing a host")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is unsupported (want: stdout, noop)", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if !cfg.Metrics.Enabled {
		return
	}
	if cfg.Metrics.Addr == "" {
		ve.Add("metrics.addr is required when metrics are enabled")
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
		ve.Add("metrics.addr %q is invalid: %v", cfg.Metrics.Addr, err)
	}
}
