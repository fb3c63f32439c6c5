package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"querit-websearch/internal/adapter/tool"
	"querit-websearch/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

const dialTimeout = 5 * time.Second

func newDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and API reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d net.Dialer
			return runDoctor(cmd.OutOrStdout(), *cfgPath, d.DialContext)
		},
	}
}

// runDoctor executes all health checks and reports results to w.
// It never performs a search, so it costs no API quota.
func runDoctor(w io.Writer, cfgPath string, dial dialFunc) error {
	// Some checks work without a loaded config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "API key", Fn: checkAPIKey},
		{Name: "Search options", Fn: checkSearchOptions},
		{Name: "Endpoint", Fn: checkEndpoint(dial)},
	}

	fmt.Fprintln(w, "websearch doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loads. A
// missing file is only a warning: defaults and environment still apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s or the WEBSEARCH_* environment variables", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s; using defaults and environment", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkAPIKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	key := strings.TrimSpace(cfg.Search.APIKey)
	if key == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "Querit API key not found",
			Fix:     fmt.Sprintf("export %s=<your key> or set search.api_key", tool.QueritAPIKeyEnv),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("API key configured (%s)", maskKey(key)),
	}
}

// checkSearchOptions flags settings that are accepted but have no effect.
func checkSearchOptions(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	s := cfg.Search
	if s.Region != "en-US" || !s.SafeSearch {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("num_results=%d; region=%q and safe_search=%v are ignored by the Querit backend", s.NumResults, s.Region, s.SafeSearch),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("num_results=%d", s.NumResults),
	}
}

// checkEndpoint opens (and closes) a TCP connection to the search host.
func checkEndpoint(dial dialFunc) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
		}
		addr, err := endpointAddr(cfg.Search.Endpoint)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: err.Error()}
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		conn, err := dial(ctx, "tcp", addr)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot reach %s: %v", addr, err),
				Fix:     "Check your network connection, proxy and firewall settings",
			}
		}
		conn.Close()
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s reachable", addr),
		}
	}
}

// endpointAddr returns host:port for a search URL, defaulting the port from the scheme.
func endpointAddr(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
