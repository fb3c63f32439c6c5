package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"querit-websearch/internal/adapter/mcpserver"
	"querit-websearch/internal/infra/config"
	"querit-websearch/internal/infra/metrics"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web_search tool over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Addr = metricsAddr
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	var m *metrics.Metrics
	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		var err error
		if m, err = metrics.New(promReg); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	rt, err := newRuntime(ctx, cfg, true, m)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if promReg != nil {
		srv, err := startMetricsServer(cfg.Metrics.Addr, promReg, rt.log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	s, err := mcpserver.New(rt.registry, rt.log, version)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	rt.log.Info("serving MCP on stdio", "version", version, "tools", len(rt.registry.List()))
	if err := s.ServeStdio(); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	rt.log.Info("MCP stdio closed")
	return nil
}

// startMetricsServer binds addr before returning so a port conflict fails
// startup instead of surfacing later in a goroutine.
func startMetricsServer(addr string, g prometheus.Gatherer, log *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	log.Info("metrics listening", "addr", ln.Addr().String())
	return srv, nil
}
