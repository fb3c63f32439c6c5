package main

import (
	"context"
	"fmt"
	"log/slog"

	"querit-websearch/internal/adapter/tool"
	"querit-websearch/internal/infra/config"
	"querit-websearch/internal/infra/logger"
	"querit-websearch/internal/infra/metrics"
	"querit-websearch/internal/infra/tracer"
)

// runtime holds the wired components shared by search and serve.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  *tool.QueritBackend
	registry *tool.Registry
	search   *tool.WebSearchTool

	logCloser      func() error
	tracerShutdown func(context.Context) error
}

// newRuntime builds logger, tracer, backend and tool registry from cfg.
// stdio keeps every log line off stdout. m may be nil.
func newRuntime(ctx context.Context, cfg *config.Config, stdio bool, m *metrics.Metrics) (*runtime, error) {
	logCfg := cfg.Logger
	if stdio {
		logCfg = logger.StdioSafe(logCfg)
	}
	log, logCloser, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	backend := tool.NewQueritBackend(cfg.Search.APIKey, log,
		tool.WithEndpoint(cfg.Search.Endpoint),
		tool.WithMetrics(m),
	)
	if !backend.ValidateCredentials() {
		log.Warn("no Querit API key configured; searches will fail", "env", tool.QueritAPIKeyEnv)
	}

	opts := tool.WebSearchOptions{
		NumResults: cfg.Search.NumResults,
		Region:     cfg.Search.Region,
		SafeSearch: cfg.Search.SafeSearch,
	}
	registry, search, err := tool.NewDefaultRegistry(backend, opts, log, m)
	if err != nil {
		tracerShutdown(ctx)
		logCloser()
		return nil, fmt.Errorf("web search tool: %w", err)
	}

	log.Debug("runtime ready",
		"endpoint", backend.Endpoint(),
		"num_results", search.Options().NumResults,
		"tracer", cfg.Tracer.Enabled,
	)

	return &runtime{
		cfg:            cfg,
		log:            log,
		backend:        backend,
		registry:       registry,
		search:         search,
		logCloser:      logCloser,
		tracerShutdown: tracerShutdown,
	}, nil
}

func (r *runtime) Close(ctx context.Context) {
	if err := r.tracerShutdown(ctx); err != nil {
		r.log.Warn("tracer shutdown", "error", err)
	}
	r.logCloser()
}
