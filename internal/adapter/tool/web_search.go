package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"querit-websearch/internal/domain"
	"querit-websearch/internal/infra/metrics"
	"querit-websearch/internal/infra/tracer"
)

const (
	DefaultNumResults = 10
	MinNumResults     = 1
	MaxNumResults     = 50

	defaultRegion = "en-US"

	webSearchDescription = "A tool for searching the web using Querit Search API. " +
		"Useful for finding up-to-date information, news, and facts. " +
		"Input should be a search query string."

	noResultsMessage   = "No search results found."
	searchFailedPrefix = "Search failed: "
)

// Error kinds the tool knows how to report. Anything else is "unexpected".
const (
	kindCredential = "credential"
	kindTransport  = "transport"
	kindHTTPStatus = "http_status"
	kindUnexpected = "unexpected"
)

// WebSearchOptions configures a WebSearchTool.
//
// Region and SafeSearch are accepted for compatibility but are never sent to
// the backend.
type WebSearchOptions struct {
	NumResults int
	Region     string
	SafeSearch bool
}

// DefaultWebSearchOptions returns 10 results, region "en-US", safe search on.
func DefaultWebSearchOptions() WebSearchOptions {
	return WebSearchOptions{
		NumResults: DefaultNumResults,
		Region:     defaultRegion,
		SafeSearch: true,
	}
}

// WebSearchTool exposes a SearchBackend as the "web_search" tool.
// It is immutable after construction and safe for concurrent use.
type WebSearchTool struct {
	backend SearchBackend
	opts    WebSearchOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWebSearchTool creates the tool. A zero NumResults means the default of
// 10; any other value outside [1, 50] is rejected. m may be nil; a nil
// logger means slog.Default().
func NewWebSearchTool(backend SearchBackend, opts WebSearchOptions, logger *slog.Logger, m *metrics.Metrics) (*WebSearchTool, error) {
	if backend == nil {
		return nil, domain.NewDomainError("NewWebSearchTool", domain.ErrInvalidInput, "search backend is required")
	}
	if opts.NumResults == 0 {
		opts.NumResults = DefaultNumResults
	}
	if err := ValidateRange("num_results", opts.NumResults, MinNumResults, MaxNumResults); err != nil {
		return nil, domain.NewDomainError("NewWebSearchTool", domain.ErrInvalidInput, err.Error())
	}
	if opts.Region == "" {
		opts.Region = defaultRegion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearchTool{
		backend: backend,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}, nil
}

func (t *WebSearchTool) Name() string        { return "web_search" }
func (t *WebSearchTool) Description() string { return webSearchDescription }

// Options returns the effective configuration.
func (t *WebSearchTool) Options() WebSearchOptions { return t.opts }

func (t *WebSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(fmt.Sprintf(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "The search query"},
				"count": {"type": "integer", "minimum": %d, "maximum": %d, "description": "Number of results (default: %d)"}
			},
			"required": ["query"]
		}`, MinNumResults, MaxNumResults, t.opts.NumResults)),
	}
}

// Invoke runs one search and renders it as text. Failures are returned as
// "Search failed: <message>"; it never panics on backend errors.
func (t *WebSearchTool) Invoke(ctx context.Context, query string) string {
	out, _ := t.run(ctx, query, t.opts.NumResults)
	return out
}

// InvokeAsync runs Invoke on a separate goroutine. The channel receives
// exactly one value and is then closed.
func (t *WebSearchTool) InvokeAsync(ctx context.Context, query string) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		out <- t.Invoke(ctx, query)
	}()
	return out
}

type webSearchParams struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

// Execute is the host-facing entry point. Every failure, including bad
// params, is reported as "Search failed: <message>" like Invoke. An empty
// query is passed through to the backend.
func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	result, err := Execute(ctx, "tool.web_search", t.logger, params,
		func(ctx context.Context, span trace.Span, p webSearchParams) (any, error) {
			span.SetAttributes(tracer.StringAttr("tool.query", p.Query))

			limit := t.opts.NumResults
			if p.Count != 0 {
				if err := ValidateRange("count", p.Count, MinNumResults, MaxNumResults); err != nil {
					return nil, err
				}
				limit = p.Count
			}

			content, err := t.run(ctx, p.Query, limit)
			if err != nil {
				return &domain.ToolResult{
					Content:     content,
					IsError:     true,
					IsRetryable: classifyToolError(err),
				}, nil
			}
			return content, nil
		},
	)
	if result != nil && result.IsError && !strings.HasPrefix(result.Content, searchFailedPrefix) {
		result.Content = t.FormatParamError(errors.New(result.Content))
	}
	return result, err
}

// FormatParamError renders a rejected call the way a failed search is rendered.
func (t *WebSearchTool) FormatParamError(err error) string {
	return searchFailedPrefix + err.Error()
}

// run performs the search and always returns the text shown to the caller.
// The error is non-nil only so callers can flag the result.
func (t *WebSearchTool) run(ctx context.Context, query string, limit int) (string, error) {
	start := time.Now()
	backend := t.backend.Name()

	results, err := t.backend.Search(ctx, query, limit)
	if err != nil {
		kind := errorKind(err)
		t.logFailure(kind, query, err)
		t.metrics.ObserveSearch(backend, outcomeFor(kind), 0, time.Since(start))
		return searchFailedPrefix + err.Error(), err
	}

	if len(results) > limit {
		results = results[:limit]
	}

	outcome := metrics.OutcomeOK
	if len(results) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	t.metrics.ObserveSearch(backend, outcome, len(results), time.Since(start))
	t.logger.Debug("web search completed", "backend", backend, "results", len(results))

	return formatSearchResults(results), nil
}

func (t *WebSearchTool) logFailure(kind, query string, err error) {
	if kind == kindUnexpected {
		t.logger.Error("web search failed with unexpected error",
			"kind", kind, "type", fmt.Sprintf("%T", err), "query", query, "error", err)
		return
	}
	t.logger.Warn("web search failed", "kind", kind, "query", query, "error", err)
}

// errorKind maps err onto the closed set of search failure kinds.
func errorKind(err error) string {
	var credErr *domain.CredentialError
	var transportErr *domain.TransportError
	var statusErr *domain.HTTPStatusError
	switch {
	case errors.As(err, &credErr):
		return kindCredential
	case errors.As(err, &transportErr):
		return kindTransport
	case errors.As(err, &statusErr):
		return kindHTTPStatus
	default:
		return kindUnexpected
	}
}

func outcomeFor(kind string) string {
	switch kind {
	case kindCredential:
		return metrics.OutcomeCredential
	case kindTransport:
		return metrics.OutcomeTransport
	case kindHTTPStatus:
		return metrics.OutcomeHTTPStatus
	default:
		return metrics.OutcomeUnexpected
	}
}

// formatSearchResults renders each result as a four-line block:
//
//	{position}. {title}
//	   URL: {link}
//	   Preview: {snippet}
//	(blank)
func formatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return noResultsMessage
	}

	lines := make([]string, 0, len(results)*4)
	for _, r := range results {
		lines = append(lines,
			fmt.Sprintf("%d. %s", r.Position, r.Title),
			"   URL: "+r.Link,
			"   Preview: "+r.Snippet,
			"",
		)
	}
	return strings.Join(lines, "\n")
}
