package tool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"querit-websearch/internal/domain"
	"querit-websearch/internal/infra/metrics"
	"querit-websearch/internal/infra/tracer"
)

const (
	// QueritEndpoint is the production search URL.
	QueritEndpoint = "https://api.querit.ai/v1/search"
	// QueritAPIKeyEnv is consulted when no key is passed to NewQueritBackend.
	QueritAPIKeyEnv = "QUERIT_API_KEY"

	queritTimeout      = 30 * time.Second
	maxSearchBodySize  = 1 << 20 // 1MB
	maxErrorBodyLength = 256
)

// queritRequest is the POST body sent to the search endpoint.
type queritRequest struct {
	Query string `json:"query"`
}

// QueritBackend searches the web via the Querit search API.
// The key and endpoint are fixed at construction; Search is safe for concurrent use.
type QueritBackend struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	client     *resty.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// QueritOption customizes a QueritBackend.
type QueritOption func(*QueritBackend)

// WithEndpoint overrides the search URL.
func WithEndpoint(endpoint string) QueritOption {
	return func(b *QueritBackend) {
		if endpoint != "" {
			b.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the underlying HTTP client. Its Timeout is replaced
// with the fixed 30s request timeout.
func WithHTTPClient(hc *http.Client) QueritOption {
	return func(b *QueritBackend) {
		if hc != nil {
			b.httpClient = hc
		}
	}
}

// WithMetrics records upstream status codes on m.
func WithMetrics(m *metrics.Metrics) QueritOption {
	return func(b *QueritBackend) { b.metrics = m }
}

// NewQueritBackend creates a Querit search backend. An empty apiKey is
// resolved from QUERIT_API_KEY; a key that is still missing is reported by
// Search, not here. A nil logger means slog.Default().
func NewQueritBackend(apiKey string, logger *slog.Logger, opts ...QueritOption) *QueritBackend {
	if apiKey == "" {
		apiKey = os.Getenv(QueritAPIKeyEnv)
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &QueritBackend{
		apiKey:     apiKey,
		endpoint:   QueritEndpoint,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.client = resty.NewWithClient(b.httpClient).
		SetTimeout(queritTimeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "querit-websearch/1.0").
		SetLogger(restyLogger{logger: logger})
	return b
}

func (b *QueritBackend) Name() string { return "querit" }

// Endpoint returns the configured search URL.
func (b *QueritBackend) Endpoint() string { return b.endpoint }

// ValidateCredentials reports whether an API key is available.
func (b *QueritBackend) ValidateCredentials() bool {
	return strings.TrimSpace(b.apiKey) != ""
}

func (b *QueritBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if !b.ValidateCredentials() {
		return nil, &domain.CredentialError{Provider: "Querit", EnvVar: QueritAPIKeyEnv}
	}

	ctx, span := tracer.StartSpan(ctx, "search.querit",
		trace.WithAttributes(tracer.IntAttr("search.limit", limit)),
	)
	defer span.End()

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(b.apiKey).
		SetBody(queritRequest{Query: query}).
		SetDoNotParseResponse(true).
		Post(b.endpoint)
	if err != nil {
		terr := &domain.TransportError{Op: "querit search", Err: err}
		tracer.RecordError(span, terr)
		return nil, terr
	}
	raw := resp.RawBody()
	defer raw.Close()

	status := resp.StatusCode()
	span.SetAttributes(tracer.IntAttr("http.status_code", status))
	b.metrics.ObserveUpstream(b.Name(), status)

	body, readErr := io.ReadAll(io.LimitReader(raw, maxSearchBodySize+1))
	tooLarge := len(body) > maxSearchBodySize
	if tooLarge {
		body = body[:maxSearchBodySize]
	}

	if status < 200 || status > 299 {
		serr := &domain.HTTPStatusError{
			StatusCode: status,
			URL:        b.endpoint,
			Body:       truncateBody(body),
		}
		tracer.RecordError(span, serr)
		return nil, serr
	}
	if readErr != nil {
		terr := &domain.TransportError{Op: "read querit response", Err: readErr}
		tracer.RecordError(span, terr)
		return nil, terr
	}

	if tooLarge {
		err := fmt.Errorf("querit response too large: exceeds %d bytes", maxSearchBodySize)
		tracer.RecordError(span, err)
		return nil, err
	}

	results, err := b.parseResults(body, limit)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(tracer.IntAttr("search.results", len(results)))
	tracer.SetOK(span)
	b.logger.Debug("querit search completed", "results", len(results), "status", status)
	return results, nil
}

// parseResults maps results.result[] onto SearchResult records, truncated to
// limit. Valid JSON of any other shape yields no results.
func (b *QueritBackend) parseResults(body []byte, limit int) ([]SearchResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse querit response: invalid JSON (%d bytes)", len(body))
	}

	items := gjson.GetBytes(body, "results.result")
	if !items.IsArray() {
		b.logger.Warn("unexpected response shape from querit, returning no results",
			"top_level_keys", topLevelKeys(body))
		return []SearchResult{}, nil
	}

	all := items.Array()
	n := max(min(len(all), limit), 0)
	results := make([]SearchResult, 0, n)
	for i, item := range all[:n] {
		results = append(results, SearchResult{
			Title:       stringField(item, "title"),
			Link:        stringField(item, "url"),
			Snippet:     stringField(item, "snippet"),
			DisplayLink: stringField(item, "site_name"),
			Position:    i + 1,
		})
	}
	return results, nil
}

// stringField reads key from an object item. Missing keys, nulls, nested
// values, and non-object items all read as "".
func stringField(item gjson.Result, key string) string {
	if !item.IsObject() {
		return ""
	}
	v := item.Get(key)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number, gjson.True, gjson.False:
		return v.String()
	default:
		return ""
	}
}

func topLevelKeys(body []byte) []string {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil
	}
	var keys []string
	parsed.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLength {
		s = s[:maxErrorBodyLength] + "..."
	}
	return s
}

// restyLogger routes resty's internal logging through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Warn("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}
