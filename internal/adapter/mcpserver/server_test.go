package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querit-websearch/internal/adapter/tool"
	"querit-websearch/internal/domain"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubBackend struct {
	results []tool.SearchResult
	err     error
	queries []string
	limits  []int
}

func (b *stubBackend) Search(_ context.Context, query string, limit int) ([]tool.SearchResult, error) {
	b.queries = append(b.queries, query)
	b.limits = append(b.limits, limit)
	return b.results, b.err
}

func (b *stubBackend) Name() string { return "stub" }

func newTestServer(t *testing.T, backend tool.SearchBackend) *Server {
	t.Helper()
	reg, _, err := tool.NewDefaultRegistry(backend, tool.WebSearchOptions{}, nopLogger(), nil)
	require.NoError(t, err)
	s, err := New(reg, nopLogger(), "test")
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return text.Text
}

func TestNewRequiresExecutor(t *testing.T) {
	s, err := New(nil, nopLogger(), "test")
	require.Error(t, err)
	require.Nil(t, s)
}

type emptySchemaExecutor struct{}

func (emptySchemaExecutor) Get(string) (domain.Tool, error) { return nil, domain.ErrToolNotFound }
func (emptySchemaExecutor) Schemas() []domain.ToolSchema {
	return []domain.ToolSchema{{Name: "broken"}}
}

func TestNewRejectsToolWithoutSchema(t *testing.T) {
	_, err := New(emptySchemaExecutor{}, nopLogger(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestHandlerSuccess(t *testing.T) {
	backend := &stubBackend{results: []tool.SearchResult{
		{Title: "A", Link: "http://a", Snippet: "s1", Position: 1},
		{Title: "B", Link: "http://b", Snippet: "s2", Position: 2},
	}}
	s := newTestServer(t, backend)

	result, err := s.handler("web_search")(context.Background(), callRequest("web_search", map[string]any{"query": "letters", "count": 2}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "1. A\n   URL: http://a\n   Preview: s1\n\n2. B\n   URL: http://b\n   Preview: s2\n", textOf(t, result))
	assert.Equal(t, []string{"letters"}, backend.queries)
	assert.Equal(t, []int{2}, backend.limits)
}

func TestHandlerSearchFailure(t *testing.T) {
	backend := &stubBackend{err: &domain.CredentialError{Provider: "Querit", EnvVar: "QUERIT_API_KEY"}}
	s := newTestServer(t, backend)

	result, err := s.handler("web_search")(context.Background(), callRequest("web_search", map[string]any{"query": "x"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Equal(t, "Search failed: Querit API key not found. Please set QUERIT_API_KEY environment variable.", textOf(t, result))
}

func TestHandlerSchemaViolation(t *testing.T) {
	backend := &stubBackend{}
	s := newTestServer(t, backend)

	result, err := s.handler("web_search")(context.Background(), callRequest("web_search", nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.True(t, strings.HasPrefix(textOf(t, result), "Search failed: invalid params: "), textOf(t, result))
	assert.Contains(t, textOf(t, result), "query")
	assert.Empty(t, backend.queries)
}

func TestHandlerUnknownTool(t *testing.T) {
	s := newTestServer(t, &stubBackend{})

	result, err := s.handler("missing")(context.Background(), callRequest("missing", nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "tool not found")
}

type failingTool struct{}

func (failingTool) Name() string        { return "failing" }
func (failingTool) Description() string { return "always fails" }
func (failingTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: "failing", Parameters: json.RawMessage(`{"type":"object"}`)}
}
func (failingTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return nil, errors.New("internal failure")
}

func TestHandlerExecuteGoError(t *testing.T) {
	reg := tool.NewRegistry(nil)
	require.NoError(t, reg.Register(failingTool{}))
	s, err := New(reg, nopLogger(), "test")
	require.NoError(t, err)

	_, err = s.handler("failing")(context.Background(), callRequest("failing", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal failure")
}

func TestInProcessClientRoundTrip(t *testing.T) {
	backend := &stubBackend{results: []tool.SearchResult{{Title: "Go", Link: "https://go.dev", Snippet: "The Go language", Position: 1}}}
	s := newTestServer(t, backend)

	ctx := context.Background()
	c, err := mcpclient.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "websearch-test", Version: "1.0.0"}
	info, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "querit-websearch", info.ServerInfo.Name)
	assert.Equal(t, "test", info.ServerInfo.Version)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "web_search", tools.Tools[0].Name)
	assert.Contains(t, tools.Tools[0].Description, "Querit Search API")

	result, err := c.CallTool(ctx, callRequest("web_search", map[string]any{"query": "golang"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "1. Go\n   URL: https://go.dev\n   Preview: The Go language\n", textOf(t, result))
	assert.Equal(t, []int{10}, backend.limits)
}

func TestSlogWriterTrimsNewline(t *testing.T) {
	var got string
	h := &captureHandler{fn: func(r slog.Record) {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "error" {
				got = a.Value.String()
			}
			return true
		})
	}}
	w := slogWriter{logger: slog.New(h)}

	n, err := w.Write([]byte("read stdin: EOF\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, "read stdin: EOF", got)
}

type captureHandler struct {
	fn func(slog.Record)
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.fn(r)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }
