// Package mcpserver exposes registered tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"querit-websearch/internal/domain"
)

const serverName = "querit-websearch"

// Server serves every tool of a domain.ToolExecutor as an MCP tool.
type Server struct {
	mcp      *server.MCPServer
	executor domain.ToolExecutor
	logger   *slog.Logger
}

// New builds an MCP server from the executor's current tool set.
func New(executor domain.ToolExecutor, logger *slog.Logger, version string) (*Server, error) {
	if executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if version == "" {
		version = "dev"
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		executor: executor,
		logger:   logger,
	}

	for _, schema := range executor.Schemas() {
		if len(schema.Parameters) == 0 {
			return nil, fmt.Errorf("tool %q has no parameter schema", schema.Name)
		}
		tool := mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters)
		tool.Annotations.ReadOnlyHint = mcp.ToBoolPtr(true)
		tool.Annotations.OpenWorldHint = mcp.ToBoolPtr(true)
		s.mcp.AddTool(tool, s.handler(schema.Name))
		logger.Debug("mcp tool registered", "tool", schema.Name)
	}

	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout until stdin closes or the process is signaled.
// Nothing else may write to stdout while it runs.
func (s *Server) ServeStdio() error {
	errLog := log.New(slogWriter{logger: s.logger}, "", 0)
	return server.ServeStdio(s.mcp, server.WithErrorLogger(errLog))
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := s.executor.Get(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		params, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := t.Execute(ctx, params)
		if err != nil {
			s.logger.Error("mcp tool execution failed", "tool", name, "error", err)
			return nil, domain.WrapOp("execute "+name, err)
		}
		if result.IsError {
			return mcp.NewToolResultError(result.Content), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}

// slogWriter adapts the stdio transport's *log.Logger output onto slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Error("mcp stdio transport", "error", msg)
	return len(p), nil
}
