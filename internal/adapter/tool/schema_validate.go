package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"querit-websearch/internal/domain"
)

// paramErrorFormatter is implemented by tools that render rejected params
// through their own display channel (web_search prefixes "Search failed: ").
type paramErrorFormatter interface {
	FormatParamError(err error) string
}

// ParamsError describes params rejected before the tool ran.
type ParamsError struct {
	Tool   string
	Issues []string // "<instance location>: <message>", root first
}

func (e *ParamsError) Error() string {
	return "invalid params: " + strings.Join(e.Issues, "; ")
}

// SchemaValidatingTool checks params against the tool's compiled JSON Schema
// before delegating, so bounds such as web_search's count range are enforced
// without reaching the backend.
type SchemaValidatingTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation compiles t's parameter schema and wraps t with it.
// Tools without a schema are returned unchanged.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	url := t.Name() + ".params.json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}
	return &SchemaValidatingTool{inner: t, schema: compiled}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

// Unwrap returns the wrapped tool.
func (s *SchemaValidatingTool) Unwrap() domain.Tool { return s.inner }

func (s *SchemaValidatingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if err := s.check(params); err != nil {
		return &domain.ToolResult{IsError: true, Content: s.render(err)}, nil
	}
	return s.inner.Execute(ctx, params)
}

// check decodes params with json.Number so integer keywords see exact values.
func (s *SchemaValidatingTool) check(params json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &ParamsError{Tool: s.Name(), Issues: []string{"malformed JSON: " + err.Error()}}
	}

	err := s.schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ParamsError{Tool: s.Name(), Issues: []string{err.Error()}}
	}
	return &ParamsError{Tool: s.Name(), Issues: leafIssues(ve, nil)}
}

func (s *SchemaValidatingTool) render(err error) string {
	if f, ok := s.inner.(paramErrorFormatter); ok {
		return f.FormatParamError(err)
	}
	return err.Error()
}

// leafIssues flattens a validation error tree to its most specific causes.
func leafIssues(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, loc+": "+ve.Message)
	}
	for _, c := range ve.Causes {
		out = leafIssues(c, out)
	}
	return out
}
