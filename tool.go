package lettasdk

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/letta-ai/letta-agent-sdk-go/internal/mcp"
)

// Re-export MCP SDK types for public API.
// These are the official MCP protocol types.
type (
	// CallToolResult is the tool's response to a call.
	// Use TextResult or ErrorResult helpers to create results.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// ToolHandler is the function signature for tool handlers.
	ToolHandler = mcp.ToolHandler

	// ToolAnnotations describes optional hints about tool behavior.
	// ReadOnlyHint marks a tool safe to run concurrently with other
	// read-only tools.
	ToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// WithAnnotations sets MCP tool annotations (hints about tool behavior).
func WithAnnotations(annotations *mcp.ToolAnnotations) ToolOption {
	return func(t *Tool) {
		t.Annotations = annotations
	}
}

// WithReadOnly marks the tool read-only, allowing the executor to run it
// concurrently with other read-only tools.
func WithReadOnly() ToolOption {
	return func(t *Tool) {
		if t.Annotations == nil {
			t.Annotations = &mcp.ToolAnnotations{}
		}

		t.Annotations.ReadOnlyHint = true
	}
}

// Tool is a locally executable tool registered with the client.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     ToolHandler
	Annotations *mcp.ToolAnnotations
}

// NewTool creates a Tool with optional configuration.
//
// The inputSchema should be a *jsonschema.Schema. Use SimpleSchema for
// convenience or create a full Schema struct for more control.
//
// Example:
//
//	addTool := lettasdk.NewTool("add", "Add two numbers",
//	    lettasdk.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, req *lettasdk.CallToolRequest) (*lettasdk.CallToolResult, error) {
//	        args, _ := lettasdk.ParseArguments(req)
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return lettasdk.TextResult(fmt.Sprintf("%v", a+b)), nil
//	    },
//	    lettasdk.WithReadOnly(),
//	)
func NewTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler ToolHandler,
	opts ...ToolOption,
) Tool {
	t := Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
		Handler:     handler,
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

// SimpleSchema creates a jsonschema.Schema from a simple type map.
//
// Input format: {"a": "float64", "b": "string"}
//
// Type mappings:
//   - "string"           → {"type": "string"}
//   - "int", "int64"     → {"type": "integer"}
//   - "float64", "float" → {"type": "number"}
//   - "bool"             → {"type": "boolean"}
//   - "[]string"         → {"type": "array", "items": {"type": "string"}}
//   - "any", "object"    → {"type": "object"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
// This is a convenience function for extracting tool input.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}
