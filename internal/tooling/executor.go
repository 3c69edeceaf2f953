// Package tooling executes approved tool calls against the in-process tool
// server and folds the outcomes into turn results.
package tooling

import (
	"context"
	"errors"
	"log/slog"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/mcp"
)

// Executor runs a single tool call and reports scheduling hints for it.
type Executor interface {
	// Execute runs the tool call and returns its result. Failures are
	// encoded in the result status, never as a Go error, so a broken tool
	// produces a result the conversation can continue from.
	Execute(ctx context.Context, req api.ApprovalRequest) api.ToolResult

	// ReadOnly reports whether the named tool may run concurrently with
	// other read-only tools.
	ReadOnly(toolName string) bool
}

// MCPExecutor executes tool calls against an in-process mcp.Server.
type MCPExecutor struct {
	log    *slog.Logger
	server *mcp.Server
}

// NewMCPExecutor creates an executor backed by the given tool server.
func NewMCPExecutor(logger *slog.Logger, server *mcp.Server) *MCPExecutor {
	return &MCPExecutor{
		log:    logger.With("component", "tool_executor"),
		server: server,
	}
}

// Execute implements Executor.
func (e *MCPExecutor) Execute(ctx context.Context, req api.ApprovalRequest) api.ToolResult {
	e.log.Debug("Executing tool call",
		"tool_call_id", req.ToolCallID,
		"tool_name", req.ToolName)

	result, err := e.server.CallTool(ctx, req.ToolName, req.ToolArgs)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return api.ToolResult{
				ToolCallID: req.ToolCallID,
				Status:     api.ToolStatusInterrupted,
				Stderr:     "tool call interrupted",
			}
		}

		return api.ToolResult{
			ToolCallID: req.ToolCallID,
			Status:     api.ToolStatusError,
			Stderr:     err.Error(),
		}
	}

	text := mcp.ResultText(result)

	if result.IsError {
		e.log.Debug("Tool call failed",
			"tool_call_id", req.ToolCallID,
			"tool_name", req.ToolName)

		return api.ToolResult{
			ToolCallID: req.ToolCallID,
			Status:     api.ToolStatusError,
			Stderr:     text,
		}
	}

	return api.ToolResult{
		ToolCallID:  req.ToolCallID,
		Status:      api.ToolStatusSuccess,
		ReturnValue: text,
		Stdout:      text,
	}
}

// ReadOnly implements Executor.
func (e *MCPExecutor) ReadOnly(toolName string) bool {
	return e.server.ReadOnly(toolName)
}

// Compile-time verification that MCPExecutor implements Executor.
var _ Executor = (*MCPExecutor)(nil)
