package api

import (
	"context"
	"fmt"
	"time"
)

// StopReason indicates why a turn's event stream terminated.
type StopReason string

const (
	// StopEndTurn indicates the agent finished the turn normally.
	StopEndTurn StopReason = "end_turn"
	// StopRequiresApproval indicates the agent proposed tool calls that need
	// local allow/deny decisions before the turn can continue.
	StopRequiresApproval StopReason = "requires_approval"
	// StopCancelled indicates the turn was cancelled by the client.
	StopCancelled StopReason = "cancelled"
	// StopError indicates the server ended the turn with an error-like reason.
	StopError StopReason = "error"
)

// Message is one entry of a turn's outbound payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ApprovalRequest is a tool invocation proposed by the remote agent.
// It requires a decision before the tool executes or before its result is
// reported back.
//
//nolint:tagliatelle // server protocol uses snake_case
type ApprovalRequest struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	ToolArgs   map[string]any `json:"tool_args"`
}

// ToolStatus describes the outcome of one tool execution.
type ToolStatus string

const (
	// ToolStatusSuccess indicates the tool executed and returned a value.
	ToolStatusSuccess ToolStatus = "success"
	// ToolStatusError indicates the tool executed and failed.
	ToolStatusError ToolStatus = "error"
	// ToolStatusDenied indicates the call was denied before execution.
	ToolStatusDenied ToolStatus = "denied"
	// ToolStatusInterrupted indicates the call was interrupted by the user
	// before it started or while it was running.
	ToolStatusInterrupted ToolStatus = "interrupted"
)

// ToolResult is the structured outcome of one tool call.
//
//nolint:tagliatelle // server protocol uses snake_case
type ToolResult struct {
	ToolCallID  string     `json:"tool_call_id"`
	Status      ToolStatus `json:"status"`
	ReturnValue any        `json:"return_value,omitempty"`
	Stdout      string     `json:"stdout,omitempty"`
	Stderr      string     `json:"stderr,omitempty"`
}

// ApprovalDecision resolves one ApprovalRequest. Approve optionally carries a
// precomputed result when the tool already executed locally; Deny carries a
// human-readable reason.
//
//nolint:tagliatelle // server protocol uses snake_case
type ApprovalDecision struct {
	ToolCallID  string      `json:"tool_call_id"`
	Approve     bool        `json:"approve"`
	Reason      string      `json:"reason,omitempty"`
	Precomputed *ToolResult `json:"precomputed,omitempty"`
}

// Usage holds token accounting for one run.
//
//nolint:tagliatelle // server protocol uses snake_case
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TurnRequest is one turn's outbound payload: user/notification messages
// and/or a batch of approval decisions. A decision batch must exactly match,
// by identifier, the pending approvals the server holds for the conversation.
type TurnRequest struct {
	Messages  []Message          `json:"messages,omitempty"`
	Decisions []ApprovalDecision `json:"decisions,omitempty"`
}

// Service is the remote agent service the orchestration core drives.
//
// SubmitTurn starts one turn and returns its incremental event stream.
// PendingApprovals returns the authoritative set of approvals the server
// believes are outstanding for the conversation. CancelTurn asks the server
// to stop the in-flight turn; the stream then terminates with StopCancelled.
type Service interface {
	SubmitTurn(ctx context.Context, conversationID string, req TurnRequest) (EventStream, error)
	PendingApprovals(ctx context.Context, conversationID string) ([]ApprovalRequest, error)
	CancelTurn(ctx context.Context, conversationID string) error
}

// EventStream yields one turn's events in order. Next blocks until an event
// is available, the stream ends, or the context is cancelled. After the
// terminal TurnComplete event, Next returns io.EOF.
type EventStream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// ErrorCode is a structured classification attached to server errors.
// Older servers omit it; the recovery engine then falls back to a message
// heuristic.
type ErrorCode string

const (
	// CodeApprovalPending means the server believes an approval is outstanding
	// that the client's cache does not reflect.
	CodeApprovalPending ErrorCode = "approval_pending"
	// CodeInvalidToolCallIDs means the server's pending approvals carry
	// different identifiers than the batch the client sent.
	CodeInvalidToolCallIDs ErrorCode = "invalid_tool_call_ids"
	// CodeConversationBusy means another turn holds the conversation lock.
	CodeConversationBusy ErrorCode = "conversation_busy"
)

// ServerError is an error reported by the remote agent service, either as a
// pre-stream submission failure or mid-stream.
type ServerError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	RunID      string
	RetryAfter *time.Duration
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error [%s]: %s", e.Code, e.Message)
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("server error: %s", e.Message)
}
