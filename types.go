package lettasdk

import (
	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/hook"
	"github.com/letta-ai/letta-agent-sdk-go/internal/orchestrator"
	"github.com/letta-ai/letta-agent-sdk-go/internal/permission"
	"github.com/letta-ai/letta-agent-sdk-go/internal/transcript"
)

// Service types describing the remote agent contract.
type (
	// Service is the remote agent service the SDK drives turns against.
	Service = api.Service

	// EventStream is one turn's incremental event stream.
	EventStream = api.EventStream

	// TurnRequest is the outbound payload of one turn submission.
	TurnRequest = api.TurnRequest

	// Message is one conversation message.
	Message = api.Message

	// ApprovalRequest is a tool invocation proposed by the agent.
	ApprovalRequest = api.ApprovalRequest

	// ApprovalDecision is an allow or deny verdict for one approval request.
	ApprovalDecision = api.ApprovalDecision

	// ToolResult is the outcome of one executed tool call.
	ToolResult = api.ToolResult

	// Usage carries token accounting for a turn.
	Usage = api.Usage

	// ServerError is a structured failure reported by the service.
	ServerError = api.ServerError

	// StopReason is the terminal condition of a turn.
	StopReason = api.StopReason

	// ToolStatus is the outcome category of a tool execution.
	ToolStatus = api.ToolStatus

	// ErrorCode is a structured service error code.
	ErrorCode = api.ErrorCode
)

// Stop reasons.
const (
	StopEndTurn          = api.StopEndTurn
	StopRequiresApproval = api.StopRequiresApproval
	StopCancelled        = api.StopCancelled
	StopError            = api.StopError
)

// Tool statuses.
const (
	ToolStatusSuccess     = api.ToolStatusSuccess
	ToolStatusError       = api.ToolStatusError
	ToolStatusDenied      = api.ToolStatusDenied
	ToolStatusInterrupted = api.ToolStatusInterrupted
)

// Service error codes.
const (
	CodeApprovalPending    = api.CodeApprovalPending
	CodeInvalidToolCallIDs = api.CodeInvalidToolCallIDs
	CodeConversationBusy   = api.CodeConversationBusy
)

// Lifecycle events delivered on the client's event channel.
type (
	// TurnEvent is a typed lifecycle notification.
	TurnEvent = orchestrator.Event

	// TurnStartedEvent signals a submission began executing.
	TurnStartedEvent = orchestrator.TurnStartedEvent

	// TextEvent carries one agent output delta.
	TextEvent = orchestrator.TextEvent

	// ApprovalNeededEvent signals the turn is suspended on approvals.
	ApprovalNeededEvent = orchestrator.ApprovalNeededEvent

	// TurnFinishedEvent signals a terminal stop reason.
	TurnFinishedEvent = orchestrator.TurnFinishedEvent

	// ErrorEvent signals an unrecoverable turn failure.
	ErrorEvent = orchestrator.ErrorEvent

	// TurnResult summarizes a finished turn.
	TurnResult = orchestrator.TurnResult
)

// Permission policy types.
type (
	// PermissionPolicy decides whether a tool call may run without user
	// input.
	PermissionPolicy = permission.Policy

	// PermissionRule maps a tool name to a behavior.
	PermissionRule = permission.Rule

	// PermissionDecision is a policy verdict for one tool call.
	PermissionDecision = permission.Decision

	// Behavior is a permission verdict category.
	Behavior = permission.Behavior
)

// Permission behaviors.
const (
	BehaviorAllow = permission.BehaviorAllow
	BehaviorDeny  = permission.BehaviorDeny
	BehaviorAsk   = permission.BehaviorAsk
)

// Transcript types.
type (
	// TranscriptBuffer is the append-only sink turn activity is recorded
	// into.
	TranscriptBuffer = transcript.Buffer

	// TranscriptEntry is one transcript record.
	TranscriptEntry = transcript.Entry

	// MemoryTranscript keeps transcript entries in memory.
	MemoryTranscript = transcript.MemoryBuffer
)

// NewMemoryTranscript returns an empty in-memory transcript.
func NewMemoryTranscript() *MemoryTranscript {
	return transcript.NewMemoryBuffer()
}

// Hook types for turn-boundary callbacks.
type (
	// HookEvent is the lifecycle point a hook fires at.
	HookEvent = hook.Event

	// HookPayload carries the details of one lifecycle event.
	HookPayload = hook.Payload

	// HookCallback receives lifecycle payloads.
	HookCallback = hook.Callback
)

// Hook events.
const (
	HookTurnStarted      = hook.EventTurnStarted
	HookTurnFinished     = hook.EventTurnFinished
	HookApprovalNeeded   = hook.EventApprovalNeeded
	HookApprovalResolved = hook.EventApprovalResolved
	HookTurnError        = hook.EventTurnError
)
