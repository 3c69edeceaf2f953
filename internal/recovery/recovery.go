// Package recovery classifies turn failures and drives cancellable backoff.
//
// Classification prefers the structured error code when the service sends
// one; the substring heuristic for older servers lives here and nowhere
// else, so callers only ever see a Kind.
package recovery

import (
	"errors"
	"strings"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
)

// Kind partitions turn failures by how they can be recovered.
type Kind string

const (
	// KindTerminal is unrecoverable; the failure escalates to the caller.
	KindTerminal Kind = "terminal"

	// KindApprovalPendingDesync means the server believes an approval is
	// outstanding that the client's cache does not reflect.
	KindApprovalPendingDesync Kind = "approval_pending_desync"

	// KindInvalidToolCallIDs means the server's pending approvals carry
	// different identifiers than the client sent.
	KindInvalidToolCallIDs Kind = "invalid_tool_call_ids"

	// KindConversationBusy is upstream lock contention on the conversation.
	KindConversationBusy Kind = "conversation_busy"

	// KindTransient is a network error, 5xx, or rate limit.
	KindTransient Kind = "transient"
)

// Action is the single recovery step the orchestrator takes for a failure.
type Action string

const (
	// ActionEscalate surfaces the failure to the caller without retrying.
	ActionEscalate Action = "escalate"

	// ActionResyncApprovals fetches the authoritative pending approvals,
	// synthesizes denials for stale ones, and retries immediately.
	ActionResyncApprovals Action = "resync_approvals"

	// ActionAdoptPending fetches the authoritative pending approvals and
	// hands them to the caller as the new pending set, ending the retry
	// loop.
	ActionAdoptPending Action = "adopt_pending"

	// ActionRetryAfterBackoff waits out a cancellable backoff, then
	// retries.
	ActionRetryAfterBackoff Action = "retry_after_backoff"
)

// actions is the exhaustive decision table from failure kind to recovery
// action. The orchestrator consumes it through Plan and contains no error
// inspection of its own.
var actions = map[Kind]Action{
	KindTerminal:              ActionEscalate,
	KindApprovalPendingDesync: ActionResyncApprovals,
	KindInvalidToolCallIDs:    ActionAdoptPending,
	KindConversationBusy:      ActionRetryAfterBackoff,
	KindTransient:             ActionRetryAfterBackoff,
}

// Classify maps an error to its recovery Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindTerminal
	}

	var serverErr *api.ServerError
	if !errors.As(err, &serverErr) {
		return KindTransient
	}

	switch serverErr.Code {
	case api.CodeApprovalPending:
		return KindApprovalPendingDesync
	case api.CodeInvalidToolCallIDs:
		return KindInvalidToolCallIDs
	case api.CodeConversationBusy:
		return KindConversationBusy
	}

	switch {
	case serverErr.StatusCode == 429,
		serverErr.StatusCode == 408,
		serverErr.StatusCode >= 500 && serverErr.StatusCode <= 599:
		return KindTransient
	}

	return classifyByMessage(serverErr.Message)
}

// classifyByMessage is the fallback for servers that predate structured
// error codes. The phrases match the service's known error text.
func classifyByMessage(message string) Kind {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "approval required") ||
		strings.Contains(msg, "approval is pending") ||
		strings.Contains(msg, "pending approval"):
		return KindApprovalPendingDesync
	case strings.Contains(msg, "tool call id") ||
		strings.Contains(msg, "tool_call_id"):
		return KindInvalidToolCallIDs
	case strings.Contains(msg, "busy") ||
		strings.Contains(msg, "another run"):
		return KindConversationBusy
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporarily") ||
		strings.Contains(msg, "overloaded"):
		return KindTransient
	}

	return KindTerminal
}

// Plan classifies err and returns the recovery action for it.
func Plan(err error) (Kind, Action) {
	kind := Classify(err)

	return kind, actions[kind]
}
