package lettasdk

import (
	"github.com/letta-ai/letta-agent-sdk-go/internal/errors"
)

// Error types re-exported for public API.
type (
	// LettaSDKError is the base interface for all SDK errors.
	LettaSDKError = errors.LettaSDKError

	// TurnFailedError indicates a turn ended in an unrecoverable error.
	TurnFailedError = errors.TurnFailedError

	// EventParseError indicates stream event parsing failed.
	EventParseError = errors.EventParseError
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrServiceRequired indicates no agent service was configured.
	ErrServiceRequired = errors.ErrServiceRequired

	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.ErrNotStarted

	// ErrAlreadyStarted indicates the client is already started.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrNoPendingApprovals indicates a resolution was submitted while no
	// approval batch was pending.
	ErrNoPendingApprovals = errors.ErrNoPendingApprovals

	// ErrApprovalMismatch indicates a resolution did not cover exactly the
	// pending approval batch.
	ErrApprovalMismatch = errors.ErrApprovalMismatch

	// ErrRetriesExhausted indicates the retry budget for a turn ran out.
	ErrRetriesExhausted = errors.ErrRetriesExhausted

	// ErrUnknownEventType indicates a stream event of an unrecognized type;
	// callers should skip it and keep reading.
	ErrUnknownEventType = errors.ErrUnknownEventType

	// ErrClientClosed indicates the client has been closed and cannot be
	// reused.
	ErrClientClosed = errors.ErrControllerClosed
)
