package errors

import (
	"errors"
	"fmt"
)

// LettaSDKError is the base interface for all SDK errors.
type LettaSDKError interface {
	error
	IsLettaSDKError() bool
}

// Compile-time verification that all error types implement LettaSDKError.
var (
	_ LettaSDKError = (*TurnFailedError)(nil)
	_ LettaSDKError = (*EventParseError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrServiceRequired indicates no agent service was configured.
	ErrServiceRequired = errors.New("agent service is required: configure one with WithService()")

	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.New("client not started")

	// ErrAlreadyStarted indicates the client is already started.
	ErrAlreadyStarted = errors.New("client already started")

	// ErrTurnInFlight indicates a non-reentrant submission arrived while a
	// turn was already executing.
	ErrTurnInFlight = errors.New("turn already in flight")

	// ErrStaleGeneration indicates a continuation belongs to a superseded
	// turn generation and must not run.
	ErrStaleGeneration = errors.New("stale turn generation")

	// ErrNoPendingApprovals indicates a resolution was submitted while no
	// approval batch was pending.
	ErrNoPendingApprovals = errors.New("no pending approvals")

	// ErrApprovalMismatch indicates a resolution did not cover exactly the
	// pending approval batch.
	ErrApprovalMismatch = errors.New("approval decisions do not match pending batch")

	// ErrRetriesExhausted indicates the retry budget for a turn ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrControllerClosed indicates the controller has been closed and cannot
	// be reused.
	ErrControllerClosed = errors.New("controller closed: controllers are single-use, create a new one with New()")

	// ErrUnknownEventType indicates the event type is not recognized by the SDK.
	// Callers should skip these events rather than treating them as fatal.
	ErrUnknownEventType = errors.New("unknown event type")
)

// TurnFailedError indicates a turn ended in an unrecoverable error after all
// recovery options were exhausted.
type TurnFailedError struct {
	RunID    string
	Attempts int
	Err      error
}

func (e *TurnFailedError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("turn failed after %d attempts: %v", e.Attempts, e.Err)
	}

	return fmt.Sprintf("turn failed: %v", e.Err)
}

func (e *TurnFailedError) Unwrap() error {
	return e.Err
}

// IsLettaSDKError implements LettaSDKError.
func (e *TurnFailedError) IsLettaSDKError() bool { return true }

// EventParseError indicates stream event parsing failed.
// This error preserves the original raw data that failed to parse.
type EventParseError struct {
	Err  error
	Data map[string]any
}

func (e *EventParseError) Error() string {
	return fmt.Sprintf("failed to parse event: %v", e.Err)
}

func (e *EventParseError) Unwrap() error {
	return e.Err
}

// IsLettaSDKError implements LettaSDKError.
func (e *EventParseError) IsLettaSDKError() bool { return true }
