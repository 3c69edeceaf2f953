package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	sdkerrors "github.com/letta-ai/letta-agent-sdk-go/internal/errors"
	"github.com/letta-ai/letta-agent-sdk-go/internal/hook"
	"github.com/letta-ai/letta-agent-sdk-go/internal/recovery"
	"github.com/letta-ai/letta-agent-sdk-go/internal/transcript"
)

// recover consumes one turn failure through the recovery decision table.
//
// The return value encodes the next step for the loop: a non-nil input
// means retry with it, (nil, nil) means the turn resolved without retrying
// (suspended on adopted approvals, or cancelled mid-backoff), and a non-nil
// error means the failure escalated.
func (o *Orchestrator) recover(ctx context.Context, input TurnInput, err error) (*TurnInput, error) {
	kind, action := recovery.Plan(err)

	o.log.Debug("Recovering from turn failure",
		"kind", kind,
		"action", action,
		"error", err)

	switch action {
	case recovery.ActionResyncApprovals:
		return o.resyncApprovals(ctx, input, kind, err)

	case recovery.ActionAdoptPending:
		return o.adoptPending(ctx, err)

	case recovery.ActionRetryAfterBackoff:
		return o.retryAfterBackoff(ctx, input, kind, err)

	default:
		return nil, o.escalate(err)
	}
}

// resyncApprovals handles an approval-pending desync: the server is holding
// approvals the client no longer tracks. They are answered with synthesized
// denials and the original input retries immediately, on the shared
// transient budget.
func (o *Orchestrator) resyncApprovals(ctx context.Context, input TurnInput, kind recovery.Kind, cause error) (*TurnInput, error) {
	o.mu.Lock()
	ok := o.budget.Consume(kind)
	o.mu.Unlock()

	if !ok {
		return nil, o.escalate(fmt.Errorf("%w: %w", sdkerrors.ErrRetriesExhausted, cause))
	}

	stale, err := o.fetchPending(ctx)
	if err != nil {
		return nil, o.escalate(err)
	}

	o.log.Info("Resynced pending approvals", "stale_count", len(stale))

	next := input
	denials := make([]api.ApprovalDecision, 0, len(stale)+len(input.Decisions))

	for _, req := range stale {
		denials = append(denials, api.ApprovalDecision{
			ToolCallID: req.ToolCallID,
			Approve:    false,
			Reason:     "approval superseded by a newer submission",
		})
	}

	next.Decisions = append(denials, input.Decisions...)

	return &next, nil
}

// adoptPending handles an identifier desync: the server's pending approvals
// are authoritative, so they replace the client's view and surface to the
// user instead of retrying silently.
func (o *Orchestrator) adoptPending(ctx context.Context, cause error) (*TurnInput, error) {
	authoritative, err := o.fetchPending(ctx)
	if err != nil {
		return nil, o.escalate(err)
	}

	if len(authoritative) == 0 {
		return nil, o.escalate(cause)
	}

	reasons := make(map[string]string, len(authoritative))
	for _, req := range authoritative {
		reasons[req.ToolCallID] = "adopted from the service after an approval identifier mismatch"
	}

	o.suspendOn(&pendingBatch{
		needsInput: authoritative,
		reasons:    reasons,
	})

	return nil, nil
}

// retryAfterBackoff waits out the schedule for the failure's budget, then
// retries the same input. A cancel observed during the wait resolves the
// turn as cancelled without consuming budget.
func (o *Orchestrator) retryAfterBackoff(ctx context.Context, input TurnInput, kind recovery.Kind, cause error) (*TurnInput, error) {
	o.mu.Lock()
	remaining := o.budget.Remaining(kind)
	o.mu.Unlock()

	if remaining == 0 {
		return nil, o.escalate(fmt.Errorf("%w: %w", sdkerrors.ErrRetriesExhausted, cause))
	}

	attempt := o.maxRetries - remaining + 1
	delay := o.backoff.DelayFor(attempt, cause)

	o.log.Info("Backing off before retry",
		"kind", kind,
		"attempt", attempt,
		"delay", delay)

	// Snapshot the signal before checking the latch. An interrupt in between
	// closes the snapshotted channel; an interrupt before it shows up in the
	// latch. Reversed, a cancel landing in the gap would replace the channel
	// and the wait would sleep through it.
	signal := o.tracker.CancelSignal()
	if o.tracker.Cancelled() {
		o.finalizeCancel(runIDOf(cause))

		return nil, nil
	}

	if !o.backoff.Wait(ctx, signal, delay) {
		o.finalizeCancel(runIDOf(cause))

		return nil, nil
	}

	o.mu.Lock()
	o.budget.Consume(kind)
	o.mu.Unlock()

	return &input, nil
}

func (o *Orchestrator) fetchPending(ctx context.Context) ([]api.ApprovalRequest, error) {
	abortCtx, release := o.tracker.WithAbort(ctx)
	defer release()

	pending, err := o.svc.PendingApprovals(abortCtx, o.convID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending approvals: %w", err)
	}

	return pending, nil
}

// escalate surfaces an unrecoverable failure. The most recent user input is
// restored to an editable state instead of being lost with the turn.
func (o *Orchestrator) escalate(err error) error {
	o.mu.Lock()
	restored := o.lastInput
	o.pending = nil
	o.mu.Unlock()

	runID := runIDOf(err)

	failed := &sdkerrors.TurnFailedError{
		RunID: runID,
		Err:   err,
	}

	o.log.Error("Turn failed",
		"run_id", runID,
		"error", err)

	o.trans.Append(transcript.Entry{
		Kind:  transcript.KindError,
		RunID: runID,
		Text:  err.Error(),
	})

	o.emit(&ErrorEvent{
		Err:           failed,
		RunID:         runID,
		RestoredInput: restored,
	})
	o.fireHook(hook.Payload{Event: hook.EventTurnError, RunID: runID, Err: failed})

	return failed
}

func runIDOf(err error) string {
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.RunID
	}

	return ""
}
