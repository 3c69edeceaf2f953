// Package orchestrator drives multi-step conversational turns end to end.
//
// One Orchestrator instance owns the turn loop for one conversation: it
// submits input, drains the resulting stream, classifies and executes tool
// approvals, recurses into continuations, and absorbs recoverable failures
// through the recovery engine. All cross-generation state lives on the
// instance, never in package globals, so one process can drive many
// conversations independently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/approval"
	"github.com/letta-ai/letta-agent-sdk-go/internal/drain"
	sdkerrors "github.com/letta-ai/letta-agent-sdk-go/internal/errors"
	"github.com/letta-ai/letta-agent-sdk-go/internal/generation"
	"github.com/letta-ai/letta-agent-sdk-go/internal/hook"
	"github.com/letta-ai/letta-agent-sdk-go/internal/recovery"
	"github.com/letta-ai/letta-agent-sdk-go/internal/tooling"
	"github.com/letta-ai/letta-agent-sdk-go/internal/transcript"
)

// TurnInput is the outbound payload of one turn: user text, approval
// decisions, or both.
type TurnInput struct {
	Text      string
	Decisions []api.ApprovalDecision
}

func (in TurnInput) request() api.TurnRequest {
	req := api.TurnRequest{Decisions: in.Decisions}

	if in.Text != "" {
		req.Messages = []api.Message{{Role: "user", Content: in.Text}}
	}

	return req
}

// RunOptions control how a Run invocation enters the turn loop.
type RunOptions struct {
	// Reentry marks a continuation of the running turn rather than a new
	// submission. Continuations stack on the depth counter and never reset
	// retry budgets.
	Reentry bool

	// Generation is the epoch captured when the submission was created.
	// Stale generations make Run a no-op.
	Generation uint64
}

// Config assembles an Orchestrator's collaborators.
type Config struct {
	Logger         *slog.Logger
	Service        api.Service
	ConversationID string
	Tracker        *generation.Tracker
	Classifier     *approval.Classifier
	Executor       tooling.Executor
	Transcript     transcript.Buffer
	Hooks          *hook.Notifier
	Emit           func(Event)
	Backoff        recovery.Backoff
	MaxRetries     int
}

// Orchestrator owns the turn loop for one conversation.
type Orchestrator struct {
	log     *slog.Logger
	svc     api.Service
	convID  string
	tracker *generation.Tracker

	classifier *approval.Classifier
	exec       tooling.Executor
	drainer    *drain.Drainer
	trans      transcript.Buffer
	hooks      *hook.Notifier
	emit       func(Event)

	backoff    recovery.Backoff
	maxRetries int

	mu        sync.Mutex
	budget    recovery.Budget
	pending   *pendingBatch
	lastInput string
}

// pendingBatch is a suspended approval batch awaiting user decisions.
// Batch integrity: the eventual resolution must cover needsInput exactly,
// and the approval-result turn carries decisions for the whole batch.
type pendingBatch struct {
	autoAllowed []api.ApprovalRequest
	autoDenied  []api.ApprovalRequest
	needsInput  []api.ApprovalRequest
	reasons     map[string]string
}

// New creates an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	trans := cfg.Transcript
	if trans == nil {
		trans = transcript.Nop{}
	}

	emit := cfg.Emit
	if emit == nil {
		emit = func(Event) {}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = recovery.DefaultMaxRetries
	}

	return &Orchestrator{
		log:        logger.With("component", "orchestrator", "conversation_id", cfg.ConversationID),
		svc:        cfg.Service,
		convID:     cfg.ConversationID,
		tracker:    cfg.Tracker,
		classifier: cfg.Classifier,
		exec:       cfg.Executor,
		drainer:    drain.New(logger, cfg.Tracker),
		trans:      trans,
		hooks:      cfg.Hooks,
		emit:       emit,
		backoff:    cfg.Backoff,
		maxRetries: maxRetries,
		budget:     recovery.NewBudget(maxRetries),
	}
}

// Pending returns the approval requests currently awaiting user decisions.
func (o *Orchestrator) Pending() []api.ApprovalRequest {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		return nil
	}

	out := make([]api.ApprovalRequest, len(o.pending.needsInput))
	copy(out, o.pending.needsInput)

	return out
}

// Run drives one submission to completion, recursing into itself for
// continuations.
//
// Stale generations and overlapping non-reentrant submissions return
// immediately without side effects. A nil error means the turn reached a
// terminal state or suspended on approvals; unrecoverable failures are
// reported through the error event stream as well as the return value.
func (o *Orchestrator) Run(ctx context.Context, input TurnInput, opts RunOptions) error {
	if !o.tracker.Acquire(opts.Generation, opts.Reentry) {
		o.log.Debug("Submission dropped",
			"generation", opts.Generation,
			"reentry", opts.Reentry)

		return nil
	}

	// Runs after Release. A latch still set once the depth reaches zero has
	// no remaining owner, which happens when an interrupt lands while this
	// frame is suspending or already unwinding past its cancellation checks.
	defer func() {
		if o.tracker.Idle() && o.tracker.Cancelled() {
			o.finalizeCancel("")
		}
	}()
	defer o.tracker.Release(opts.Generation)

	if !opts.Reentry {
		o.mu.Lock()
		o.budget = recovery.NewBudget(o.maxRetries)
		o.lastInput = input.Text
		o.mu.Unlock()

		o.emit(&TurnStartedEvent{Input: input.Text, Generation: opts.Generation})
		o.fireHook(hook.Payload{Event: hook.EventTurnStarted})

		if input.Text != "" {
			o.trans.Append(transcript.Entry{Kind: transcript.KindUserInput, Text: input.Text})
		}
	}

	for {
		if o.tracker.Cancelled() || ctx.Err() != nil {
			o.finalizeCancel("")

			return nil
		}

		outcome, err := o.submitAndDrain(ctx, input, opts.Generation)
		if err != nil {
			// An interrupt aborts the in-flight request; the resulting
			// context.Canceled is a cancellation, not a service fault, so it
			// never consumes retry budget or sits out a backoff.
			if o.tracker.Cancelled() || errors.Is(err, context.Canceled) {
				o.finalizeCancel("")

				return nil
			}

			next, done := o.recover(ctx, input, err)
			if done != nil || next == nil {
				return done
			}

			input = *next

			continue
		}

		if !o.tracker.Live(opts.Generation) {
			o.finalizeCancel(outcome.RunID)

			return nil
		}

		switch outcome.StopReason {
		case api.StopEndTurn:
			o.finishTurn(outcome)

			return nil

		case api.StopCancelled:
			o.finalizeCancel(outcome.RunID)

			return nil

		case api.StopRequiresApproval:
			decisions, suspended := o.handleApprovals(ctx, outcome)
			if suspended {
				return nil
			}

			return o.Run(ctx, TurnInput{Decisions: decisions}, RunOptions{
				Reentry:    true,
				Generation: opts.Generation,
			})

		default:
			// An unknown or error stop reason is treated like a dropped
			// stream: transient, so the turn gets its bounded retries before
			// escalating.
			next, done := o.recover(ctx, input, &api.ServerError{
				StatusCode: 502,
				Message:    fmt.Sprintf("turn stopped with reason %q", outcome.StopReason),
				RunID:      outcome.RunID,
			})
			if done != nil || next == nil {
				return done
			}

			input = *next
		}
	}
}

// submitAndDrain performs one request/stream cycle under an abort handle so
// an interrupt cuts the network call short.
func (o *Orchestrator) submitAndDrain(ctx context.Context, input TurnInput, gen uint64) (drain.Outcome, error) {
	abortCtx, release := o.tracker.WithAbort(ctx)
	defer release()

	stream, err := o.svc.SubmitTurn(abortCtx, o.convID, input.request())
	if err != nil {
		return drain.Outcome{}, fmt.Errorf("failed to submit turn: %w", err)
	}

	return o.drainer.Drain(abortCtx, stream, gen, func(text string) {
		o.emit(&TextEvent{Text: text})
		o.trans.Append(transcript.Entry{Kind: transcript.KindAgentText, Text: text})
	})
}

// handleApprovals classifies the batch and either executes it fully or
// suspends on user input. The returned decisions cover the whole batch when
// no user input is needed; suspended reports the other branch.
func (o *Orchestrator) handleApprovals(ctx context.Context, outcome drain.Outcome) ([]api.ApprovalDecision, bool) {
	class := o.classifier.Classify(outcome.Approvals)

	if len(class.NeedsInput) > 0 {
		o.suspendOn(&pendingBatch{
			autoAllowed: class.AutoAllowed,
			autoDenied:  class.AutoDenied,
			needsInput:  class.NeedsInput,
			reasons:     class.Reasons,
		})

		return nil, true
	}

	decisions := o.executeBatch(ctx, class.AutoAllowed, class.AutoDenied, class.Reasons, nil)

	return decisions, false
}

// suspendOn records the pending batch and surfaces the needs-input set.
func (o *Orchestrator) suspendOn(batch *pendingBatch) {
	o.mu.Lock()
	o.pending = batch
	o.mu.Unlock()

	ids := make([]string, len(batch.needsInput))
	for i, req := range batch.needsInput {
		ids[i] = req.ToolCallID
	}

	o.log.Info("Turn suspended on approvals", "tool_call_ids", ids)

	o.emit(&ApprovalNeededEvent{Requests: batch.needsInput, Reasons: batch.reasons})
	o.fireHook(hook.Payload{Event: hook.EventApprovalNeeded, ToolCallIDs: ids})
}

// executeBatch runs allowed requests, converts denials, and folds user
// decisions in, producing the decision list for one approval-result turn.
func (o *Orchestrator) executeBatch(
	ctx context.Context,
	allowed []api.ApprovalRequest,
	denied []api.ApprovalRequest,
	reasons map[string]string,
	userDecisions []api.ApprovalDecision,
) []api.ApprovalDecision {
	abortCtx, release := o.tracker.WithAbort(ctx)
	defer release()

	decisions := make([]api.ApprovalDecision, 0, len(allowed)+len(denied)+len(userDecisions))

	for _, result := range approval.ExecuteAllowed(abortCtx, o.exec, allowed) {
		o.recordToolResult(result)

		decisions = append(decisions, api.ApprovalDecision{
			ToolCallID:  result.ToolCallID,
			Approve:     true,
			Precomputed: ptr(result),
		})
	}

	for _, result := range approval.DenialResults(denied, reasons) {
		o.recordToolResult(result)

		decisions = append(decisions, api.ApprovalDecision{
			ToolCallID: result.ToolCallID,
			Approve:    false,
			Reason:     result.Stderr,
		})
	}

	decisions = append(decisions, userDecisions...)

	return decisions
}

func (o *Orchestrator) recordToolResult(result api.ToolResult) {
	o.trans.Append(transcript.Entry{
		Kind: transcript.KindToolResult,
		Text: fmt.Sprintf("%s: %s", result.ToolCallID, result.Status),
	})
}

// finishTurn handles an end_turn stop: budgets and caches reset, side
// effects run, turn reported.
func (o *Orchestrator) finishTurn(outcome drain.Outcome) {
	o.mu.Lock()
	o.budget = recovery.NewBudget(o.maxRetries)
	o.pending = nil
	o.mu.Unlock()

	result := TurnResult{
		RunID:       outcome.RunID,
		StopReason:  outcome.StopReason,
		APIDuration: outcome.APIDuration,
		Usage:       outcome.Usage,
	}

	o.log.Info("Turn finished",
		"run_id", result.RunID,
		"stop_reason", result.StopReason,
		"api_duration", result.APIDuration)

	o.emit(&TurnFinishedEvent{Result: result})
	o.fireHook(hook.Payload{
		Event:      hook.EventTurnFinished,
		RunID:      result.RunID,
		StopReason: string(result.StopReason),
	})
}

// finalizeCancel clears the cancelled latch and reports the turn as
// cancelled. Cancellation is a normal exit, never an error.
func (o *Orchestrator) finalizeCancel(runID string) {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()

	o.tracker.ClearCancelled()

	o.log.Info("Turn cancelled", "run_id", runID)

	o.emit(&TurnFinishedEvent{Result: TurnResult{
		RunID:      runID,
		StopReason: api.StopCancelled,
	}})
	o.fireHook(hook.Payload{
		Event:      hook.EventTurnFinished,
		RunID:      runID,
		StopReason: string(api.StopCancelled),
	})
}

// CancelSuspended settles an interrupt that landed while no turn step was
// executing. If a batch was suspended on approvals it is discarded and the
// turn is reported cancelled; with nothing suspended there is nothing to
// settle and no event fires.
func (o *Orchestrator) CancelSuspended() {
	o.mu.Lock()
	hadPending := o.pending != nil
	o.pending = nil
	o.mu.Unlock()

	if !hadPending {
		return
	}

	o.log.Info("Suspended approvals cancelled")

	o.emit(&TurnFinishedEvent{Result: TurnResult{StopReason: api.StopCancelled}})
	o.fireHook(hook.Payload{
		Event:      hook.EventTurnFinished,
		StopReason: string(api.StopCancelled),
	})
}

// Resolve continues a suspended turn with the user's decisions.
//
// The decisions must cover exactly the surfaced needs-input set, by tool
// call ID. Approved decisions without a precomputed result execute locally
// before the combined batch is sent back as one approval-result turn.
func (o *Orchestrator) Resolve(ctx context.Context, userDecisions []api.ApprovalDecision) error {
	o.mu.Lock()

	batch := o.pending
	if batch == nil {
		o.mu.Unlock()

		return sdkerrors.ErrNoPendingApprovals
	}

	if err := matchBatch(batch.needsInput, userDecisions); err != nil {
		o.mu.Unlock()

		return err
	}

	o.pending = nil
	o.mu.Unlock()

	// The continuation belongs to the generation that suspended. Capturing it
	// before tool execution means an interrupt arriving mid-resolution leaves
	// the continuation stale instead of riding the fresh epoch.
	gen := o.tracker.Generation()

	ids := make([]string, len(userDecisions))
	for i, d := range userDecisions {
		ids[i] = d.ToolCallID
	}

	o.fireHook(hook.Payload{Event: hook.EventApprovalResolved, ToolCallIDs: ids})

	resolved := o.executeUserDecisions(ctx, batch, userDecisions)
	decisions := o.executeBatch(ctx, batch.autoAllowed, batch.autoDenied, batch.reasons, resolved)

	for _, d := range userDecisions {
		verdict := "denied"
		if d.Approve {
			verdict = "approved"
		}

		o.trans.Append(transcript.Entry{
			Kind: transcript.KindApproval,
			Text: fmt.Sprintf("%s: %s", d.ToolCallID, verdict),
		})
	}

	return o.Run(ctx, TurnInput{Decisions: decisions}, RunOptions{
		Reentry:    true,
		Generation: gen,
	})
}

// executeUserDecisions runs the tools the user approved, attaching their
// results, and passes denials through untouched.
func (o *Orchestrator) executeUserDecisions(
	ctx context.Context,
	batch *pendingBatch,
	userDecisions []api.ApprovalDecision,
) []api.ApprovalDecision {
	requests := make(map[string]api.ApprovalRequest, len(batch.needsInput))
	for _, req := range batch.needsInput {
		requests[req.ToolCallID] = req
	}

	var approved []api.ApprovalRequest

	out := make([]api.ApprovalDecision, 0, len(userDecisions))

	for _, d := range userDecisions {
		if d.Approve && d.Precomputed == nil {
			approved = append(approved, requests[d.ToolCallID])

			continue
		}

		out = append(out, d)
	}

	if len(approved) == 0 {
		return out
	}

	abortCtx, release := o.tracker.WithAbort(ctx)
	defer release()

	for _, result := range approval.ExecuteAllowed(abortCtx, o.exec, approved) {
		o.recordToolResult(result)

		out = append(out, api.ApprovalDecision{
			ToolCallID:  result.ToolCallID,
			Approve:     true,
			Precomputed: ptr(result),
		})
	}

	return out
}

// matchBatch enforces batch integrity: the decision set and the needs-input
// set must contain exactly the same tool call IDs.
func matchBatch(needsInput []api.ApprovalRequest, decisions []api.ApprovalDecision) error {
	if len(needsInput) != len(decisions) {
		return fmt.Errorf("%w: %d decisions for %d requests",
			sdkerrors.ErrApprovalMismatch, len(decisions), len(needsInput))
	}

	want := make(map[string]bool, len(needsInput))
	for _, req := range needsInput {
		want[req.ToolCallID] = true
	}

	for _, d := range decisions {
		if !want[d.ToolCallID] {
			return fmt.Errorf("%w: unexpected tool call %q",
				sdkerrors.ErrApprovalMismatch, d.ToolCallID)
		}

		delete(want, d.ToolCallID)
	}

	return nil
}

func (o *Orchestrator) fireHook(payload hook.Payload) {
	if o.hooks != nil {
		o.hooks.Fire(payload)
	}
}

func ptr[T any](v T) *T {
	return &v
}
