// Package approval classifies tool call batches against the configured
// permission policy and executes the auto-allowed portion.
//
// Classification partitions a batch into auto-allowed, auto-denied, and
// needs-input sets. A batch with any needs-input member suspends the turn
// until the user resolves the whole batch; batches with none proceed without
// user involvement.
package approval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/permission"
	"github.com/letta-ai/letta-agent-sdk-go/internal/tooling"
)

// Classification is the partition of one tool call batch.
type Classification struct {
	AutoAllowed []api.ApprovalRequest
	AutoDenied  []api.ApprovalRequest
	NeedsInput  []api.ApprovalRequest

	// Reasons maps tool call IDs to the policy reason behind their
	// placement, keyed for denied and needs-input calls.
	Reasons map[string]string
}

// Empty reports whether the classification contains no tool calls.
func (c *Classification) Empty() bool {
	return len(c.AutoAllowed) == 0 && len(c.AutoDenied) == 0 && len(c.NeedsInput) == 0
}

// Classifier partitions approval requests using a permission policy.
type Classifier struct {
	log    *slog.Logger
	policy permission.Policy
}

// NewClassifier creates a classifier around the given policy.
func NewClassifier(logger *slog.Logger, policy permission.Policy) *Classifier {
	return &Classifier{
		log:    logger.With("component", "approval_classifier"),
		policy: policy,
	}
}

// Classify partitions a tool call batch.
//
// Malformed requests, those missing a tool name or arguments, are never
// auto-allowed regardless of policy: they are routed to needs-input with a
// diagnostic reason so the user sees exactly what the service sent.
func (c *Classifier) Classify(requests []api.ApprovalRequest) Classification {
	result := Classification{
		Reasons: make(map[string]string, len(requests)),
	}

	for _, req := range requests {
		if reason, ok := malformed(req); ok {
			c.log.Warn("Malformed tool call routed to user",
				"tool_call_id", req.ToolCallID,
				"reason", reason)

			result.NeedsInput = append(result.NeedsInput, req)
			result.Reasons[req.ToolCallID] = reason

			continue
		}

		decision := c.policy.Decide(req.ToolName, req.ToolArgs)

		switch decision.Behavior {
		case permission.BehaviorAllow:
			result.AutoAllowed = append(result.AutoAllowed, req)
		case permission.BehaviorDeny:
			result.AutoDenied = append(result.AutoDenied, req)
			result.Reasons[req.ToolCallID] = decision.Reason
		case permission.BehaviorAsk:
			result.NeedsInput = append(result.NeedsInput, req)
			result.Reasons[req.ToolCallID] = decision.Reason
		}
	}

	c.log.Debug("Classified tool call batch",
		"total", len(requests),
		"auto_allowed", len(result.AutoAllowed),
		"auto_denied", len(result.AutoDenied),
		"needs_input", len(result.NeedsInput))

	return result
}

func malformed(req api.ApprovalRequest) (string, bool) {
	if req.ToolName == "" {
		return "tool call has no tool name", true
	}

	if req.ToolArgs == nil {
		return "tool call has no arguments payload", true
	}

	return "", false
}

// ExecuteAllowed runs the auto-allowed requests against the executor.
//
// Read-only tools run concurrently; mutating tools run sequentially in batch
// order, checking for cancellation before each one. A mutating tool already
// started runs to completion on cancel, while unstarted ones report an
// interrupted status instead of executing.
func ExecuteAllowed(
	ctx context.Context,
	exec tooling.Executor,
	requests []api.ApprovalRequest,
) []api.ToolResult {
	results := make([]api.ToolResult, len(requests))

	var (
		group    errgroup.Group
		mutating []int
	)

	for i, req := range requests {
		if exec.ReadOnly(req.ToolName) {
			group.Go(func() error {
				results[i] = exec.Execute(ctx, req)

				return nil
			})

			continue
		}

		mutating = append(mutating, i)
	}

	interrupted := false

	for _, i := range mutating {
		if interrupted || ctx.Err() != nil {
			interrupted = true
			results[i] = api.ToolResult{
				ToolCallID: requests[i].ToolCallID,
				Status:     api.ToolStatusInterrupted,
				Stderr:     "cancelled before execution",
			}

			continue
		}

		results[i] = exec.Execute(ctx, requests[i])
	}

	_ = group.Wait()

	return results
}

// DenialResults builds denied tool results for the auto-denied requests,
// carrying the policy reason back to the service.
func DenialResults(requests []api.ApprovalRequest, reasons map[string]string) []api.ToolResult {
	results := make([]api.ToolResult, len(requests))

	for i, req := range requests {
		reason := reasons[req.ToolCallID]
		if reason == "" {
			reason = "denied by permission policy"
		}

		results[i] = api.ToolResult{
			ToolCallID: req.ToolCallID,
			Status:     api.ToolStatusDenied,
			Stderr:     reason,
		}
	}

	return results
}
