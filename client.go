package lettasdk

import (
	"context"
)

// Client provides an interactive, stateful interface for multi-turn
// conversations with a Letta agent.
//
// One client drives one conversation. It maintains the turn state machine
// across exchanges: submissions, streamed responses, tool approvals, and
// interrupts. Input submitted while a turn is active is queued and
// dispatched as one combined turn once the conversation settles.
//
// Lifecycle: Clients are single-use. After Close(), create a new client
// with NewClient().
//
// Example usage:
//
//	client := NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    WithService(svc),
//	    WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.Submit(ctx, "What changed since yesterday?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for ev := range client.Events() {
//	    // Process lifecycle events...
//	}
type Client interface {
	// Start validates the configuration and prepares the conversation.
	// Must be called before any other methods.
	// Returns ErrServiceRequired when no Service option was given.
	Start(ctx context.Context, opts ...Option) error

	// Submit sends user text as a new turn. Returns immediately; progress
	// arrives on Events(). If a turn is already active the text is queued.
	Submit(ctx context.Context, text string) error

	// Notify queues a background notification for the agent. Notifications
	// ride along with the next dispatched turn.
	Notify(ctx context.Context, text string) error

	// Pending returns the approval requests awaiting user decisions.
	Pending() []ApprovalRequest

	// Resolve continues a turn suspended on approvals. The decisions must
	// cover exactly the pending set, by tool call ID; partial batches
	// return ErrApprovalMismatch.
	Resolve(ctx context.Context, decisions []ApprovalDecision) error

	// Interrupt cancels the active turn and invalidates everything
	// scheduled behind it. The turn resolves as cancelled, never as an
	// error.
	Interrupt(ctx context.Context) error

	// SetOverlay marks a blocking UI state; queued input stays queued
	// while set.
	SetOverlay(ctx context.Context, blocked bool)

	// Events returns the lifecycle event channel. The channel closes when
	// the client does.
	Events() <-chan TurnEvent

	// ConversationID returns the conversation this client drives.
	ConversationID() string

	// Close terminates the conversation and cleans up resources.
	// After Close(), the client cannot be reused. Safe to call multiple
	// times.
	Close() error
}

// NewClient creates a new interactive client.
//
// Call Start() with options to begin a conversation:
//
//	client := NewClient()
//	err := client.Start(ctx,
//	    WithService(svc),
//	    WithPermissionRules(PermissionRule{ToolName: "read_file", Behavior: BehaviorAllow}),
//	)
func NewClient() Client {
	return newClientImpl()
}
