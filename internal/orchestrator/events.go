package orchestrator

import (
	"time"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
)

// Event is a typed lifecycle notification emitted by the orchestrator.
// Consumers receive events on the controller's channel instead of wiring
// callbacks into the loop.
type Event interface {
	isEvent()
}

// Compile-time verification that all event types implement Event.
var (
	_ Event = (*TurnStartedEvent)(nil)
	_ Event = (*TextEvent)(nil)
	_ Event = (*ApprovalNeededEvent)(nil)
	_ Event = (*TurnFinishedEvent)(nil)
	_ Event = (*ErrorEvent)(nil)
)

// TurnStartedEvent signals that a submission began executing.
type TurnStartedEvent struct {
	Input      string
	Generation uint64
}

func (*TurnStartedEvent) isEvent() {}

// TextEvent carries one agent output delta in arrival order.
type TextEvent struct {
	RunID string
	Text  string
}

func (*TextEvent) isEvent() {}

// ApprovalNeededEvent signals that the turn is suspended until the carried
// requests are resolved. Reasons explains, per tool call ID, why a request
// needs input.
type ApprovalNeededEvent struct {
	Requests []api.ApprovalRequest
	Reasons  map[string]string
}

func (*ApprovalNeededEvent) isEvent() {}

// TurnResult summarizes a finished turn.
type TurnResult struct {
	RunID       string
	StopReason  api.StopReason
	APIDuration time.Duration
	Usage       *api.Usage
}

// TurnFinishedEvent signals a terminal stop reason, including cancellation.
type TurnFinishedEvent struct {
	Result TurnResult
}

func (*TurnFinishedEvent) isEvent() {}

// ErrorEvent signals an unrecoverable turn failure. RestoredInput carries
// the most recent user input so the caller can return it to an editable
// state instead of losing it.
type ErrorEvent struct {
	Err           error
	RunID         string
	RestoredInput string
}

func (*ErrorEvent) isEvent() {}
