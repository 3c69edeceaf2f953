package api

// EventType identifies a stream event.
type EventType string

const (
	// EventTypeMessageDelta carries an incremental chunk of assistant text.
	EventTypeMessageDelta EventType = "message_delta"
	// EventTypeToolCall carries one proposed tool call awaiting approval.
	EventTypeToolCall EventType = "tool_call"
	// EventTypeTurnComplete terminates the stream with a stop reason and
	// timing/usage metadata.
	EventTypeTurnComplete EventType = "turn_complete"
)

// Event is one entry of a turn's event stream.
type Event interface {
	Type() EventType
}

// Compile-time verification that all event types implement Event.
var (
	_ Event = (*MessageDeltaEvent)(nil)
	_ Event = (*ToolCallEvent)(nil)
	_ Event = (*TurnCompleteEvent)(nil)
)

// MessageDeltaEvent is an incremental chunk of assistant output.
type MessageDeltaEvent struct {
	RunID string
	Text  string
}

// Type implements Event.
func (e *MessageDeltaEvent) Type() EventType { return EventTypeMessageDelta }

// ToolCallEvent proposes one tool call for approval.
type ToolCallEvent struct {
	RunID   string
	Request ApprovalRequest
}

// Type implements Event.
func (e *ToolCallEvent) Type() EventType { return EventTypeToolCall }

// TurnCompleteEvent is the terminal event of a stream.
type TurnCompleteEvent struct {
	RunID      string
	StopReason StopReason
	DurationMs int64
	Usage      *Usage
}

// Type implements Event.
func (e *TurnCompleteEvent) Type() EventType { return EventTypeTurnComplete }
