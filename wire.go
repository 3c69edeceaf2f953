package lettasdk

import (
	"log/slog"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
)

// Stream event types for Service implementers. A Service's EventStream
// yields these in arrival order, terminated by a TurnCompleteEvent.
type (
	// StreamEvent is one entry of a turn's event stream.
	StreamEvent = api.Event

	// StreamEventType identifies a stream event.
	StreamEventType = api.EventType

	// MessageDeltaEvent is an incremental chunk of assistant text.
	MessageDeltaEvent = api.MessageDeltaEvent

	// ToolCallEvent proposes one tool call for approval.
	ToolCallEvent = api.ToolCallEvent

	// TurnCompleteEvent terminates a stream with a stop reason.
	TurnCompleteEvent = api.TurnCompleteEvent
)

// Stream event types.
const (
	EventTypeMessageDelta = api.EventTypeMessageDelta
	EventTypeToolCall     = api.EventTypeToolCall
	EventTypeTurnComplete = api.EventTypeTurnComplete
)

// ParseStreamEvent decodes one decoded-JSON stream object into a typed
// event. Unknown event types return ErrUnknownEventType; callers should
// skip those and keep reading, so new server event types do not break older
// clients.
func ParseStreamEvent(log *slog.Logger, data map[string]any) (StreamEvent, error) {
	return api.ParseEvent(log, data)
}

// ParseServerError decodes a server error payload into a ServerError,
// picking up the structured code, status, run identifier, and retry hint
// when present.
func ParseServerError(data map[string]any) *ServerError {
	return api.ParseServerError(data)
}
