package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/letta-ai/letta-agent-sdk-go/internal/errors"
)

// ParseEvent converts a raw wire map into a typed stream Event.
//
// Unknown event types return ErrUnknownEventType; stream consumers should
// skip those rather than treating them as fatal, so that protocol additions
// do not break older clients.
func ParseEvent(log *slog.Logger, data map[string]any) (Event, error) {
	log = log.With("component", "event_parser")

	eventType, ok := data["type"].(string)
	if !ok {
		log.Debug("Event missing 'type' field")

		return nil, &errors.EventParseError{
			Err:  fmt.Errorf("missing or invalid 'type' field"),
			Data: data,
		}
	}

	log.Debug("Parsing event", "event_type", eventType)

	var (
		ev  Event
		err error
	)

	switch EventType(eventType) {
	case EventTypeMessageDelta:
		ev, err = parseMessageDelta(data)
	case EventTypeToolCall:
		ev, err = parseToolCall(data)
	case EventTypeTurnComplete:
		ev, err = parseTurnComplete(data)
	default:
		log.Debug("Skipping unknown event type", "event_type", eventType)

		return nil, errors.ErrUnknownEventType
	}

	if err != nil {
		return nil, &errors.EventParseError{
			Err:  err,
			Data: data,
		}
	}

	return ev, nil
}

func parseMessageDelta(data map[string]any) (*MessageDeltaEvent, error) {
	text, ok := data["text"].(string)
	if !ok {
		return nil, fmt.Errorf("message_delta: missing or invalid 'text' field")
	}

	runID, _ := data["run_id"].(string)

	return &MessageDeltaEvent{
		RunID: runID,
		Text:  text,
	}, nil
}

func parseToolCall(data map[string]any) (*ToolCallEvent, error) {
	toolCallID, ok := data["tool_call_id"].(string)
	if !ok {
		return nil, fmt.Errorf("tool_call: missing or invalid 'tool_call_id' field")
	}

	// Tool name and args may be absent or malformed on the wire; the approval
	// classifier routes such requests to the user rather than dropping them,
	// so they are preserved here as-is.
	toolName, _ := data["tool_name"].(string)
	toolArgs, _ := data["tool_args"].(map[string]any)
	runID, _ := data["run_id"].(string)

	return &ToolCallEvent{
		RunID: runID,
		Request: ApprovalRequest{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			ToolArgs:   toolArgs,
		},
	}, nil
}

func parseTurnComplete(data map[string]any) (*TurnCompleteEvent, error) {
	stopReason, ok := data["stop_reason"].(string)
	if !ok {
		return nil, fmt.Errorf("turn_complete: missing or invalid 'stop_reason' field")
	}

	runID, _ := data["run_id"].(string)

	ev := &TurnCompleteEvent{
		RunID:      runID,
		StopReason: StopReason(stopReason),
	}

	if durationMs, ok := data["duration_ms"].(float64); ok {
		ev.DurationMs = int64(durationMs)
	}

	if usageData, ok := data["usage"].(map[string]any); ok {
		usage := &Usage{}

		if v, ok := usageData["input_tokens"].(float64); ok {
			usage.InputTokens = int(v)
		}

		if v, ok := usageData["output_tokens"].(float64); ok {
			usage.OutputTokens = int(v)
		}

		ev.Usage = usage
	}

	return ev, nil
}

// ParseServerError converts a raw wire error payload into a ServerError.
// A structured "code" field is preferred; servers that predate error codes
// send only a message, which the recovery engine classifies heuristically.
func ParseServerError(data map[string]any) *ServerError {
	serverErr := &ServerError{}

	if code, ok := data["code"].(string); ok {
		serverErr.Code = ErrorCode(code)
	}

	if msg, ok := data["message"].(string); ok {
		serverErr.Message = msg
	}

	if status, ok := data["status"].(float64); ok {
		serverErr.StatusCode = int(status)
	}

	if runID, ok := data["run_id"].(string); ok {
		serverErr.RunID = runID
	}

	if retryAfter, ok := data["retry_after_ms"].(float64); ok && retryAfter > 0 {
		d := time.Duration(retryAfter) * time.Millisecond
		serverErr.RetryAfter = &d
	}

	return serverErr
}
