// Package drain consumes one turn's event stream into a terminal outcome.
package drain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/generation"
)

// Outcome is the terminal result of draining a turn's stream.
type Outcome struct {
	StopReason  api.StopReason
	Approvals   []api.ApprovalRequest
	RunID       string
	APIDuration time.Duration
	Usage       *api.Usage
}

// Drainer reads a turn's event stream to completion, collecting approval
// requests and forwarding text deltas as they arrive.
type Drainer struct {
	log     *slog.Logger
	tracker *generation.Tracker
}

// New creates a Drainer bound to the given generation tracker.
func New(logger *slog.Logger, tracker *generation.Tracker) *Drainer {
	return &Drainer{
		log:     logger.With("component", "stream_drainer"),
		tracker: tracker,
	}
}

// Drain consumes the stream until a turn-complete event or stream end.
//
// Each event is preceded by a liveness check against gen; if the generation
// moves on mid-stream, the remaining events belong to an interrupted turn
// and the outcome resolves as cancelled. Context cancellation resolves the
// same way. onText, when non-nil, receives message deltas in arrival order.
func (d *Drainer) Drain(
	ctx context.Context,
	stream api.EventStream,
	gen uint64,
	onText func(string),
) (Outcome, error) {
	defer func() {
		if err := stream.Close(); err != nil {
			d.log.Debug("Failed to close event stream", "error", err)
		}
	}()

	outcome := Outcome{StopReason: api.StopCancelled}

	for {
		if !d.tracker.Live(gen) || d.tracker.Cancelled() {
			d.log.Debug("Stream drain abandoned by interrupt", "generation", gen)

			return outcome, nil
		}

		event, err := stream.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// Stream ended without a turn-complete event. Treat as a
				// transient upstream failure so the retry path owns it.
				return outcome, &api.ServerError{
					StatusCode: 502,
					Message:    "stream ended before turn completion",
					RunID:      outcome.RunID,
				}
			case errors.Is(err, context.Canceled):
				return outcome, nil
			default:
				return outcome, fmt.Errorf("failed to read event stream: %w", err)
			}
		}

		switch ev := event.(type) {
		case *api.MessageDeltaEvent:
			if ev.RunID != "" {
				outcome.RunID = ev.RunID
			}

			if onText != nil {
				onText(ev.Text)
			}
		case *api.ToolCallEvent:
			if ev.RunID != "" {
				outcome.RunID = ev.RunID
			}

			outcome.Approvals = append(outcome.Approvals, ev.Request)
		case *api.TurnCompleteEvent:
			if ev.RunID != "" {
				outcome.RunID = ev.RunID
			}

			outcome.StopReason = ev.StopReason
			outcome.APIDuration = time.Duration(ev.DurationMs) * time.Millisecond
			outcome.Usage = ev.Usage

			d.log.Debug("Turn stream drained",
				"run_id", outcome.RunID,
				"stop_reason", outcome.StopReason,
				"approvals", len(outcome.Approvals))

			return outcome, nil
		default:
			d.log.Debug("Skipping unhandled event", "event_type", event.Type())
		}
	}
}
