package lettasdk

import (
	"context"
	"iter"
)

// Run executes a single turn and returns an iterator of lifecycle events.
//
// By default, logging is disabled. Use WithLogger to enable logging:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	for ev, err := range Run(ctx, "Summarize my inbox",
//	    WithLogger(logger),
//	    WithService(svc),
//	) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // handle ev
//	}
//
// The iterator yields events as the turn progresses: TurnStartedEvent,
// TextEvent deltas, and a final TurnFinishedEvent. Iteration ends after the
// turn settles.
//
// Run is non-interactive: there is nobody to answer approval prompts, so
// tool calls that need user input are denied automatically. Configure
// WithPermissionRules or WithBypassPermissions to let tool calls through.
//
// Errors during setup are yielded inline before iteration stops. A turn
// that fails after exhausting its retries yields the ErrorEvent followed by
// its error.
//
// Callers can stop iteration early by breaking from the loop; the client is
// closed either way.
func Run(ctx context.Context, text string, opts ...Option) iter.Seq2[TurnEvent, error] {
	return func(yield func(TurnEvent, error) bool) {
		options := applyAgentOptions(opts)

		log := options.Logger
		if log == nil {
			log = NopLogger()
		}

		log = log.With("component", "run")

		client := NewClient()
		defer client.Close()

		if err := client.Start(ctx, opts...); err != nil {
			yield(nil, err)

			return
		}

		log.Debug("Starting one-shot turn")

		if err := client.Submit(ctx, text); err != nil {
			yield(nil, err)

			return
		}

		events := client.Events()

		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			case ev, ok := <-events:
				if !ok {
					return
				}

				switch e := ev.(type) {
				case *ApprovalNeededEvent:
					// Non-interactive mode: nobody can answer, so deny
					// everything still pending and let the turn continue.
					decisions := make([]ApprovalDecision, 0, len(e.Requests))
					for _, req := range e.Requests {
						decisions = append(decisions, ApprovalDecision{
							ToolCallID: req.ToolCallID,
							Approve:    false,
							Reason:     "no interactive approver available",
						})
					}

					if !yield(ev, nil) {
						return
					}

					if err := client.Resolve(ctx, decisions); err != nil {
						yield(nil, err)

						return
					}
				case *TurnFinishedEvent:
					yield(ev, nil)

					return
				case *ErrorEvent:
					yield(ev, e.Err)

					return
				default:
					if !yield(ev, nil) {
						return
					}
				}
			}
		}
	}
}
