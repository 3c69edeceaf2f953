// Package hook provides fire-and-forget callbacks at turn boundaries.
//
// Hooks observe the turn lifecycle; they cannot steer it. Callbacks run on
// their own goroutines, panics are swallowed, and a slow hook never blocks
// the orchestration loop.
package hook

import (
	"log/slog"
	"sync"
)

// Event represents the lifecycle point a hook fires at.
type Event string

const (
	// EventTurnStarted fires when a submission begins executing.
	EventTurnStarted Event = "TurnStarted"
	// EventTurnFinished fires when a turn reaches a terminal stop reason.
	EventTurnFinished Event = "TurnFinished"
	// EventApprovalNeeded fires when a turn suspends on user approvals.
	EventApprovalNeeded Event = "ApprovalNeeded"
	// EventApprovalResolved fires when the user resolves a pending batch.
	EventApprovalResolved Event = "ApprovalResolved"
	// EventTurnError fires when a turn fails after recovery is exhausted.
	EventTurnError Event = "TurnError"
)

// Payload carries the details of one lifecycle event. Fields are populated
// per event: RunID and StopReason for finished turns, ToolCallIDs for
// approval events, Err for errors.
type Payload struct {
	Event       Event
	RunID       string
	StopReason  string
	ToolCallIDs []string
	Err         error
}

// Callback receives lifecycle payloads. Return values and panics are
// discarded.
type Callback func(payload Payload)

// Notifier fans lifecycle events out to registered callbacks.
type Notifier struct {
	log *slog.Logger

	mu        sync.RWMutex
	callbacks map[Event][]Callback
	wg        sync.WaitGroup
}

// NewNotifier creates an empty notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		log:       logger.With("component", "hook_notifier"),
		callbacks: make(map[Event][]Callback),
	}
}

// On registers a callback for the given event.
func (n *Notifier) On(event Event, callback Callback) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.callbacks[event] = append(n.callbacks[event], callback)
}

// Fire dispatches the payload to every callback registered for its event.
// Dispatch is asynchronous and returns immediately.
func (n *Notifier) Fire(payload Payload) {
	n.mu.RLock()
	callbacks := n.callbacks[payload.Event]
	n.mu.RUnlock()

	for _, callback := range callbacks {
		n.wg.Add(1)

		go func() {
			defer n.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					n.log.Warn("Hook callback panicked",
						"event", payload.Event,
						"panic", r)
				}
			}()

			callback(payload)
		}()
	}
}

// Wait blocks until all in-flight callbacks return. Intended for tests and
// shutdown.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
