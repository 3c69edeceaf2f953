// Package client provides the per-conversation controller that owns the
// orchestration state.
//
// One Controller instance corresponds to one conversation: it holds the
// generation tracker, the submission queue, and the orchestrator, and fans
// lifecycle events out on a channel. Nothing is process-global, so a single
// process can drive any number of conversations.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	"github.com/letta-ai/letta-agent-sdk-go/internal/approval"
	sdkerrors "github.com/letta-ai/letta-agent-sdk-go/internal/errors"
	"github.com/letta-ai/letta-agent-sdk-go/internal/generation"
	"github.com/letta-ai/letta-agent-sdk-go/internal/hook"
	"github.com/letta-ai/letta-agent-sdk-go/internal/orchestrator"
	"github.com/letta-ai/letta-agent-sdk-go/internal/permission"
	"github.com/letta-ai/letta-agent-sdk-go/internal/recovery"
	"github.com/letta-ai/letta-agent-sdk-go/internal/submitqueue"
	"github.com/letta-ai/letta-agent-sdk-go/internal/tooling"
	"github.com/letta-ai/letta-agent-sdk-go/internal/transcript"
)

const eventBufferSize = 64

// Config assembles a Controller.
type Config struct {
	Logger         *slog.Logger
	Service        api.Service
	ConversationID string
	Policy         permission.Policy
	Executor       tooling.Executor
	Transcript     transcript.Buffer
	Hooks          *hook.Notifier
	Backoff        recovery.Backoff
	MaxRetries     int
}

// Controller drives one conversation's turns and owns all of its mutable
// orchestration state.
type Controller struct {
	log     *slog.Logger
	svc     api.Service
	convID  string
	tracker *generation.Tracker
	queue   *submitqueue.Queue
	orch    *orchestrator.Orchestrator

	events chan orchestrator.Event
	done   chan struct{}

	group errgroup.Group

	mu         sync.Mutex
	starting   int
	overlay    bool
	finalizing bool
	closed     bool

	closeOnce sync.Once
}

// New creates a Controller from cfg.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := cfg.Policy
	if policy == nil {
		policy = permission.NewRulePolicy()
	}

	c := &Controller{
		log:     logger.With("component", "controller", "conversation_id", cfg.ConversationID),
		svc:     cfg.Service,
		convID:  cfg.ConversationID,
		tracker: generation.NewTracker(),
		queue:   submitqueue.New(),
		events:  make(chan orchestrator.Event, eventBufferSize),
		done:    make(chan struct{}),
	}

	c.orch = orchestrator.New(orchestrator.Config{
		Logger:         logger,
		Service:        cfg.Service,
		ConversationID: cfg.ConversationID,
		Tracker:        c.tracker,
		Classifier:     approval.NewClassifier(logger, policy),
		Executor:       cfg.Executor,
		Transcript:     cfg.Transcript,
		Hooks:          cfg.Hooks,
		Emit:           c.dispatch,
		Backoff:        cfg.Backoff,
		MaxRetries:     cfg.MaxRetries,
	})

	return c
}

// Events returns the lifecycle event channel. The channel is buffered;
// events arriving while the buffer is full are dropped rather than blocking
// the turn loop.
func (c *Controller) Events() <-chan orchestrator.Event {
	return c.events
}

// Pending returns the approval requests awaiting user decisions.
func (c *Controller) Pending() []api.ApprovalRequest {
	return c.orch.Pending()
}

// Submit sends user text as a new turn. If the conversation is busy the
// text is queued and dispatched, merged with anything queued behind it, once
// the turn fully settles.
func (c *Controller) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return sdkerrors.ErrControllerClosed
	}
	c.mu.Unlock()

	if !c.gateOpen() {
		c.log.Debug("Conversation busy, queueing submission")
		c.queue.Enqueue(submitqueue.KindUserMessage, text)

		return nil
	}

	c.start(ctx, orchestrator.TurnInput{Text: text})

	return nil
}

// Notify queues a background notification for the agent. Notifications
// never start a turn by themselves while one is active; they ride along on
// the next dispatch.
func (c *Controller) Notify(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return sdkerrors.ErrControllerClosed
	}
	c.mu.Unlock()

	c.queue.Enqueue(submitqueue.KindNotification, text)
	c.maybeDequeue(ctx)

	return nil
}

// Resolve continues a suspended turn with the user's approval decisions.
func (c *Controller) Resolve(ctx context.Context, decisions []api.ApprovalDecision) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return sdkerrors.ErrControllerClosed
	}
	c.mu.Unlock()

	// The continuation runs synchronously; holding the starting counter
	// keeps a concurrent Submit from dispatching into the same turn.
	c.mu.Lock()
	c.starting++
	c.mu.Unlock()

	err := c.orch.Resolve(ctx, decisions)

	c.mu.Lock()
	c.starting--
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.maybeDequeue(ctx)

	return nil
}

// Interrupt cancels the active turn: the generation advances, in-flight
// work aborts, and the service is told to stop the run. An interrupt with
// no turn step executing settles immediately, discarding any approvals the
// conversation was suspended on, and leaves the conversation ready for the
// next submission.
func (c *Controller) Interrupt(ctx context.Context) error {
	c.mu.Lock()
	c.finalizing = true
	c.mu.Unlock()

	inFlight := c.tracker.Interrupt()

	err := c.svc.CancelTurn(ctx, c.convID)

	c.mu.Lock()
	c.finalizing = false
	c.mu.Unlock()

	// With a step in flight, that step owns finalization when it unwinds.
	// Otherwise nothing will, so settle the suspended state here.
	if !inFlight {
		c.orch.CancelSuspended()
	}

	if err != nil {
		return fmt.Errorf("failed to cancel turn: %w", err)
	}

	c.maybeDequeue(ctx)

	return nil
}

// SetOverlay marks a blocking UI state. While set, queued submissions stay
// queued.
func (c *Controller) SetOverlay(ctx context.Context, blocked bool) {
	c.mu.Lock()
	c.overlay = blocked
	c.mu.Unlock()

	if !blocked {
		c.maybeDequeue(ctx)
	}
}

// Close shuts the controller down. In-flight turns are interrupted and the
// event channel is closed once they unwind. The controller is single-use.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.tracker.Interrupt()
		close(c.done)

		_ = c.group.Wait()

		close(c.events)
	})

	return nil
}

// start launches a turn for input on its own goroutine, capturing the live
// generation at dispatch time. The starting counter closes the gate
// synchronously, before the goroutine acquires the flight lock, so a
// back-to-back Submit queues instead of racing the dispatch.
func (c *Controller) start(ctx context.Context, input orchestrator.TurnInput) {
	gen := c.tracker.Generation()

	c.mu.Lock()
	c.starting++
	c.mu.Unlock()

	c.group.Go(func() error {
		// Run reports failures through the event stream; the error return
		// here would otherwise tear down unrelated turns in the group.
		_ = c.orch.Run(ctx, input, orchestrator.RunOptions{Generation: gen})

		c.mu.Lock()
		c.starting--
		c.mu.Unlock()

		c.maybeDequeue(ctx)

		return nil
	})
}

// gateOpen reports whether a queued submission may dispatch: no turn in
// flight, no pending approvals, no blocking overlay, no cancellation being
// finalized, and the cancelled latch clear.
func (c *Controller) gateOpen() bool {
	c.mu.Lock()
	blocked := c.starting > 0 || c.overlay || c.finalizing || c.closed
	c.mu.Unlock()

	if blocked {
		return false
	}

	return c.tracker.Idle() &&
		!c.tracker.Cancelled() &&
		len(c.orch.Pending()) == 0
}

// maybeDequeue drains the whole queue into one synthesized turn when the
// gate is open. Partial drains never happen.
func (c *Controller) maybeDequeue(ctx context.Context) {
	if c.queue.Len() == 0 || !c.gateOpen() {
		return
	}

	entries := c.queue.DrainAll()
	if len(entries) == 0 {
		return
	}

	text := submitqueue.Synthesize(entries)

	c.log.Debug("Dispatching queued submissions", "count", len(entries))

	c.start(ctx, orchestrator.TurnInput{Text: text})
}

// dispatch forwards orchestrator events to the channel and applies the
// controller-level reactions.
func (c *Controller) dispatch(ev orchestrator.Event) {
	if _, failed := ev.(*orchestrator.ErrorEvent); failed {
		// Nothing queued should replay against an already-failed turn.
		c.queue.Clear()
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.events <- ev:
	case <-c.done:
	default:
		c.log.Warn("Event buffer full, dropping event")
	}
}
