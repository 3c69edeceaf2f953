package client

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
	sdkerrors "github.com/letta-ai/letta-agent-sdk-go/internal/errors"
	"github.com/letta-ai/letta-agent-sdk-go/internal/orchestrator"
	"github.com/letta-ai/letta-agent-sdk-go/internal/permission"
	"github.com/letta-ai/letta-agent-sdk-go/internal/recovery"
)

// blockingService completes each turn only when released, so tests can hold
// a turn open while poking at the controller.
type blockingService struct {
	mu       sync.Mutex
	requests []api.TurnRequest
	release  chan struct{}
}

func newBlockingService() *blockingService {
	return &blockingService{release: make(chan struct{}, 16)}
}

type blockingStream struct {
	svc  *blockingService
	sent bool
}

func (s *blockingStream) Next(ctx context.Context) (api.Event, error) {
	if s.sent {
		return nil, io.EOF
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.svc.release:
		s.sent = true

		return &api.TurnCompleteEvent{RunID: "run-1", StopReason: api.StopEndTurn}, nil
	}
}

func (s *blockingStream) Close() error { return nil }

func (b *blockingService) SubmitTurn(_ context.Context, _ string, req api.TurnRequest) (api.EventStream, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	return &blockingStream{svc: b}, nil
}

func (b *blockingService) PendingApprovals(context.Context, string) ([]api.ApprovalRequest, error) {
	return nil, nil
}

func (b *blockingService) CancelTurn(context.Context, string) error {
	b.release <- struct{}{}

	return nil
}

func (b *blockingService) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.requests)
}

func (b *blockingService) requestAt(i int) api.TurnRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.requests[i]
}

type nopExecutor struct{}

func (nopExecutor) Execute(_ context.Context, req api.ApprovalRequest) api.ToolResult {
	return api.ToolResult{ToolCallID: req.ToolCallID, Status: api.ToolStatusSuccess}
}

func (nopExecutor) ReadOnly(string) bool { return false }

func newController(svc api.Service) *Controller {
	return newControllerWithPolicy(svc, permission.AllowAll())
}

func newControllerWithPolicy(svc api.Service, policy permission.Policy) *Controller {
	return New(Config{
		Logger:         slog.Default(),
		Service:        svc,
		ConversationID: "conv-1",
		Policy:         policy,
		Executor:       nopExecutor{},
		Backoff:        recovery.Backoff{Base: time.Millisecond, Tick: time.Millisecond},
	})
}

func waitForEvent[T orchestrator.Event](t *testing.T, events <-chan orchestrator.Event) T {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event channel closed while waiting")
			}

			if typed, match := ev.(T); match {
				return typed
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func TestController_SubmitCompletes(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), "hello"))

	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	svc.release <- struct{}{}

	finished := waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())
	require.Equal(t, api.StopEndTurn, finished.Result.StopReason)
	require.Equal(t, 1, svc.requestCount())
}

// Three entries queued behind an active turn dispatch as exactly one
// synthesized turn.
func TestController_QueueAtomicity(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), "first"))
	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())

	require.NoError(t, c.Submit(context.Background(), "second"))
	require.NoError(t, c.Submit(context.Background(), "third"))
	require.NoError(t, c.Notify(context.Background(), "file changed"))
	require.LessOrEqual(t, svc.requestCount(), 1, "queued input must not submit while busy")

	svc.release <- struct{}{}
	waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())

	// The queued entries ride out as one turn.
	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	svc.release <- struct{}{}
	waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())

	require.Equal(t, 2, svc.requestCount())

	synthesized := svc.requestAt(1).Messages[0].Content
	require.Contains(t, synthesized, "second")
	require.Contains(t, synthesized, "third")
	require.Contains(t, synthesized, "[notification] file changed")
	require.Less(t, strings.Index(synthesized, "second"), strings.Index(synthesized, "third"))
}

func TestController_BackToBackSubmitsNeverOverlap(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	// No waiting between submits: the second must queue even before the
	// first turn's goroutine reaches the service.
	require.NoError(t, c.Submit(context.Background(), "first"))
	require.NoError(t, c.Submit(context.Background(), "second"))

	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	svc.release <- struct{}{}
	waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())

	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	svc.release <- struct{}{}
	waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())

	require.Equal(t, 2, svc.requestCount())
	require.Equal(t, "first", svc.requestAt(0).Messages[0].Content)
	require.Equal(t, "second", svc.requestAt(1).Messages[0].Content)
}

func TestController_InterruptResolvesCancelled(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), "hello"))
	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())

	require.NoError(t, c.Interrupt(context.Background()))

	finished := waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())
	require.Equal(t, api.StopCancelled, finished.Result.StopReason)
}

// An interrupt with no turn running must leave the conversation usable: the
// next submission dispatches and completes normally.
func TestController_IdleInterruptThenSubmit(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	require.NoError(t, c.Interrupt(context.Background()))

	require.NoError(t, c.Submit(context.Background(), "hello"))
	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	svc.release <- struct{}{}

	finished := waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())
	require.Equal(t, api.StopEndTurn, finished.Result.StopReason)
	require.Equal(t, 1, svc.requestCount())
}

// approvalService suspends its first turn on one approval and ends every
// later turn immediately.
type approvalService struct {
	mu       sync.Mutex
	requests []api.TurnRequest
}

type seqStream struct {
	events []api.Event
}

func (s *seqStream) Next(context.Context) (api.Event, error) {
	if len(s.events) == 0 {
		return nil, io.EOF
	}

	ev := s.events[0]
	s.events = s.events[1:]

	return ev, nil
}

func (s *seqStream) Close() error { return nil }

func (a *approvalService) SubmitTurn(_ context.Context, _ string, req api.TurnRequest) (api.EventStream, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	n := len(a.requests)
	a.mu.Unlock()

	if n == 1 {
		return &seqStream{events: []api.Event{
			&api.ToolCallEvent{RunID: "run-1", Request: api.ApprovalRequest{
				ToolCallID: "c1", ToolName: "write_file", ToolArgs: map[string]any{},
			}},
			&api.TurnCompleteEvent{RunID: "run-1", StopReason: api.StopRequiresApproval},
		}}, nil
	}

	return &seqStream{events: []api.Event{
		&api.TurnCompleteEvent{RunID: "run-2", StopReason: api.StopEndTurn},
	}}, nil
}

func (a *approvalService) PendingApprovals(context.Context, string) ([]api.ApprovalRequest, error) {
	return nil, nil
}

func (a *approvalService) CancelTurn(context.Context, string) error { return nil }

// Interrupting a turn suspended on approvals discards the batch, reports the
// turn cancelled, and leaves the conversation open for new submissions. A
// late resolution of the discarded batch is rejected.
func TestController_InterruptWhileSuspendedOnApprovals(t *testing.T) {
	svc := &approvalService{}
	c := newControllerWithPolicy(svc, permission.NewRulePolicy())
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), "write it"))

	needed := waitForEvent[*orchestrator.ApprovalNeededEvent](t, c.Events())
	require.Len(t, needed.Requests, 1)

	require.NoError(t, c.Interrupt(context.Background()))

	finished := waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())
	require.Equal(t, api.StopCancelled, finished.Result.StopReason)
	require.Empty(t, c.Pending())

	err := c.Resolve(context.Background(), []api.ApprovalDecision{{ToolCallID: "c1", Approve: true}})
	require.ErrorIs(t, err, sdkerrors.ErrNoPendingApprovals)

	require.NoError(t, c.Submit(context.Background(), "next"))

	done := waitForEvent[*orchestrator.TurnFinishedEvent](t, c.Events())
	require.Equal(t, api.StopEndTurn, done.Result.StopReason)
}

func TestController_OverlayBlocksDequeue(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)
	defer c.Close()

	c.SetOverlay(context.Background(), true)

	require.NoError(t, c.Submit(context.Background(), "held"))
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, svc.requestCount(), "overlay must hold submissions")

	c.SetOverlay(context.Background(), false)

	waitForEvent[*orchestrator.TurnStartedEvent](t, c.Events())
	require.Equal(t, 1, svc.requestCount())
}

func TestController_ClosedRejectsCalls(t *testing.T) {
	svc := newBlockingService()
	c := newController(svc)

	require.NoError(t, c.Close())

	require.ErrorIs(t, c.Submit(context.Background(), "x"), sdkerrors.ErrControllerClosed)
	require.ErrorIs(t, c.Notify(context.Background(), "x"), sdkerrors.ErrControllerClosed)
	require.ErrorIs(t, c.Resolve(context.Background(), nil), sdkerrors.ErrControllerClosed)

	// Close is idempotent.
	require.NoError(t, c.Close())
}

// errorService fails every submission terminally.
type errorService struct {
	blockingService
}

func (e *errorService) SubmitTurn(context.Context, string, api.TurnRequest) (api.EventStream, error) {
	return nil, &api.ServerError{StatusCode: 403, Message: "forbidden"}
}

func TestController_ErrorClearsQueue(t *testing.T) {
	svc := &errorService{blockingService: *newBlockingService()}
	c := newController(svc)
	defer c.Close()

	c.queue.Enqueue("user_message", "doomed follow-up")

	require.NoError(t, c.Submit(context.Background(), "hello"))

	errEv := waitForEvent[*orchestrator.ErrorEvent](t, c.Events())
	require.Equal(t, "hello", errEv.RestoredInput)

	require.Eventually(t, func() bool { return c.queue.Len() == 0 }, time.Second, time.Millisecond,
		"queue must not replay against a failed turn")
}
