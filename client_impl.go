package lettasdk

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	internalclient "github.com/letta-ai/letta-agent-sdk-go/internal/client"
	sdkerrors "github.com/letta-ai/letta-agent-sdk-go/internal/errors"
	"github.com/letta-ai/letta-agent-sdk-go/internal/hook"
	internalmcp "github.com/letta-ai/letta-agent-sdk-go/internal/mcp"
	"github.com/letta-ai/letta-agent-sdk-go/internal/recovery"
	"github.com/letta-ai/letta-agent-sdk-go/internal/tooling"
)

// clientImpl implements Client on top of the internal controller.
type clientImpl struct {
	mu     sync.Mutex
	ctrl   *internalclient.Controller
	convID string
}

func newClientImpl() *clientImpl {
	return &clientImpl{}
}

// Start implements Client.
func (c *clientImpl) Start(_ context.Context, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctrl != nil {
		return sdkerrors.ErrAlreadyStarted
	}

	options := applyAgentOptions(opts)

	if options.Service == nil {
		return sdkerrors.ErrServiceRequired
	}

	logger := options.Logger
	if logger == nil {
		logger = NopLogger()
	}

	convID := options.ConversationID
	if convID == "" {
		convID = "conv_" + strings.ToLower(ulid.Make().String())
	}

	server := internalmcp.NewServer("sdk", "1.0.0")

	for _, tool := range options.Tools {
		def := internalmcp.NewTool(tool.Name, tool.Description, tool.InputSchema)
		def.Annotations = tool.Annotations

		if err := server.AddTool(def, tool.Handler); err != nil {
			return fmt.Errorf("failed to register tool %q: %w", tool.Name, err)
		}
	}

	var notifier *hook.Notifier

	if len(options.Hooks) > 0 {
		notifier = hook.NewNotifier(logger)
		for event, callbacks := range options.Hooks {
			for _, callback := range callbacks {
				notifier.On(event, callback)
			}
		}
	}

	backoff := recovery.NewBackoff()
	if options.BackoffBase > 0 {
		backoff.Base = options.BackoffBase
	}

	if options.BackoffTick > 0 {
		backoff.Tick = options.BackoffTick
	}

	c.convID = convID
	c.ctrl = internalclient.New(internalclient.Config{
		Logger:         logger,
		Service:        options.Service,
		ConversationID: convID,
		Policy:         options.policy(),
		Executor:       tooling.NewMCPExecutor(logger, server),
		Transcript:     options.Transcript,
		Hooks:          notifier,
		Backoff:        backoff,
		MaxRetries:     options.MaxRetries,
	})

	logger.Debug("Client started", "conversation_id", convID)

	return nil
}

// Submit implements Client.
func (c *clientImpl) Submit(ctx context.Context, text string) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Submit(ctx, text)
}

// Notify implements Client.
func (c *clientImpl) Notify(ctx context.Context, text string) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Notify(ctx, text)
}

// Pending implements Client.
func (c *clientImpl) Pending() []ApprovalRequest {
	ctrl, err := c.controller()
	if err != nil {
		return nil
	}

	return ctrl.Pending()
}

// Resolve implements Client.
func (c *clientImpl) Resolve(ctx context.Context, decisions []ApprovalDecision) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Resolve(ctx, decisions)
}

// Interrupt implements Client.
func (c *clientImpl) Interrupt(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Interrupt(ctx)
}

// SetOverlay implements Client.
func (c *clientImpl) SetOverlay(ctx context.Context, blocked bool) {
	ctrl, err := c.controller()
	if err != nil {
		return
	}

	ctrl.SetOverlay(ctx, blocked)
}

// Events implements Client.
func (c *clientImpl) Events() <-chan TurnEvent {
	ctrl, err := c.controller()
	if err != nil {
		closed := make(chan TurnEvent)
		close(closed)

		return closed
	}

	return ctrl.Events()
}

// ConversationID implements Client.
func (c *clientImpl) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.convID
}

// Close implements Client.
func (c *clientImpl) Close() error {
	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()

	if ctrl == nil {
		return nil
	}

	return ctrl.Close()
}

func (c *clientImpl) controller() (*internalclient.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctrl == nil {
		return nil, sdkerrors.ErrNotStarted
	}

	return c.ctrl, nil
}
