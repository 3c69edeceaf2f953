package lettasdk

import (
	"log/slog"
	"time"

	"github.com/letta-ai/letta-agent-sdk-go/internal/permission"
)

// AgentOptions holds the full client configuration. Most callers use the
// functional options instead of constructing this directly.
type AgentOptions struct {
	Logger         *slog.Logger
	Service        Service
	ConversationID string
	Policy         PermissionPolicy
	Rules          []PermissionRule
	BypassPolicy   bool
	Tools          []Tool
	Transcript     TranscriptBuffer
	Hooks          map[HookEvent][]HookCallback
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffTick    time.Duration
}

// Option configures AgentOptions using the functional options pattern.
type Option func(*AgentOptions)

// applyAgentOptions applies functional options to an AgentOptions struct.
func applyAgentOptions(opts []Option) *AgentOptions {
	options := &AgentOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *AgentOptions) {
		o.Logger = logger
	}
}

// WithService sets the remote agent service to drive turns against.
// A service is required; Start fails without one.
func WithService(svc Service) Option {
	return func(o *AgentOptions) {
		o.Service = svc
	}
}

// WithConversationID binds the client to an existing conversation.
// If not set, a fresh conversation identifier is generated.
func WithConversationID(id string) Option {
	return func(o *AgentOptions) {
		o.ConversationID = id
	}
}

// ===== Permissions =====

// WithPermissionPolicy sets the policy deciding which tool calls run
// without user input. Takes precedence over WithPermissionRules.
func WithPermissionPolicy(policy PermissionPolicy) Option {
	return func(o *AgentOptions) {
		o.Policy = policy
	}
}

// WithPermissionRules configures an ordered rule list, first match wins.
// Tool calls matching no rule are surfaced to the caller for a decision.
func WithPermissionRules(rules ...PermissionRule) Option {
	return func(o *AgentOptions) {
		o.Rules = append(o.Rules, rules...)
	}
}

// WithBypassPermissions allows every tool call without prompting.
func WithBypassPermissions() Option {
	return func(o *AgentOptions) {
		o.BypassPolicy = true
	}
}

// ===== Tools =====

// WithTools registers locally executable tools. Tools annotated read-only
// may execute concurrently; all others execute sequentially in batch order.
func WithTools(tools ...Tool) Option {
	return func(o *AgentOptions) {
		o.Tools = append(o.Tools, tools...)
	}
}

// ===== Observability =====

// WithTranscript sets the append-only sink turn activity is recorded into.
func WithTranscript(buffer TranscriptBuffer) Option {
	return func(o *AgentOptions) {
		o.Transcript = buffer
	}
}

// WithHook registers a fire-and-forget callback at a turn boundary.
// Callbacks run on their own goroutines and never block the turn loop.
func WithHook(event HookEvent, callback HookCallback) Option {
	return func(o *AgentOptions) {
		if o.Hooks == nil {
			o.Hooks = make(map[HookEvent][]HookCallback)
		}

		o.Hooks[event] = append(o.Hooks[event], callback)
	}
}

// ===== Retry/backoff =====

// WithMaxRetries bounds each retry category per turn. Defaults to 3.
func WithMaxRetries(n int) Option {
	return func(o *AgentOptions) {
		o.MaxRetries = n
	}
}

// WithBackoffBase sets the first retry delay; attempt i waits
// base * 2^(i-1). Defaults to 2.5s.
func WithBackoffBase(base time.Duration) Option {
	return func(o *AgentOptions) {
		o.BackoffBase = base
	}
}

// WithBackoffTick sets how often a backoff wait polls for cancellation.
// Defaults to 100ms.
func WithBackoffTick(tick time.Duration) Option {
	return func(o *AgentOptions) {
		o.BackoffTick = tick
	}
}

// policy resolves the effective permission policy from the options.
func (o *AgentOptions) policy() PermissionPolicy {
	if o.BypassPolicy {
		return &permission.RulePolicy{Mode: permission.ModeBypassPermissions}
	}

	if o.Policy != nil {
		return o.Policy
	}

	return permission.NewRulePolicy(o.Rules...)
}
