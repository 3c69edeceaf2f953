// Package permission provides the approval policy types used to classify
// tool calls before execution.
package permission

// Mode represents different permission handling modes.
type Mode string

const (
	// ModeDefault consults the configured rules, asking when none match.
	ModeDefault Mode = "default"
	// ModeBypassPermissions allows every tool call without prompting.
	ModeBypassPermissions Mode = "bypassPermissions"
)

// Behavior represents the permission behavior for a tool call.
type Behavior string

const (
	// BehaviorAllow automatically allows the tool call.
	BehaviorAllow Behavior = "allow"
	// BehaviorDeny automatically denies the tool call.
	BehaviorDeny Behavior = "deny"
	// BehaviorAsk routes the tool call to the user for a decision.
	BehaviorAsk Behavior = "ask"
)

// Decision is the outcome of evaluating a policy against one tool call.
type Decision struct {
	Behavior Behavior
	Reason   string
}

// Policy decides whether a tool call may run without user input.
//
// Policies see only the tool name and its arguments; they never see
// conversation state, so a decision is stable across retries of the same
// tool call.
type Policy interface {
	Decide(toolName string, args map[string]any) Decision
}

// Rule maps a tool name to a behavior. An empty ToolName matches every tool.
type Rule struct {
	ToolName string
	Behavior Behavior
	Reason   string
}

// RulePolicy evaluates an ordered rule list, first match wins. Tool calls
// matching no rule fall through to ask.
type RulePolicy struct {
	Mode  Mode
	Rules []Rule
}

// NewRulePolicy returns a RulePolicy in default mode with the given rules.
func NewRulePolicy(rules ...Rule) *RulePolicy {
	return &RulePolicy{
		Mode:  ModeDefault,
		Rules: rules,
	}
}

// Decide implements Policy.
func (p *RulePolicy) Decide(toolName string, args map[string]any) Decision {
	if p.Mode == ModeBypassPermissions {
		return Decision{
			Behavior: BehaviorAllow,
			Reason:   "permission checks bypassed",
		}
	}

	for _, rule := range p.Rules {
		if rule.ToolName != "" && rule.ToolName != toolName {
			continue
		}

		return Decision{
			Behavior: rule.Behavior,
			Reason:   rule.Reason,
		}
	}

	return Decision{Behavior: BehaviorAsk}
}

// Compile-time verification that policy implementations satisfy Policy.
var (
	_ Policy = (*RulePolicy)(nil)
	_ Policy = (PolicyFunc)(nil)
)

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(toolName string, args map[string]any) Decision

// Decide implements Policy.
func (f PolicyFunc) Decide(toolName string, args map[string]any) Decision {
	return f(toolName, args)
}

// AllowAll returns a policy that allows every tool call.
func AllowAll() Policy {
	return PolicyFunc(func(string, map[string]any) Decision {
		return Decision{Behavior: BehaviorAllow}
	})
}

// DenyAll returns a policy that denies every tool call with the given reason.
func DenyAll(reason string) Policy {
	return PolicyFunc(func(string, map[string]any) Decision {
		return Decision{
			Behavior: BehaviorDeny,
			Reason:   reason,
		}
	})
}
