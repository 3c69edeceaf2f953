package permission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRulePolicy_FirstMatchWins(t *testing.T) {
	policy := NewRulePolicy(
		Rule{ToolName: "read_file", Behavior: BehaviorAllow},
		Rule{ToolName: "read_file", Behavior: BehaviorDeny, Reason: "shadowed"},
		Rule{ToolName: "run_shell", Behavior: BehaviorDeny, Reason: "shell disabled"},
	)

	got := policy.Decide("read_file", nil)
	require.Equal(t, BehaviorAllow, got.Behavior)

	got = policy.Decide("run_shell", nil)
	require.Equal(t, BehaviorDeny, got.Behavior)
	require.Equal(t, "shell disabled", got.Reason)
}

func TestRulePolicy_WildcardRule(t *testing.T) {
	policy := NewRulePolicy(
		Rule{ToolName: "read_file", Behavior: BehaviorAllow},
		Rule{Behavior: BehaviorDeny, Reason: "default deny"},
	)

	got := policy.Decide("anything_else", nil)
	require.Equal(t, BehaviorDeny, got.Behavior)
	require.Equal(t, "default deny", got.Reason)
}

func TestRulePolicy_UnmatchedFallsThroughToAsk(t *testing.T) {
	policy := NewRulePolicy(
		Rule{ToolName: "read_file", Behavior: BehaviorAllow},
	)

	got := policy.Decide("write_file", map[string]any{"path": "/tmp/x"})
	require.Equal(t, BehaviorAsk, got.Behavior)
}

func TestRulePolicy_BypassMode(t *testing.T) {
	policy := &RulePolicy{
		Mode: ModeBypassPermissions,
		Rules: []Rule{
			{ToolName: "run_shell", Behavior: BehaviorDeny},
		},
	}

	got := policy.Decide("run_shell", nil)
	require.Equal(t, BehaviorAllow, got.Behavior)
}

func TestAllowAllDenyAll(t *testing.T) {
	require.Equal(t, BehaviorAllow, AllowAll().Decide("x", nil).Behavior)

	got := DenyAll("read-only session").Decide("x", nil)
	require.Equal(t, BehaviorDeny, got.Behavior)
	require.Equal(t, "read-only session", got.Reason)
}
