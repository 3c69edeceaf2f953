package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
)

func TestClassify_StructuredCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "approval pending code",
			err:  &api.ServerError{Code: api.CodeApprovalPending},
			want: KindApprovalPendingDesync,
		},
		{
			name: "invalid tool call ids code",
			err:  &api.ServerError{Code: api.CodeInvalidToolCallIDs},
			want: KindInvalidToolCallIDs,
		},
		{
			name: "conversation busy code",
			err:  &api.ServerError{Code: api.CodeConversationBusy},
			want: KindConversationBusy,
		},
		{
			name: "rate limited",
			err:  &api.ServerError{StatusCode: 429},
			want: KindTransient,
		},
		{
			name: "server error",
			err:  &api.ServerError{StatusCode: 503},
			want: KindTransient,
		},
		{
			name: "request timeout",
			err:  &api.ServerError{StatusCode: 408},
			want: KindTransient,
		},
		{
			name: "client error is terminal",
			err:  &api.ServerError{StatusCode: 404, Message: "conversation not found"},
			want: KindTerminal,
		},
		{
			name: "plain network error",
			err:  errors.New("connection reset by peer"),
			want: KindTransient,
		},
		{
			name: "wrapped server error",
			err:  fmt.Errorf("submit: %w", &api.ServerError{Code: api.CodeConversationBusy}),
			want: KindConversationBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_MessageHeuristic(t *testing.T) {
	tests := []struct {
		message string
		want    Kind
	}{
		{"Cannot submit: approval required for pending tool calls", KindApprovalPendingDesync},
		{"Unknown tool_call_id in approval payload", KindInvalidToolCallIDs},
		{"Conversation is busy: another run is active", KindConversationBusy},
		{"Upstream temporarily unavailable", KindTransient},
		{"Conversation was deleted", KindTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			err := &api.ServerError{StatusCode: 400, Message: tt.message}
			require.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestPlan_DecisionTable(t *testing.T) {
	tests := []struct {
		err  error
		want Action
	}{
		{&api.ServerError{Code: api.CodeApprovalPending}, ActionResyncApprovals},
		{&api.ServerError{Code: api.CodeInvalidToolCallIDs}, ActionAdoptPending},
		{&api.ServerError{Code: api.CodeConversationBusy}, ActionRetryAfterBackoff},
		{&api.ServerError{StatusCode: 500}, ActionRetryAfterBackoff},
		{&api.ServerError{StatusCode: 403, Message: "forbidden"}, ActionEscalate},
	}

	for _, tt := range tests {
		_, action := Plan(tt.err)
		require.Equal(t, tt.want, action)
	}
}

func TestBudget_SeparateCounters(t *testing.T) {
	budget := NewBudget(3)

	// Transient and desync share one counter.
	require.True(t, budget.Consume(KindTransient))
	require.True(t, budget.Consume(KindApprovalPendingDesync))
	require.True(t, budget.Consume(KindTransient))
	require.False(t, budget.Consume(KindTransient))

	// Busy retries draw from their own counter.
	require.True(t, budget.Consume(KindConversationBusy))
	require.True(t, budget.Consume(KindConversationBusy))
	require.True(t, budget.Consume(KindConversationBusy))
	require.False(t, budget.Consume(KindConversationBusy))
}

func TestBudget_TerminalNeverConsumes(t *testing.T) {
	budget := NewBudget(1)

	require.False(t, budget.Consume(KindTerminal))
	require.False(t, budget.Consume(KindInvalidToolCallIDs))
	require.Equal(t, 1, budget.Transient)
	require.Equal(t, 1, budget.Busy)
}

func TestBackoff_Schedule(t *testing.T) {
	backoff := NewBackoff()

	require.Equal(t, 2500*time.Millisecond, backoff.DelayFor(1, nil))
	require.Equal(t, 5000*time.Millisecond, backoff.DelayFor(2, nil))
	require.Equal(t, 10000*time.Millisecond, backoff.DelayFor(3, nil))
}

func TestBackoff_ServerHintWins(t *testing.T) {
	backoff := NewBackoff()

	hint := 750 * time.Millisecond
	err := &api.ServerError{StatusCode: 429, RetryAfter: &hint}

	require.Equal(t, hint, backoff.DelayFor(3, err))
}

func TestBackoff_WaitCompletes(t *testing.T) {
	backoff := Backoff{Base: time.Millisecond, Tick: time.Millisecond}

	done := backoff.Wait(context.Background(), nil, 5*time.Millisecond)
	require.True(t, done)
}

func TestBackoff_WaitCancelledBySignal(t *testing.T) {
	backoff := Backoff{Base: time.Second, Tick: 5 * time.Millisecond}

	cancelSignal := make(chan struct{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(cancelSignal)
	}()

	start := time.Now()
	done := backoff.Wait(context.Background(), cancelSignal, 10*time.Second)

	require.False(t, done)
	require.Less(t, time.Since(start), time.Second)
}

func TestBackoff_WaitCancelledByContext(t *testing.T) {
	backoff := Backoff{Base: time.Second, Tick: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := backoff.Wait(ctx, nil, 10*time.Second)
	require.False(t, done)
}
