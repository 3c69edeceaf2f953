package recovery

import (
	"context"
	"errors"
	"time"

	"github.com/letta-ai/letta-agent-sdk-go/internal/api"
)

const (
	// DefaultMaxRetries bounds each retry category per turn.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the first backoff interval; attempt i waits
	// base * 2^(i-1).
	DefaultBaseDelay = 2500 * time.Millisecond

	// DefaultPollTick bounds how long a backoff wait can outlive a
	// cancellation.
	DefaultPollTick = 100 * time.Millisecond
)

// Budget holds the per-turn retry counters. Transient failures and approval
// desyncs draw from one counter, conversation-busy contention from another.
// Budgets reset once per non-continuation submission.
type Budget struct {
	Transient int
	Busy      int
}

// NewBudget returns a fresh budget with maxRetries in each counter.
func NewBudget(maxRetries int) Budget {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return Budget{
		Transient: maxRetries,
		Busy:      maxRetries,
	}
}

// Remaining returns the retries left for the given kind. Kinds outside the
// retry paths have no budget.
func (b *Budget) Remaining(kind Kind) int {
	switch kind {
	case KindTransient, KindApprovalPendingDesync:
		return b.Transient
	case KindConversationBusy:
		return b.Busy
	}

	return 0
}

// Consume decrements the counter feeding the given kind and reports whether
// budget remained. Kinds outside the retry paths always report false.
func (b *Budget) Consume(kind Kind) bool {
	switch kind {
	case KindTransient, KindApprovalPendingDesync:
		if b.Transient <= 0 {
			return false
		}

		b.Transient--

		return true
	case KindConversationBusy:
		if b.Busy <= 0 {
			return false
		}

		b.Busy--

		return true
	}

	return false
}

// Backoff computes and waits out retry delays.
type Backoff struct {
	Base time.Duration
	Tick time.Duration
}

// NewBackoff returns a Backoff with the default schedule.
func NewBackoff() Backoff {
	return Backoff{
		Base: DefaultBaseDelay,
		Tick: DefaultPollTick,
	}
}

// DelayFor returns the wait before retry attempt i (1-indexed): the server's
// retry hint when present, otherwise Base doubling per attempt.
func (b Backoff) DelayFor(attempt int, err error) time.Duration {
	if hint := retryHint(err); hint > 0 {
		return hint
	}

	if attempt < 1 {
		attempt = 1
	}

	return b.Base << (attempt - 1)
}

// Wait blocks for the given delay, polling ctx and the cancel signal on a
// short tick. It returns false the moment either fires, so a cancelled wait
// never counts as a consumed retry.
func (b Backoff) Wait(ctx context.Context, cancelSignal <-chan struct{}, delay time.Duration) bool {
	tick := b.Tick
	if tick <= 0 {
		tick = DefaultPollTick
	}

	deadline := time.Now().Add(delay)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-cancelSignal:
			return false
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return true
			}
		}
	}
}

func retryHint(err error) time.Duration {
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) && serverErr.RetryAfter != nil {
		return *serverErr.RetryAfter
	}

	return 0
}
