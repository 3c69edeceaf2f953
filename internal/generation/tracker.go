// Package generation tracks turn generations and the cancellation state that
// spans them.
//
// Every turn and every continuation of a turn carries a generation number.
// Interrupting a conversation advances the generation, which atomically
// invalidates all in-flight continuations: a continuation whose generation no
// longer matches the tracker's must become a no-op. The tracker also carries
// a sticky cancelled latch that outlives the interrupt itself, so work
// scheduled after the interrupt but belonging to the old turn still observes
// it, and an abort registry so in-flight requests can be cut off immediately.
package generation

import (
	"context"
	"sync"
)

// Tracker is the single source of truth for turn generations, the in-flight
// depth counter, and the cancellation latch. All methods are safe for
// concurrent use.
type Tracker struct {
	mu sync.Mutex

	generation uint64
	depth      int
	cancelled  bool
	cancelCh   chan struct{}

	nextAbortID uint64
	aborts      map[uint64]context.CancelFunc
}

// NewTracker returns a Tracker at generation zero with no turn in flight.
func NewTracker() *Tracker {
	return &Tracker{
		cancelCh: make(chan struct{}),
		aborts:   make(map[uint64]context.CancelFunc),
	}
}

// Generation returns the current generation number.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.generation
}

// Live reports whether gen is still the current generation.
func (t *Tracker) Live(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return gen == t.generation
}

// Acquire attempts to begin executing a turn step at the given generation.
//
// It fails when gen is stale, when the cancelled latch is set, or when a
// non-reentrant caller would overlap a turn already in flight. Reentrant
// callers (continuations of the running turn) stack: each successful Acquire
// increments the depth counter and must be paired with a Release.
func (t *Tracker) Acquire(gen uint64, reentry bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation || t.cancelled {
		return false
	}

	if !reentry && t.depth > 0 {
		return false
	}

	t.depth++

	return true
}

// Release ends a turn step begun with Acquire. Releases carrying a stale
// generation are ignored so that unwinding continuations of an interrupted
// turn cannot corrupt the depth of the turn that replaced it.
func (t *Tracker) Release(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return
	}

	if t.depth > 0 {
		t.depth--
	}
}

// Depth returns the current in-flight nesting depth.
func (t *Tracker) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.depth
}

// Idle reports whether no turn step is currently executing.
func (t *Tracker) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.depth == 0
}

// Interrupt advances the generation, closes the broadcast channel, and fires
// every registered abort. After Interrupt returns, Acquire fails for every
// previously issued generation and all in-flight request contexts are
// cancelled.
//
// The cancelled latch is set only when a turn step was executing, because
// the latch stays up until that step unwinds and clears it. With nothing in
// flight there is no unwinding owner, and a latch with no owner would block
// every future submission. Interrupt reports whether a step was in flight so
// the caller knows whether a cancelled terminal state is still owed.
func (t *Tracker) Interrupt() bool {
	t.mu.Lock()

	inFlight := t.depth > 0

	t.generation++
	t.depth = 0

	if inFlight {
		t.cancelled = true
	}

	close(t.cancelCh)
	t.cancelCh = make(chan struct{})

	aborts := t.aborts
	t.aborts = make(map[uint64]context.CancelFunc)

	t.mu.Unlock()

	for _, abort := range aborts {
		abort()
	}

	return inFlight
}

// Cancelled reports whether the cancelled latch is set.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// ClearCancelled resets the cancelled latch once the interrupted turn has
// fully unwound and its terminal state has been surfaced.
func (t *Tracker) ClearCancelled() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelled = false
}

// CancelSignal returns a channel closed by the next Interrupt. Callers
// sitting in backoff waits select on it alongside their timer.
func (t *Tracker) CancelSignal() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelCh
}

// WithAbort derives a context cancelled by the next Interrupt. The returned
// release function unregisters the abort and must be called when the guarded
// operation completes.
func (t *Tracker) WithAbort(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()

	if t.cancelled {
		t.mu.Unlock()
		cancel()

		return ctx, func() {}
	}

	id := t.nextAbortID
	t.nextAbortID++
	t.aborts[id] = cancel

	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		delete(t.aborts, id)
		t.mu.Unlock()

		cancel()
	}

	return ctx, release
}
