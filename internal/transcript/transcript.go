// Package transcript provides the append-only record of turn activity.
// Rendering is the caller's concern; the orchestrator only appends.
package transcript

import (
	"sync"
	"time"
)

// EntryKind classifies transcript entries.
type EntryKind string

const (
	// KindUserInput records a submitted user turn.
	KindUserInput EntryKind = "user_input"
	// KindAgentText records agent output text.
	KindAgentText EntryKind = "agent_text"
	// KindToolResult records an executed tool call outcome.
	KindToolResult EntryKind = "tool_result"
	// KindApproval records an approval decision.
	KindApproval EntryKind = "approval"
	// KindError records a surfaced turn failure.
	KindError EntryKind = "error"
)

// Entry is one transcript record.
type Entry struct {
	Kind  EntryKind
	RunID string
	Text  string
	At    time.Time
}

// Buffer is an append-only transcript sink.
type Buffer interface {
	Append(entry Entry)
}

// MemoryBuffer keeps entries in memory. Safe for concurrent use.
type MemoryBuffer struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryBuffer returns an empty in-memory transcript.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{}
}

// Append implements Buffer.
func (b *MemoryBuffer) Append(entry Entry) {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
}

// Entries returns a copy of the recorded entries in append order.
func (b *MemoryBuffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)

	return out
}

// Nop is a Buffer that discards everything.
type Nop struct{}

// Append implements Buffer.
func (Nop) Append(Entry) {}

// Compile-time verification that buffer implementations satisfy Buffer.
var (
	_ Buffer = (*MemoryBuffer)(nil)
	_ Buffer = Nop{}
)
