// Package submitqueue buffers user input arriving while the orchestrator is
// busy.
//
// Entries are held until the dequeue gate opens, then the whole queue drains
// at once into a single synthesized turn. Partial drains never happen, so a
// burst of queued input becomes exactly one submission.
package submitqueue

import (
	"strings"
	"sync"
	"time"
)

// EntryKind distinguishes user text from background notifications.
type EntryKind string

const (
	// KindUserMessage is text typed by the user.
	KindUserMessage EntryKind = "user_message"
	// KindNotification is a background event queued for the agent.
	KindNotification EntryKind = "notification"
)

// Entry is one buffered submission.
type Entry struct {
	Kind     EntryKind
	Text     string
	QueuedAt time.Time
}

// Queue is an append-only buffer drained atomically. Safe for concurrent
// use.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends an entry.
func (q *Queue) Enqueue(kind EntryKind, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, Entry{
		Kind:     kind,
		Text:     text,
		QueuedAt: time.Now(),
	})
}

// DrainAll removes and returns every queued entry in arrival order.
func (q *Queue) DrainAll() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.entries
	q.entries = nil

	return entries
}

// Clear discards all queued entries.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

// Synthesize concatenates drained entries into the text of one turn.
// Notifications are bracketed so the agent can tell them from user speech.
func Synthesize(entries []Entry) string {
	parts := make([]string, 0, len(entries))

	for _, entry := range entries {
		text := entry.Text
		if entry.Kind == KindNotification {
			text = "[notification] " + text
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, "\n\n")
}
