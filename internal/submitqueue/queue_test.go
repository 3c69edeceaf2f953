package submitqueue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueue_DrainAllEmptiesQueue(t *testing.T) {
	queue := New()

	queue.Enqueue(KindUserMessage, "first")
	queue.Enqueue(KindUserMessage, "second")
	require.Equal(t, 2, queue.Len())

	entries := queue.DrainAll()
	require.Len(t, entries, 2)
	require.Equal(t, "first", entries[0].Text)
	require.Equal(t, "second", entries[1].Text)
	require.Zero(t, queue.Len())

	require.Empty(t, queue.DrainAll())
}

func TestQueue_Clear(t *testing.T) {
	queue := New()

	queue.Enqueue(KindUserMessage, "doomed")
	queue.Clear()

	require.Zero(t, queue.Len())
}

func TestSynthesize_ConcatenatesInOrder(t *testing.T) {
	queue := New()

	queue.Enqueue(KindUserMessage, "fix the bug")
	queue.Enqueue(KindNotification, "file changed: main.go")
	queue.Enqueue(KindUserMessage, "also add a test")

	got := Synthesize(queue.DrainAll())

	require.Equal(t, "fix the bug\n\n[notification] file changed: main.go\n\nalso add a test", got)
}

func TestQueue_ConcurrentEnqueueSingleDrain(t *testing.T) {
	queue := New()

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			queue.Enqueue(KindUserMessage, fmt.Sprintf("msg-%d", i))
		}()
	}

	wg.Wait()

	entries := queue.DrainAll()
	require.Len(t, entries, 50)
	require.Zero(t, queue.Len())
}
