package mailbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func receive[T any](t *testing.T, m *Mailbox[T]) T {
	t.Helper()
	select {
	case v, ok := <-m.Events():
		require.True(t, ok, "events channel closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mailbox event")
	}
	var zero T
	return zero
}

func TestMailbox_Push(t *testing.T) {
	m := New[string]()
	defer m.Close()

	require.NoError(t, m.Push("hello"))
	assert.Equal(t, "hello", receive(t, m))
}

func TestMailbox_PushDoesNotBlockWithoutReader(t *testing.T) {
	m := New[int]()
	defer m.Close()

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Push(i))
	}
	for i := 0; i < 1000; i++ {
		assert.Equal(t, i, receive(t, m))
	}
}

func TestMailbox_QueuesUntilDrained(t *testing.T) {
	m := New[int]()
	defer m.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Push(i))
	}
	// Nothing is pulled off the queue before Events is called.
	assert.Equal(t, 3, m.Len())
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, receive(t, m))
	}
	assert.Equal(t, 0, m.Len())
}

func TestMailbox_PushClosed(t *testing.T) {
	m := New[int]()
	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
	assert.ErrorIs(t, m.Push(1), ErrClosed)
}

func TestMailbox_CloseIdempotent(t *testing.T) {
	m := New[int]()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}

func TestMailbox_EventsClosedAfterClose(t *testing.T) {
	m := New[int]()
	require.NoError(t, m.Push(1))
	require.NoError(t, m.Close())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-m.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed")
		}
	}
}

func TestMailbox_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	m := New[[2]int]()
	defer m.Close()

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = m.Push([2]int{p, i})
			}
		}(p)
	}

	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	for n := 0; n < producers*perProducer; n++ {
		v := receive(t, m)
		assert.Equal(t, last[v[0]]+1, v[1], "producer %d out of order", v[0])
		last[v[0]] = v[1]
	}
	wg.Wait()
}

func TestPropertyMailboxPreservesOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOf(rapid.Int()).Draw(rt, "values")
		m := New[int]()
		defer m.Close()

		for _, v := range values {
			if err := m.Push(v); err != nil {
				rt.Fatalf("push: %v", err)
			}
		}
		for i, want := range values {
			select {
			case got := <-m.Events():
				if got != want {
					rt.Fatalf("index %d: got %d want %d", i, got, want)
				}
			case <-time.After(2 * time.Second):
				rt.Fatalf("index %d: timed out", i)
			}
		}
	})
}
