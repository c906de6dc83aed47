// Package mailbox provides an unbounded, ordered queue drained through a Go
// channel. It bridges callback-style producers running on arbitrary
// goroutines to a single consumer reading in delivery order.
package mailbox

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("mailbox closed")

// Mailbox queues values of type T and hands them to Events in push order.
// Push never blocks.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	start  sync.Once
	events chan T
	done   chan struct{}
}

// New creates a Mailbox. Its pump goroutine starts on the first call to
// Events, so a Mailbox that is never drained holds no goroutine.
//
// Postcondition: Returns an open Mailbox; once Events has been called, Close
// must be called to release the pump.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{
		events: make(chan T),
		done:   make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Push enqueues v.
//
// Postcondition: v is queued behind every earlier Push, or ErrClosed is returned.
func (m *Mailbox[T]) Push(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.queue = append(m.queue, v)
	m.cond.Signal()
	return nil
}

// Events returns the read-only output channel. It is closed after Close once
// the pump exits; values still queued at that point are discarded.
func (m *Mailbox[T]) Events() <-chan T {
	m.start.Do(func() { go m.pump() })
	return m.events
}

// Len returns the number of values queued but not yet handed to Events.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close stops the mailbox. It is idempotent.
//
// Postcondition: Further Push calls return ErrClosed and Events is eventually closed.
func (m *Mailbox[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		m.queue = nil
		close(m.done)
		m.cond.Broadcast()
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (m *Mailbox[T]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mailbox[T]) pump() {
	defer close(m.events)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}
		v := m.queue[0]
		var zero T
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.events <- v:
		case <-m.done:
			return
		}
	}
}
