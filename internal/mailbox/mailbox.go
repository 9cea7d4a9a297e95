// Package mailbox provides an unbounded, blocking FIFO queue shared between
// goroutines.
//
// A Mailbox never drops or reorders items. Producers never block; consumers
// block in Pop until an item is available. Any number of producers and
// consumers may use the same Mailbox concurrently, and each item is delivered
// to exactly one consumer.
//
// # Usage
//
//	events := mailbox.New[charger.Event]()
//	events.Push(charger.EventPlugIn)
//	ev := events.Pop()
//
// Loops that must stop on shutdown use PopContext instead of Pop:
//
//	for {
//	    ev, err := events.PopContext(ctx)
//	    if err != nil {
//	        return // ctx cancelled
//	    }
//	    handle(ev)
//	}
package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a thread-safe FIFO queue of T.
//
// The zero value is not usable; create one with New.
type Mailbox[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []T
}

// New creates an empty Mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.ready = sync.NewCond(&m.mu)
	return m
}

// Push appends item to the tail of the queue and wakes one waiting consumer.
// It never blocks and never fails.
func (m *Mailbox[T]) Push(item T) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	m.ready.Signal()
}

// Pop removes and returns the head of the queue, blocking until an item is
// available.
func (m *Mailbox[T]) Pop() T {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.items) == 0 {
		m.ready.Wait()
	}
	return m.take()
}

// PopContext is Pop with cancellation. It returns ctx.Err() if ctx is done
// while the queue is empty. No item is consumed on the error path.
//
// An item that is already queued is returned even if ctx has been cancelled.
func (m *Mailbox[T]) PopContext(ctx context.Context) (T, error) {
	// Broadcast under the lock so a waiter cannot miss the wake-up between
	// its ctx check and its Wait.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.ready.Broadcast()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.items) == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		m.ready.Wait()
	}
	return m.take(), nil
}

// Len returns the number of queued items at the moment of the call.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// IsEmpty reports whether the queue is empty at the moment of the call.
func (m *Mailbox[T]) IsEmpty() bool {
	return m.Len() == 0
}

// take pops the head. Caller must hold m.mu and ensure the queue is non-empty.
func (m *Mailbox[T]) take() T {
	var zero T
	item := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	if len(m.items) == 0 {
		// Release the backing array once drained.
		m.items = nil
	}
	return item
}
