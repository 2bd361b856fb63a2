// Package util
//
// This file provides a lock-free Multi-Producer Single-Consumer (MPSC) queue.
//
// Properties:
//
//   - Push never blocks and never takes a lock, so request goroutines can hand
//     off work (e.g. broker events) without waiting for the consumer
//   - Unbounded: the queue grows as needed, limited only by available memory
//   - Single consumer: items are delivered on the Recv() channel by one
//     internal goroutine
//   - Per-producer FIFO: items pushed by one goroutine arrive in push order;
//     there is no ordering guarantee between different producers
//   - Close stops new pushes, already queued items are still delivered and the
//     Recv() channel is closed afterwards
package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// queueNode is a single element of the linked list backing the queue
type queueNode[T any] struct {
	value *T
	next  atomic.Pointer[queueNode[T]]
}

// LockFreeMPSC is a lock-free multi-producer single-consumer queue.
// The zero value is not usable, create instances with NewLockFreeMPSC.
type LockFreeMPSC[T any] struct {
	head   atomic.Pointer[queueNode[T]] // sentinel, only moved by the consumer
	tail   atomic.Pointer[queueNode[T]]
	out    chan *T
	closed atomic.Bool
	done   chan struct{}

	// wakeup for the consumer goroutine when the list is empty
	mu   sync.Mutex
	cond *sync.Cond
}

// NewLockFreeMPSC creates a new queue and starts its consumer goroutine
func NewLockFreeMPSC[T any]() *LockFreeMPSC[T] {
	sentinel := &queueNode[T]{}

	q := &LockFreeMPSC[T]{
		out:  make(chan *T),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()

	return q
}

// Push appends an item to the queue.
// Returns false if the item is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *LockFreeMPSC[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	n := &queueNode[T]{value: value}

	for attempt := 0; ; attempt++ {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next != nil {
			// another producer linked a node but has not moved the tail yet
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if tail.next.CompareAndSwap(nil, n) {
			// a failed CAS here means another producer already advanced the tail
			q.tail.CompareAndSwap(tail, n)

			q.mu.Lock()
			q.cond.Signal()
			q.mu.Unlock()
			return true
		}

		// contention: spin a little, then yield
		if attempt > 8 {
			runtime.Gosched()
		}
	}
}

// consume moves items from the linked list to the output channel
func (q *LockFreeMPSC[T]) consume() {
	defer close(q.done)
	defer close(q.out)

	for {
		head := q.head.Load()
		next := head.next.Load()

		if next != nil {
			value := next.value
			q.head.Store(next)
			q.out <- value
			next.value = nil
			continue
		}

		if q.closed.Load() {
			return
		}

		q.mu.Lock()
		// re-check under the lock, Push signals while holding it
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}

// Recv returns the channel items are delivered on.
// The channel is closed once the queue is closed and drained.
func (q *LockFreeMPSC[T]) Recv() <-chan *T {
	return q.out
}

// Close stops accepting new items. Items already queued are still delivered.
func (q *LockFreeMPSC[T]) Close() {
	q.closed.Store(true)

	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// IsClosed returns true if the queue is closed.
func (q *LockFreeMPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// Done is closed after the consumer goroutine has exited.
func (q *LockFreeMPSC[T]) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of queued items that have not been handed to the
// output channel yet. It walks the list and is meant for status output only.
func (q *LockFreeMPSC[T]) Len() int {
	count := 0
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}
