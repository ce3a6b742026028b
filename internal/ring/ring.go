// Package ring implements the bounded single-producer single-consumer
// queues that connect pipeline stages (spec.md 5: "Tasks communicate
// through bounded single-producer single-consumer ring buffers of fixed
// capacity... default 4 batches").
package ring

import "sync"

// Buffer is a fixed-capacity SPSC queue of batches of type T. Push never
// blocks: when full, the oldest batch is evicted to make room and the
// eviction is reported back to the caller so it can bump an overrun
// counter (spec.md 4.2: "the oldest complete batch is dropped and an
// overrun counter is incremented").
type Buffer[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T
	cap      int
	closed   bool
}

// New builds a Buffer with room for capacity batches. capacity <= 0 is
// treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	b := &Buffer[T]{cap: capacity}
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Push appends one batch, evicting the oldest if the buffer is full.
// Returns true if an existing batch was evicted (an overrun).
func (b *Buffer[T]) Push(v T) (evicted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	if len(b.items) >= b.cap {
		b.items = b.items[1:]
		evicted = true
	}
	b.items = append(b.items, v)
	b.notEmpty.Signal()
	return evicted
}

// Pop blocks until a batch is available or the buffer is closed. ok is
// false only when the buffer was closed and drained.
func (b *Buffer[T]) Pop() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.items) == 0 && !b.closed {
		b.notEmpty.Wait()
	}
	if len(b.items) == 0 {
		return v, false
	}
	v = b.items[0]
	b.items = b.items[1:]
	return v, true
}

// TryPop returns immediately with ok == false if no batch is queued.
func (b *Buffer[T]) TryPop() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return v, false
	}
	v = b.items[0]
	b.items = b.items[1:]
	return v, true
}

// Len reports the number of queued batches.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Close wakes any blocked consumer; subsequent Push calls are no-ops.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.notEmpty.Broadcast()
}
