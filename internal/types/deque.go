package types

import (
	"slices"
	"sync"
)

// Deque is a thread-safe double-ended queue backed by a slice.
// Elements keep their insertion order and can be pushed or popped
// from both ends.
type Deque[T any] struct {
	mu   sync.Mutex
	data []T
}

// Append adds the element to the end of the deque.
func (d *Deque[T]) Append(item T) {
	d.mu.Lock()
	d.data = append(d.data, item)
	d.mu.Unlock()
}

// Prepend adds the element to the front of the deque.
func (d *Deque[T]) Prepend(item T) {
	d.mu.Lock()
	d.data = slices.Insert(d.data, 0, item)
	d.mu.Unlock()
}

// PopFirst removes and returns the element from the front of the deque.
// The second return value is false when the deque is empty.
func (d *Deque[T]) PopFirst() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pop(0)
}

// PopLast removes and returns the element from the end of the deque.
// The second return value is false when the deque is empty.
func (d *Deque[T]) PopLast() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pop(len(d.data) - 1)
}

func (d *Deque[T]) pop(i int) (T, bool) {
	var zero T
	if len(d.data) == 0 {
		return zero, false
	}
	item := d.data[i]
	d.data[i] = zero
	d.data = slices.Delete(d.data, i, i+1)
	return item, true
}

// Drain returns all buffered elements in FIFO order and clears the deque.
func (d *Deque[T]) Drain() []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.data) == 0 {
		return nil
	}
	out := slices.Clone(d.data)
	clear(d.data)
	d.data = d.data[:0]
	return out
}

// Len returns the current number of elements in the deque.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}

// IsEmpty reports whether the deque has no elements.
func (d *Deque[T]) IsEmpty() bool {
	return d.Len() == 0
}
