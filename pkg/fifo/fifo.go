// Package fifo provides a growable ring-buffer queue.
package fifo

const defaultCapacity = 512

// Queue is an unbounded FIFO backed by a circular buffer. The buffer doubles
// in size when full and never shrinks. Not safe for concurrent use.
type Queue[T any] struct {
	buf  []T
	head int
	size int
}

// New creates an empty queue with the default initial capacity.
func New[T any]() *Queue[T] {
	return NewWithCapacity[T](defaultCapacity)
}

// NewWithCapacity creates an empty queue with room for capacity elements
// before the first reallocation.
func NewWithCapacity[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return q.size
}

// Cap returns the current capacity of the backing buffer.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Enqueue appends item at the tail, growing the buffer if it is full.
func (q *Queue[T]) Enqueue(item T) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = item
	q.size++
}

// Peek returns the oldest element without removing it. The second return
// value is false when the queue is empty.
func (q *Queue[T]) Peek() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.head], true
}

// Dequeue removes and returns the oldest element. The second return value is
// false when the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return item, true
}

// grow doubles the backing buffer, compacting the queue to the front so
// logical order is preserved.
func (q *Queue[T]) grow() {
	next := make([]T, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.head = 0
	q.buf = next
}
