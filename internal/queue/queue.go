// Package queue provides the blocking, unbounded FIFO used between pipeline
// stages.
//
// Every stage owns exactly one input queue. Producers never block on Push;
// a consumer blocks in Pop until something arrives. Because all producers of
// a stage share the same queue, the order in which pushes acquire the lock is
// the order the stage observes, regardless of what kind of value was pushed.
package queue

import "sync"

// Queue is an unbounded multi-producer, multi-consumer FIFO.
// The zero value is not usable; construct with New.
type Queue[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []T
	head  int
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends v to the tail. It never blocks and never fails.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.ready.Signal()
}

// Pop removes and returns the head, blocking until one is available.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == len(q.items) {
		q.ready.Wait()
	}
	v := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		// drained: reuse the backing array from the start
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 1024 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}
