package sim

import "log"

// HookPosQueuePush marks when an element is pushed into a queue.
var HookPosQueuePush = &HookPos{Name: "Queue Push"}

// HookPosQueuePop marks when an element is popped from a queue.
var HookPosQueuePop = &HookPos{Name: "Queue Pop"}

// A Queue is a named first-in first-out queue. A capacity of 0 means the
// queue is unbounded.
type Queue[T any] struct {
	HookableBase

	name     string
	capacity int
	elements []T
}

// NewQueue creates a queue.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	if capacity < 0 {
		log.Panicf("queue %s: negative capacity", name)
	}

	return &Queue[T]{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the queue.
func (q *Queue[T]) Name() string {
	return q.name
}

// CanPush returns true if the queue has room for one more element.
func (q *Queue[T]) CanPush() bool {
	return q.capacity == 0 || len(q.elements) < q.capacity
}

// Push appends an element to the back of the queue.
func (q *Queue[T]) Push(e T) {
	if !q.CanPush() {
		log.Panicf("queue %s overflow", q.name)
	}

	q.elements = append(q.elements, e)

	if q.NumHooks() > 0 {
		q.InvokeHook(HookCtx{
			Domain: q,
			Pos:    HookPosQueuePush,
			Item:   e,
		})
	}
}

// Pop removes the element at the front of the queue. The second return value
// is false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T

	if len(q.elements) == 0 {
		return zero, false
	}

	e := q.elements[0]
	q.elements[0] = zero
	q.elements = q.elements[1:]

	if q.NumHooks() > 0 {
		q.InvokeHook(HookCtx{
			Domain: q,
			Pos:    HookPosQueuePop,
			Item:   e,
		})
	}

	return e, true
}

// Peek returns the element at the front of the queue without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if len(q.elements) == 0 {
		var zero T
		return zero, false
	}

	return q.elements[0], true
}

// Capacity returns the capacity of the queue, 0 for unbounded.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Size returns the number of elements in the queue.
func (q *Queue[T]) Size() int {
	return len(q.elements)
}

// Clear removes all the elements.
func (q *Queue[T]) Clear() {
	q.elements = nil
}
