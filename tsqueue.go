package msgnet

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueEmpty indicates an inspect or pop on an empty queue.
var ErrQueueEmpty = errors.New("queue is empty")

// TSQueue is an unbounded double-ended queue safe for concurrent use. Every
// operation holds a single mutex for its duration. Callers that need
// backpressure must bound it themselves.
//
// A TSQueue must not be copied after first use.
type TSQueue[T any] struct {
	mu    sync.Mutex
	items RingBuffer[T]
	ready chan struct{} // closed and replaced on every push; see Wait.
}

// NewTSQueue returns an empty queue.
func NewTSQueue[T any]() *TSQueue[T] {
	return &TSQueue[T]{}
}

// Front returns the front item without removing it.
func (q *TSQueue[T]) Front() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items.Front()
	if !ok {
		return item, ErrQueueEmpty
	}
	return item, nil
}

// Back returns the back item without removing it.
func (q *TSQueue[T]) Back() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items.Back()
	if !ok {
		return item, ErrQueueEmpty
	}
	return item, nil
}

// PushBack appends item and wakes any Wait callers.
func (q *TSQueue[T]) PushBack(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.PushBack(item)
	q.signal()
}

// PushFront prepends item and wakes any Wait callers.
func (q *TSQueue[T]) PushFront(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.PushFront(item)
	q.signal()
}

// PopFront removes and returns the front item.
func (q *TSQueue[T]) PopFront() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items.PopFront()
	if !ok {
		return item, ErrQueueEmpty
	}
	return item, nil
}

// PopBack removes and returns the back item.
func (q *TSQueue[T]) PopBack() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items.PopBack()
	if !ok {
		return item, ErrQueueEmpty
	}
	return item, nil
}

// Empty reports whether the queue holds no items.
func (q *TSQueue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len() == 0
}

// Count returns the number of queued items.
func (q *TSQueue[T]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.items.Len())
}

// Clear drops every item.
func (q *TSQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.Clear()
}

// Wait blocks until the queue is non-empty or ctx is done. A nil return does
// not reserve an item: a concurrent consumer may still pop it first.
func (q *TSQueue[T]) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			q.mu.Unlock()
			return nil
		}
		if q.ready == nil {
			q.ready = make(chan struct{})
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}
}

// signal must be called with mu held.
func (q *TSQueue[T]) signal() {
	if q.ready != nil {
		close(q.ready)
		q.ready = nil
	}
}
