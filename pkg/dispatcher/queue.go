package dispatcher

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO safe for many producers and consumers.
type queue[T any] struct {
	lock   sync.Mutex
	items  []T
	notify chan struct{}
	closed bool
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

// push appends item unless the queue is closed.
func (q *queue[T]) push(item T) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	q.signal()
	return true
}

// pop blocks until an item is available. It returns false when ctx is done
// or the queue is closed and drained.
func (q *queue[T]) pop(ctx context.Context) (item T, ok bool) {
	for {
		q.lock.Lock()
		if len(q.items) > 0 {
			item = q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 && !q.closed {
				q.signal()
			}
			q.lock.Unlock()
			return item, true
		}
		if q.closed {
			q.lock.Unlock()
			return item, false
		}
		q.lock.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return item, false
		}
	}
}

func (q *queue[T]) close() {
	q.lock.Lock()
	defer q.lock.Unlock()

	if !q.closed {
		q.closed = true
		close(q.notify)
	}
}

func (q *queue[T]) len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.items)
}

// signal must be called with q.lock held.
func (q *queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
