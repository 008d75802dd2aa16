package trace

import (
	"context"

	"github.com/nuvu/outdial/internal/metrics"
)

// Queue is a bounded FIFO buffer absorbing bursts of trace-producing events.
// Enqueue never blocks: when the queue is full the item is rejected and the
// caller decides what to do with it. Dequeue blocks until an item arrives or
// the context is cancelled. Safe for multiple producers and consumers.
type Queue struct {
	ch chan Item
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Item, capacity)}
}

// TryPut enqueues item without blocking. Returns false when the queue is full.
func (q *Queue) TryPut(item Item) bool {
	select {
	case q.ch <- item:
		metrics.TraceQueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		return false
	}
}

// Get blocks until an item is available or ctx is cancelled.
// The second return is false only on cancellation.
func (q *Queue) Get(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.ch:
		metrics.TraceQueueDepth.Set(float64(len(q.ch)))
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Len returns the number of buffered items.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
