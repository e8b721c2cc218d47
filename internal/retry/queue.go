package retry

import (
	"context"
	"sync"

	"github.com/handiism/neko-downloader/internal/model"
)

// Handler retries a single item.
type Handler func(ctx context.Context, item model.RetryItem) error

// DrainResult counts what happened to the items of one Drain.
type DrainResult struct {
	Succeeded int
	Failed    int

	// Dropped is the number of items discarded unprocessed because the
	// context was cancelled.
	Dropped int
}

// Total is the number of items popped from the queue.
func (r DrainResult) Total() int {
	return r.Succeeded + r.Failed + r.Dropped
}

// Queue is an unbounded FIFO of retry items, safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []model.RetryItem
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{items: make([]model.RetryItem, 0)}
}

// Enqueue appends item.
func (q *Queue) Enqueue(item model.RetryItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (model.RetryItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.RetryItem{}, false
	}
	item := q.items[0]
	q.items[0] = model.RetryItem{}
	q.items = q.items[1:]
	return item, true
}

// Discard empties the queue without processing and returns how many items
// were dropped.
func (q *Queue) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = q.items[:0:0]
	return n
}

// Drain pops items in FIFO order and hands each to fn until the queue is
// empty. Every item is removed whatever fn returns. If ctx is cancelled the
// remaining items are dropped and ctx.Err() is returned.
//
// The queue is always empty when Drain returns.
func (q *Queue) Drain(ctx context.Context, fn Handler) (DrainResult, error) {
	var res DrainResult
	for {
		if err := ctx.Err(); err != nil {
			res.Dropped += q.Discard()
			return res, err
		}

		item, ok := q.pop()
		if !ok {
			return res, nil
		}

		if err := fn(ctx, item); err != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
}
