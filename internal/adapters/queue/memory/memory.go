// Package memory implements the in-process delivery queue shared by device readers and the pusher.
package memory

import (
	"context"
	"sync"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/ports"
)

// Queue is an unbounded FIFO of delivery entries.
//
// Enqueue never blocks, so a slow or unreachable TSDB makes the queue grow
// instead of stalling device readers. Len is exported so the growth can be
// watched (see the observability adapter).
type Queue struct {
	mu    sync.Mutex
	items []domain.Entry
	head  int
	ready chan struct{}
}

var _ ports.EntryQueue = (*Queue)(nil)

// New returns an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends e and wakes a waiting consumer.
func (q *Queue) Enqueue(e domain.Entry) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue removes the oldest entry, waiting until one exists or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (domain.Entry, error) {
	for {
		if e, ok := q.pop(); ok {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return domain.Entry{}, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *Queue) pop() (domain.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return domain.Entry{}, false
	}
	e := q.items[q.head]
	q.items[q.head] = domain.Entry{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 1024 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}

	if q.head < len(q.items) {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return e, true
}

// Len reports how many entries are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
