package traversal

import "github.com/shishobooks/dropzone/pkg/entries"

// Queue is the FIFO work queue of a single traversal. It's only ever touched by
// the goroutine running the traversal, so it has no locking.
type Queue struct {
	items []entries.Entry
	head  int
}

// NewQueue returns a queue seeded with the given entries, in order.
func NewQueue(seed ...entries.Entry) *Queue {
	q := &Queue{}
	for _, e := range seed {
		q.Push(e)
	}
	return q
}

// Push appends an entry to the tail.
func (q *Queue) Push(e entries.Entry) {
	q.items = append(q.items, e)
}

// Pop removes and returns the head entry. ok is false when the queue is empty.
func (q *Queue) Pop() (e entries.Entry, ok bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	e = q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append([]entries.Entry(nil), q.items[q.head:]...)
		q.head = 0
	}
	return e, true
}

// Len is the number of entries still queued.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}
