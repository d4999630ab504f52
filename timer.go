package fiberwork

import (
	"container/heap"

	"code.hybscloud.com/atomix"
)

// fiberTimer is one entry in a scheduler's timer queue (§3 "Timer core").
// expiryMs is an absolute millisecond timestamp; fiber is a non-owning
// back-reference to the waiting fiber. triggered is set exactly once, by
// bus-refresh phase 2, when the timer expires.
type fiberTimer struct {
	expiryMs  int64
	fiber     *Fiber
	triggered atomix.Bool
	index     int // heap.Interface bookkeeping; -1 when detached
}

// timerQueue is an ordered map keyed by absolute expiry timestamp,
// supporting O(log n) insert/detach and O(1) earliest-peek, per §4.1.
// Grounded on the teacher's loop.go timerHeap (a container/heap min-heap
// of {when, task}), extended with the documented container/heap
// priority-queue idiom (an index field updated on Swap) to support
// arbitrary-node detach by pointer — a capability the teacher's own heap
// never needed, since it only ever pops the root and never cancels an
// individual timer by reference.
type timerQueue struct {
	items []*fiberTimer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{}
}

func (q *timerQueue) Len() int { return len(q.items) }

func (q *timerQueue) Less(i, j int) bool {
	return q.items[i].expiryMs < q.items[j].expiryMs
}

func (q *timerQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*fiberTimer)
	t.index = len(q.items)
	q.items = append(q.items, t)
}

func (q *timerQueue) Pop() any {
	old := q.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	q.items = old[:n-1]
	return t
}

// insert attaches a timer to the queue.
func (q *timerQueue) insert(t *fiberTimer) {
	heap.Push(q, t)
}

// detach removes a timer from the queue. A no-op if the timer is not
// currently attached (index < 0), matching §4.1's "detach requires no
// external key" contract — callers pass the timer itself.
func (q *timerQueue) detach(t *fiberTimer) {
	if t.index < 0 || t.index >= len(q.items) || q.items[t.index] != t {
		return
	}
	heap.Remove(q, t.index)
}

// peekEarliest returns the earliest-expiring timer, or nil if the queue is
// empty. O(1).
func (q *timerQueue) peekEarliest() *fiberTimer {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}
