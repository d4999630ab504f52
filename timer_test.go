package fiberwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerQueue_OrdersByExpiry(t *testing.T) {
	q := newTimerQueue()
	t3 := &fiberTimer{expiryMs: 300}
	t1 := &fiberTimer{expiryMs: 100}
	t2 := &fiberTimer{expiryMs: 200}

	q.insert(t3)
	q.insert(t1)
	q.insert(t2)

	require.Equal(t, t1, q.peekEarliest())

	got := make([]int64, 0, 3)
	for q.Len() > 0 {
		earliest := q.peekEarliest()
		got = append(got, earliest.expiryMs)
		q.detach(earliest)
	}
	assert.Equal(t, []int64{100, 200, 300}, got)
}

func TestTimerQueue_DetachArbitraryNode(t *testing.T) {
	q := newTimerQueue()
	a := &fiberTimer{expiryMs: 10}
	b := &fiberTimer{expiryMs: 20}
	c := &fiberTimer{expiryMs: 30}
	q.insert(a)
	q.insert(b)
	q.insert(c)

	q.detach(b)
	assert.Equal(t, 2, q.Len())

	q.detach(b) // no-op, already detached
	assert.Equal(t, 2, q.Len())

	require.Equal(t, a, q.peekEarliest())
}

func TestTimerQueue_PeekEmpty(t *testing.T) {
	q := newTimerQueue()
	assert.Nil(t, q.peekEarliest())
}
