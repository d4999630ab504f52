package fiberwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberList_PushPopOrder(t *testing.T) {
	var l fiberList
	a := &Fiber{}
	b := &Fiber{}
	c := &Fiber{}
	l.pushTail(a)
	l.pushTail(b)
	l.pushTail(c)
	assert.Equal(t, 3, l.len())

	assert.Equal(t, a, l.popHead())
	assert.Equal(t, b, l.popHead())
	assert.Equal(t, c, l.popHead())
	assert.Nil(t, l.popHead())
	assert.Equal(t, 0, l.len())
}

func TestFiberList_RemoveMiddle(t *testing.T) {
	var l fiberList
	a := &Fiber{}
	b := &Fiber{}
	c := &Fiber{}
	l.pushTail(a)
	l.pushTail(b)
	l.pushTail(c)

	l.remove(b)
	assert.Equal(t, 2, l.len())
	assert.Equal(t, a, l.popHead())
	assert.Equal(t, c, l.popHead())
}

func TestRequestQueue_FIFO(t *testing.T) {
	var q requestQueue
	assert.True(t, q.empty())

	q.push(spawnRequest{argument: 1})
	q.push(spawnRequest{argument: 2})
	assert.False(t, q.empty())

	r1, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, 1, r1.argument)

	r2, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, 2, r2.argument)

	_, ok = q.pop()
	assert.False(t, ok)
}

func TestScheduler_MaterializeAndReap(t *testing.T) {
	rt := &Runtime{}
	s := newScheduler(rt, 0, stackPolicy{Pages: 1})

	entered := make(chan struct{})
	req := spawnRequest{
		entrance: func(any) { close(entered) },
		argument: nil,
	}
	require.NoError(t, s.materialize(req))
	assert.Equal(t, 1, s.running.len())
	assert.Equal(t, 1, s.stacks.outstanding())

	f := s.running.head
	f.ctx.switchTo()
	<-entered
	assert.Equal(t, fiberDying, f.status.load())

	s.running.remove(f)
	s.queueDying(f)
	assert.Equal(t, 1, s.dying.len())

	freed := s.reap()
	assert.Equal(t, 1, freed)
	assert.Equal(t, 0, s.stacks.outstanding())
}

func TestScheduler_ReschedTargetRoundRobin(t *testing.T) {
	rt := &Runtime{}
	s := newScheduler(rt, 0, stackPolicy{Pages: 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.materialize(spawnRequest{
			entrance: func(any) {},
		}))
	}

	first := s.reschedTarget()
	second := s.reschedTarget()
	third := s.reschedTarget()
	fourth := s.reschedTarget()

	assert.NotNil(t, first)
	assert.NotSame(t, first, second)
	assert.NotSame(t, second, third)
	assert.Same(t, first, fourth) // wraps around after 3 fibers
}

func TestScheduler_CherryPickMaterializesPendingRequest(t *testing.T) {
	rt := &Runtime{}
	s := newScheduler(rt, 0, stackPolicy{Pages: 1})

	s.requests.push(spawnRequest{entrance: func(any) {}})
	assert.Equal(t, 0, s.running.len())

	require.NoError(t, s.cherryPick())
	assert.Equal(t, 1, s.running.len())
}
