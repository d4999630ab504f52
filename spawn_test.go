package fiberwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuntimeSpawn_BootstrapUsesReservedSlot covers the S1 flow (remote-path
// spawn, dispatch, run to completion) with a single carrier, for the
// external/bootstrap entry point: Runtime.Spawn always posts through the reserved producer
// slot, even with a single carrier, since the caller is never itself a
// fiber running on a carrier.
func TestRuntimeSpawn_BootstrapUsesReservedSlot(t *testing.T) {
	rt, err := New(1)
	require.NoError(t, err)

	entered := make(chan struct{})
	result, err := rt.Spawn(func(any) { close(entered) }, nil)
	require.NoError(t, err)
	assert.Equal(t, SpawnRemote, result)

	s := rt.carriers[0].sched
	bootstrapBox := s.inboxes[len(s.inboxes)-1]
	require.NotNil(t, bootstrapBox)

	consumed := bootstrapBox.consume(func(m *internalMessage) {
		s.requests.push(m.request)
		m.release()
	})
	assert.True(t, consumed)

	require.NoError(t, s.cherryPick())
	assert.Equal(t, 1, s.running.len())

	f := s.running.head
	f.ctx.switchTo()
	<-entered
	assert.Equal(t, fiberDying, f.status.load())
}

// TestFiberSpawn_LocalTargetMaterializesImmediately covers §4.5's local
// path, which bypasses the request queue: when the balance
// counter happens to select the spawning fiber's own carrier, the new
// fiber is materialized directly onto the RUNNING queue rather than
// round-tripping through a cross-carrier message or the local request
// queue.
func TestFiberSpawn_LocalTargetMaterializesImmediately(t *testing.T) {
	rt, err := New(1)
	require.NoError(t, err)

	s := rt.carriers[0].sched
	require.NoError(t, s.materialize(spawnRequest{entrance: func(any) {}}))
	parent := s.running.head

	before := s.running.len()
	result, err := parent.Spawn(func(any) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, SpawnLocal, result)
	assert.Equal(t, before+1, s.running.len())
	assert.True(t, s.requests.empty())
}

// TestFiberTrampoline_ReincarnatesSameStack covers S2: a pending spawn
// request left on the scheduler's request queue while a fiber is still
// running is picked up by that fiber's own trampoline once its entry
// returns (§4.2's reincarnation loop), reusing the same stack metamark and
// never touching the DYING queue at all.
func TestFiberTrampoline_ReincarnatesSameStack(t *testing.T) {
	rt := &Runtime{}
	s := newScheduler(rt, 0, stackPolicy{Pages: 1})

	secondEntered := make(chan struct{})
	s.requests.push(spawnRequest{entrance: func(any) { close(secondEntered) }})

	require.NoError(t, s.materialize(spawnRequest{entrance: func(any) {}}))
	f := s.running.head
	originalID := f.stack.id

	f.ctx.switchTo()
	<-secondEntered

	assert.Equal(t, fiberDying, f.status.load())
	assert.Equal(t, originalID, f.stack.id)
	assert.Equal(t, 0, s.dying.len())
	assert.Equal(t, 1, s.running.len())
	assert.Equal(t, int64(1), s.metrics.stacksReincarnated.LoadAcquire())
}
