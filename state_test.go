package fiberwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiberState_DefaultsToBorn(t *testing.T) {
	s := newFiberState()
	assert.Equal(t, fiberBorn, s.load())
}

func TestFiberState_StoreLoadRoundTrip(t *testing.T) {
	s := newFiberState()
	s.store(fiberRunning)
	assert.Equal(t, fiberRunning, s.load())
	s.store(fiberLimbo)
	assert.Equal(t, fiberLimbo, s.load())
	s.store(fiberDying)
	assert.Equal(t, fiberDying, s.load())
}

func TestFiberStatus_String(t *testing.T) {
	assert.Equal(t, "BORN", fiberBorn.String())
	assert.Equal(t, "RUNNING", fiberRunning.String())
	assert.Equal(t, "LIMBO", fiberLimbo.String())
	assert.Equal(t, "DYING", fiberDying.String())
	assert.Equal(t, "UNKNOWN", fiberStatus(99).String())
}

func TestSchedulerState_Lifecycle(t *testing.T) {
	s := newSchedulerState()
	assert.Equal(t, schedulerBorn, s.load())
	s.store(schedulerAlive)
	assert.Equal(t, schedulerAlive, s.load())
	s.store(schedulerDying)
	assert.Equal(t, schedulerDying, s.load())
}
