package fiberwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackAllocator_AllocateFree(t *testing.T) {
	a := newStackAllocator(stackPolicy{Pages: 4})

	m1, err := a.allocate(stackPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 1, a.outstanding())

	m2, err := a.allocate(stackPolicy{Pages: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, a.outstanding())
	assert.NotEqual(t, m1.id, m2.id)

	a.free(m1)
	assert.Equal(t, 1, a.outstanding())

	a.free(m1) // idempotent
	assert.Equal(t, 1, a.outstanding())
}

func TestStackAllocator_AllocateRejectsNonPositivePolicy(t *testing.T) {
	a := newStackAllocator(stackPolicy{})
	a.policy = stackPolicy{} // force zero default too
	_, err := a.allocate(stackPolicy{Pages: 0})
	require.ErrorIs(t, err, ErrStackExhausted)
}

func TestStackAllocator_Ruin(t *testing.T) {
	a := newStackAllocator(stackPolicy{Pages: 1})
	m, err := a.allocate(stackPolicy{})
	require.NoError(t, err)

	done := make(chan struct{})
	ctx := newFiberContext()
	ctx.start(func(resumed bool) {
		assert.False(t, resumed)
		close(done)
	})
	m.fiber.ctx = ctx

	a.ruin()
	<-done
	assert.Equal(t, 0, a.outstanding())
}
