package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHalfAdderAddresses(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(4))

	// level 1: sum and carry
	addr, err := a.Allocate(4, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), addr)
	addr, err = a.Allocate(5, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), addr)
	require.NoError(t, a.EndLevel())

	// level 2: final xor reads both, output pinned
	addr, err = a.Consume(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), addr)
	addr, err = a.Consume(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), addr)
	addr, err = a.Allocate(6, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), addr, "freed slots recycle at the next level, not this one")
	require.NoError(t, a.EndLevel())

	assert.Equal(t, uint64(7), a.PeakUsage())
}

func TestRecycleAfterLevelBarrier(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(2))

	_, err := a.Allocate(10, 1)
	require.NoError(t, err)
	require.NoError(t, a.EndLevel())

	_, err = a.Consume(10) // last read, queued
	require.NoError(t, err)

	// same level: slot 2 must not be reused yet
	addr, err := a.Allocate(11, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), addr)
	require.NoError(t, a.EndLevel())

	// next level: now it recycles
	addr, err = a.Allocate(12, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), addr)
	assert.Equal(t, uint64(4), a.PeakUsage())
}

func TestPermanentIdentity(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(6))
	for w := uint64(0); w < 6; w++ {
		addr, err := a.Consume(w)
		require.NoError(t, err)
		assert.Equal(t, w, addr)
	}
	assert.Equal(t, uint64(6), a.PeakUsage())
}

func TestPinnedNeverRecycled(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(2))

	_, err := a.Allocate(10, 0) // pinned
	require.NoError(t, err)
	require.NoError(t, a.EndLevel())

	for i := 0; i < 3; i++ {
		addr, err := a.Consume(10)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), addr)
	}
	require.NoError(t, a.EndLevel())

	addr, err := a.Allocate(11, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), addr, "pinned slot stays taken")
}

func TestCreditUnderflowIsUnknownWire(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(2))
	_, err := a.Allocate(10, 1)
	require.NoError(t, err)
	_, err = a.Consume(10)
	require.NoError(t, err)

	_, err = a.Consume(10)
	assert.ErrorIs(t, err, ErrUnknownWire)
	_, err = a.Lookup(10)
	assert.ErrorIs(t, err, ErrUnknownWire)
	_, err = a.Consume(99)
	assert.ErrorIs(t, err, ErrUnknownWire)
}

func TestDoubleAllocate(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(2))
	_, err := a.Allocate(10, 2)
	require.NoError(t, err)
	_, err = a.Allocate(10, 1)
	assert.ErrorIs(t, err, ErrDoubleFree)
}

func TestAddressOverflow(t *testing.T) {
	a := New(4)
	require.NoError(t, a.AllocatePermanent(2))
	_, err := a.Allocate(10, 1)
	require.NoError(t, err)
	_, err = a.Allocate(11, 1)
	require.NoError(t, err)
	_, err = a.Allocate(12, 1)
	assert.ErrorIs(t, err, ErrAddressOverflow)

	a2 := New(4)
	err = a2.AllocatePermanent(5)
	assert.ErrorIs(t, err, ErrAddressOverflow)
}

func TestPeakTracksHighWater(t *testing.T) {
	a := New(0)
	require.NoError(t, a.AllocatePermanent(2))

	// widen to three concurrent wires, then shrink
	for w := uint64(10); w < 13; w++ {
		_, err := a.Allocate(w, 1)
		require.NoError(t, err)
	}
	require.NoError(t, a.EndLevel())
	for w := uint64(10); w < 13; w++ {
		_, err := a.Consume(w)
		require.NoError(t, err)
	}
	require.NoError(t, a.EndLevel())
	assert.Equal(t, 0, a.LiveCount())

	// a narrow tail reuses freed slots without growing the peak
	_, err := a.Allocate(13, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), a.PeakUsage())
}
