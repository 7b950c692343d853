package t1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewArmsBootHandshake(t *testing.T) {
	s := New(Classic)
	assert.True(t, s.needReset, "needReset must be armed at construction")
	assert.False(t, s.needCIP)
	assert.False(t, s.needResync)
	assert.False(t, s.needIFSDSync, "needIFSDSync must be explicitly zeroed, not left implicit")
	assert.True(t, s.bootPending())
}

func TestNewArmsCIPNotSWROnExtendedColdBoot(t *testing.T) {
	s := New(Extended)
	assert.True(t, s.needCIP, "extended cold boot arms CIP directly")
	assert.False(t, s.needReset, "SWR is reserved for the explicit reset-recovery path")
	assert.False(t, s.needResync)
	assert.False(t, s.needIFSDSync)
	assert.True(t, s.bootPending())
}

func TestBindComputesNADPair(t *testing.T) {
	s := New(Classic)
	err := s.Bind(2, 1)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x12), s.nad)
	assert.Equal(t, byte(0x21), s.nadc)
	assert.True(t, s.bound)
}

func TestBindIsIdempotentForSameAddresses(t *testing.T) {
	s := New(Classic)
	assert.NoError(t, s.Bind(2, 1))
	assert.NoError(t, s.Bind(2, 1))
}

func TestBindRejectsRebindWithDifferentAddresses(t *testing.T) {
	s := New(Classic)
	assert.NoError(t, s.Bind(2, 1))
	err := s.Bind(3, 1)
	assert.ErrorIs(t, err, ErrAlreadyBound)
}

func TestBindRejectsOutOfRangeAddresses(t *testing.T) {
	s := New(Classic)
	err := s.Bind(8, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReleaseHalts(t *testing.T) {
	s := New(Classic)
	s.Release()
	assert.True(t, s.halt)
}

func TestResetTransientStatePreservesSequenceNumbers(t *testing.T) {
	s := New(Classic)
	s.ns, s.nr = 1, 1
	s.retries = 0
	s.resetTransientState()
	assert.Equal(t, 1, s.ns, "resetTransientState must not touch ns/nr")
	assert.Equal(t, 1, s.nr)
	assert.Equal(t, 3, s.retries, "retries must be restored to its default budget")
}
