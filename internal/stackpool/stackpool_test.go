package stackpool

import (
	"testing"

	"github.com/embervm/embervm/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAllocatesWhenEmpty(t *testing.T) {
	var p Pool
	s := p.Acquire()
	require.NotNil(t, s)
	assert.Equal(t, 0, len(s.Frames()))
	assert.Equal(t, 0, p.Len())
}

func TestReleaseMakesStackAvailableAgain(t *testing.T) {
	var p Pool
	s := p.Acquire()
	p.Release(s)
	assert.Equal(t, 1, p.Len())

	s2 := p.Acquire()
	assert.Same(t, s, s2)
	assert.Equal(t, 0, p.Len())
}

func TestReleaseClearsFramePointers(t *testing.T) {
	var p Pool
	s := p.Acquire()
	s.SetFrames(append(s.Frames(), process.NewFrame(&process.Method{NumRegisters: 1})))
	require.Equal(t, 1, len(s.Frames()))

	p.Release(s)
	assert.Equal(t, 0, len(s.Frames()))
}

func TestShrinkIdleHalvesFreeList(t *testing.T) {
	var p Pool
	for i := 0; i < 8; i++ {
		p.Release(p.Acquire())
	}
	require.Equal(t, 8, p.Len())

	p.ShrinkIdle()
	assert.Equal(t, 4, p.Len())

	p.ShrinkIdle()
	assert.Equal(t, 2, p.Len())
}

func TestShrinkIdleOnEmptyPoolIsNoop(t *testing.T) {
	var p Pool
	p.ShrinkIdle()
	assert.Equal(t, 0, p.Len())
}
