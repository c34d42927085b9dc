package scheduler

import (
	"testing"

	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcess() *process.Process {
	return process.NewProcess(&value.Class{Name: "T"})
}

func TestDequePushPopLIFO(t *testing.T) {
	var d deque
	p1, p2 := newTestProcess(), newTestProcess()
	require.True(t, d.PushBottom(p1))
	require.True(t, d.PushBottom(p2))

	got, ok := d.PopBottom()
	require.True(t, ok)
	assert.Same(t, p2, got)

	got, ok = d.PopBottom()
	require.True(t, ok)
	assert.Same(t, p1, got)

	_, ok = d.PopBottom()
	assert.False(t, ok)
}

func TestDequeStealFIFOFromTop(t *testing.T) {
	var d deque
	p1, p2 := newTestProcess(), newTestProcess()
	d.PushBottom(p1)
	d.PushBottom(p2)

	got, ok := d.Steal()
	require.True(t, ok)
	assert.Same(t, p1, got)
}

func TestDequeStealOnEmptyFails(t *testing.T) {
	var d deque
	_, ok := d.Steal()
	assert.False(t, ok)
}

func TestDequeOverflowReturnsFalse(t *testing.T) {
	var d deque
	for i := 0; i < dequeCapacity; i++ {
		require.True(t, d.PushBottom(newTestProcess()))
	}
	assert.False(t, d.PushBottom(newTestProcess()))
}

func TestDequeLenTracksPushesAndPops(t *testing.T) {
	var d deque
	assert.Equal(t, 0, d.Len())
	d.PushBottom(newTestProcess())
	d.PushBottom(newTestProcess())
	assert.Equal(t, 2, d.Len())
	d.PopBottom()
	assert.Equal(t, 1, d.Len())
}
