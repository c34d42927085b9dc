package process

import (
	"testing"

	"github.com/embervm/embervm/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClass() *value.Class {
	c := &value.Class{Name: "Counter", IsProcessClass: true}
	c.AddMethod(&value.Method{Name: "increment", Fingerprint: value.Fingerprint("increment")})
	return c
}

func TestSendMessageNoWaitThenReceive(t *testing.T) {
	p := NewProcess(testClass())
	m, _ := p.Class.Virtual(0)
	p.SendMessage(&Method{Name: m.Name}, []value.Value{value.Int(1)}, false)

	task, ok := p.ReceiveNextTask()
	require.True(t, ok)
	assert.Equal(t, TaskStart, task.State)
	assert.Equal(t, "increment", task.StartMethod.Name)
	assert.Equal(t, int64(1), task.StartArgs[0].Int())
}

func TestSendMessageWaitBlocksUntilFinishTask(t *testing.T) {
	p := NewProcess(testClass())

	done := make(chan Result, 1)
	go func() {
		r, ok := p.SendMessage(&Method{Name: "increment"}, nil, true)
		require.True(t, ok)
		done <- r
	}()

	task, ok := p.ReceiveNextTask()
	require.True(t, ok)
	task.Return = value.Int(42)
	p.FinishTask()

	r := <-done
	assert.Equal(t, int64(42), r.Value.Int())
	assert.False(t, r.IsError)
}

func TestFinishTaskTerminatingMarksProcessTerminated(t *testing.T) {
	p := NewProcess(testClass())
	p.SendMessage(&Method{Name: "increment"}, nil, false)
	task, ok := p.ReceiveNextTask()
	require.True(t, ok)
	task.Terminating = true

	action := p.FinishTask()
	assert.Equal(t, ActionTerminate, action)
	assert.True(t, p.Terminated())
}

func TestFinishTaskNonTerminatingReturnsIgnore(t *testing.T) {
	p := NewProcess(testClass())
	p.SendMessage(&Method{Name: "increment"}, nil, false)
	_, ok := p.ReceiveNextTask()
	require.True(t, ok)

	action := p.FinishTask()
	assert.Equal(t, ActionIgnore, action)
	assert.False(t, p.Terminated())
}

func TestReceiveNextTaskPrefersPendingOverMailbox(t *testing.T) {
	p := NewProcess(testClass())
	pending := &Task{State: TaskResume}
	p.Enqueue(pending)
	p.SendMessage(&Method{Name: "increment"}, nil, false)

	task, ok := p.ReceiveNextTask()
	require.True(t, ok)
	assert.Same(t, pending, task)
}

func TestIdleReportsNoCurrentNoPending(t *testing.T) {
	p := NewProcess(testClass())
	assert.True(t, p.Idle())

	p.SendMessage(&Method{Name: "increment"}, nil, false)
	_, _ = p.ReceiveNextTask()
	assert.False(t, p.Idle())
}

func TestPreferredWorkerDefaultsToNoAffinity(t *testing.T) {
	p := NewProcess(testClass())
	assert.Equal(t, int32(-1), p.PreferredWorker())
	p.SetPreferredWorker(3)
	assert.Equal(t, int32(3), p.PreferredWorker())
}
