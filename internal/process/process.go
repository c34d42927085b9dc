package process

import (
	"sync"
	"sync/atomic"

	"github.com/embervm/embervm/internal/value"
)

// Action is what the scheduler's worker loop consults after a context
// switch returns control to it (spec.md §4.D): whether the process may be
// left alone or must be torn down now, from the worker's own stack.
type Action uint8

const (
	ActionIgnore Action = iota
	ActionTerminate
)

// noAffinity marks a process with no worker preference.
const noAffinity int32 = -1

// Process is an actor: a mailbox, a class reference, a current task, a
// queue of tasks still waiting to run, and the run-lock that ensures only
// one worker thread ever advances it at a time (spec.md §3, §4.B).
type Process struct {
	Class *value.Class

	Mailbox Mailbox

	// RunLock serialises task resumption: whoever holds it is the sole
	// thread permitted to read or mutate Current/Pending/Stack state.
	// Senders only ever touch the Mailbox, which has its own mutex, so a
	// send never needs the run-lock (spec.md §4.B).
	RunLock sync.Mutex

	Current *Task
	Pending []*Task

	terminated bool

	// preferredWorker is a scheduling hint: a worker id this process last
	// ran on, recorded by the scheduler's worker after each run. No
	// scheduler steal or placement code reads it back, so it does not
	// affect which worker runs the process. This is a supplemented feature beyond
	// spec.md's bare "thread-affinity field" wording, modelled on the
	// original implementation's per-process CPU-affinity hint.
	preferredWorker atomic.Int32

	// refCount is this process's own reference count, for the case where
	// a process value is itself held by other owners (e.g. a spawned
	// child reference). Managed the same way as internal/value's Object
	// counts, but kept separately since a Process is not itself a
	// value.Object — it is the payload a process-class Object wraps.
	refCount int64
}

// NewProcess allocates an idle process for the given class. Corresponds
// to the ProcessAllocate instruction (spec.md §4.A/§4.I).
func NewProcess(class *value.Class) *Process {
	p := &Process{Class: class}
	p.preferredWorker.Store(noAffinity)
	return p
}

// PreferredWorker returns the worker id this process last ran on, or -1
// if it has no preference yet.
func (p *Process) PreferredWorker() int32 { return p.preferredWorker.Load() }

// SetPreferredWorker records the worker id that just finished running
// this process, as a future scheduling hint.
func (p *Process) SetPreferredWorker(id int32) { p.preferredWorker.Store(id) }

// SendMessage implements send_message(method, args, wait_for_result): it
// enqueues a message on the mailbox from any goroutine. If wait is true,
// the call blocks until FinishTask delivers the receiving task's Result
// (spec.md §4.B, §4.I "ProcessSend(wait=true) park until reply
// arrives").
func (p *Process) SendMessage(method *Method, args []value.Value, wait bool) (Result, bool) {
	msg := Message{Method: method, Args: args}
	if !wait {
		p.Mailbox.Push(msg)
		return Result{}, false
	}
	msg.Reply = make(chan Result, 1)
	p.Mailbox.Push(msg)
	r := <-msg.Reply
	return r, true
}

// SendMessageWait is SendMessage(wait=true) split in two: it enqueues
// the message and returns the reply channel without blocking, so a
// caller that also needs to make p runnable (the scheduler's Submit) can
// do so before parking on the reply, rather than racing a wait against
// a process nothing has yet scheduled.
func (p *Process) SendMessageWait(method *Method, args []value.Value) <-chan Result {
	reply := make(chan Result, 1)
	p.Mailbox.Push(Message{Method: method, Args: args, Reply: reply})
	return reply
}

// ReceiveNextTask implements receive_next_task(): it returns the task the
// caller (the run-lock holder) should resume or start next. A current
// task that still has frames (preempted or suspended mid-run) is resumed
// first. After it, Pending tasks take priority over new messages,
// since spec.md's FinishTask "(b) starts the next queued task immediately"
// wiring always drains Pending first.
func (p *Process) ReceiveNextTask() (*Task, bool) {
	if t := p.Current; t != nil && t.CurrentFrame() != nil {
		return t, true
	}
	if len(p.Pending) > 0 {
		t := p.Pending[0]
		p.Pending = p.Pending[1:]
		p.Current = t
		return t, true
	}
	msg, ok := p.Mailbox.Pop()
	if !ok {
		return nil, false
	}
	t := &Task{
		State:       TaskStart,
		StartMethod: msg.Method,
		StartArgs:   msg.Args,
		reply:       msg.Reply,
	}
	p.Current = t
	return t, true
}

// Enqueue adds an already-constructed task to the pending queue, used
// when a task is created out of band (e.g. the main task at process
// creation) rather than from a mailbox message.
func (p *Process) Enqueue(t *Task) {
	p.Pending = append(p.Pending, t)
}

// FinishTask implements finish_task(). It sends the current task's Result
// to a waiting sender's reply channel, if any, and clears the current
// task. It returns an Action, not an idle flag; whether the process is
// now idle is reported separately by Idle. If the task was marked
// Terminating, the process transitions to terminated, FinishTask returns
// ActionTerminate, and the caller (the run-lock holder) must run the drop
// sequence and deallocate it, per spec.md §3's Process lifecycle and
// §4.D's post-yield Action contract; otherwise it returns ActionIgnore.
func (p *Process) FinishTask() (action Action) {
	t := p.Current
	if t.reply != nil {
		r := Result{Value: t.Return}
		if t.HasThrown {
			r.Thrown = t.Thrown
			r.IsError = true
			r.Trace = t.Trace
		}
		t.reply <- r
	}
	p.Current = nil

	if t.Terminating {
		p.terminated = true
		return ActionTerminate
	}
	return ActionIgnore
}

// Terminated reports whether this process has finished its terminating
// task and is awaiting deallocation.
func (p *Process) Terminated() bool { return p.terminated }

// Idle reports whether the process has no current task and nothing
// pending — i.e. it is eligible to be dropped from the scheduler's active
// set until its next message arrives.
func (p *Process) Idle() bool {
	return p.Current == nil && len(p.Pending) == 0
}

func (p *Process) Increment() { atomic.AddInt64(&p.refCount, 1) }
func (p *Process) Decrement() bool {
	return atomic.AddInt64(&p.refCount, -1) <= 0
}
