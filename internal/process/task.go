package process

import "github.com/embervm/embervm/internal/value"

// TaskState is the state a Task is in when it (re)enters the scheduler,
// per spec.md §3's Task data-model entry.
type TaskState uint8

const (
	// TaskResume continues a previously-suspended task from its current
	// frame stack.
	TaskResume TaskState = iota
	// TaskStart begins a new task by invoking Method with Args, pushing
	// a fresh bottom frame.
	TaskStart
	// TaskWait parks the task until an external event (a future
	// resolving, a reply arriving, a timeout firing) reschedules it.
	TaskWait
)

func (s TaskState) String() string {
	switch s {
	case TaskResume:
		return "resume"
	case TaskStart:
		return "start"
	case TaskWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Task is a single unit of execution within a process: a stack of
// activation frames, an optional return/thrown value once it completes,
// and the state it should (re)enter the interpreter in.
type Task struct {
	State TaskState

	// StartMethod/StartArgs are consulted only when State == TaskStart.
	StartMethod *Method
	StartArgs   []value.Value

	Stack []*Frame

	Return    value.Value
	Thrown    value.Value
	HasThrown bool

	// Terminating marks a task whose Finish(terminate=true) should tear
	// down the owning process once it completes (spec.md §3 lifecycle:
	// "terminates when its main task finishes with a Finish(terminate=true)
	// marker").
	Terminating bool

	// reply is copied from the originating Message when the sender used
	// ProcessSend(wait=true); FinishTask delivers the task's outcome
	// here.
	reply chan Result

	// Trace is the stack trace captured at the point an unhandled Throw
	// unwound this task, innermost frame first (spec.md §7's "attach a
	// stack trace" requirement on tier-1 panics). Nil for a task that
	// completed normally.
	Trace []TraceFrame

	// WaitFuture is set when the task yields YieldFutureWait: the future
	// it blocked on, so whatever resubmits processes to the scheduler
	// (internal/vm) can register a resolve callback against it. Cleared
	// by the interpreter once the corresponding FutureGet/FutureGetFor
	// instruction observes the future as done and completes normally.
	WaitFuture *Future
}

// TraceFrame is one entry in a captured stack trace: the method that was
// executing and the source line its instruction pointer was at.
type TraceFrame struct {
	MethodName string
	SourceFile string
	Line       int32
}

// CurrentFrame returns the top-of-stack activation frame, or nil if the
// task has no frames (not yet started).
func (t *Task) CurrentFrame() *Frame {
	if len(t.Stack) == 0 {
		return nil
	}
	return t.Stack[len(t.Stack)-1]
}

// PushFrame pushes a new activation frame, as a call instruction does.
func (t *Task) PushFrame(f *Frame) {
	t.Stack = append(t.Stack, f)
}

// PopFrame pops the top activation frame, as a Return instruction does.
// Reports the popped frame and whether the stack is now empty (the task
// itself has returned).
func (t *Task) PopFrame() (f *Frame, empty bool) {
	n := len(t.Stack)
	f = t.Stack[n-1]
	t.Stack = t.Stack[:n-1]
	return f, len(t.Stack) == 0
}
