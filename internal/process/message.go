package process

import "github.com/embervm/embervm/internal/value"

// Message is a queued actor invocation: the method to start a new task
// with, its arguments, and — for synchronous sends — a reply channel the
// sender blocks on.
type Message struct {
	Method *Method
	Args   []value.Value

	// Reply is non-nil for ProcessSend(wait=true); FinishTask sends the
	// receiving task's result here exactly once (the value stored by
	// ProcessWriteResult, or the thrown value).
	Reply chan Result
}

// Result is what a synchronous send's reply channel carries: the task's
// return value, or a thrown value if the task errored.
type Result struct {
	Value   value.Value
	Thrown  value.Value
	IsError bool

	// Trace is the stack trace captured at the point of an unhandled
	// Throw (see Task.Trace); populated only when IsError.
	Trace []TraceFrame
}
