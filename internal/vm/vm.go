package vm

import (
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// RunMain spawns className as a process and starts methodName as its
// first task with args, blocking until that task finishes — the
// standalone-program entry point cmd/embervm's `run` subcommand drives.
//
// The original implementation's `virtual_machine_methods.rs` special-
// cases the main process: its exit status becomes the VM's OS exit code
// (a SUPPLEMENTED FEATURE, since spec.md's distillation doesn't call this
// out explicitly). methodName's compiled body is expected to end the way
// any message-handling method does — ProcessWriteResult with the exit
// code, then ProcessFinishTask(true) — so this reuses the ordinary
// actor-completion path (process.Process.SendMessage(wait=true)) rather
// than inventing a second one.
func (s *State) RunMain(prog *Program, className, methodName string, args []value.Value) (exitCode int, err error) {
	method, ferr := prog.FindMethod(className, methodName)
	if ferr != nil {
		return 1, ferr
	}
	class, ferr := prog.FindClass(className)
	if ferr != nil {
		return 1, ferr
	}
	return s.runEntry(class, className, methodName, method, args)
}

// RunEntryPoint is RunMain without a caller-supplied class/method name:
// it resolves prog's own module-index entry point (see
// Program.EntryPoint), the form cmd/embervm's `run` subcommand uses for
// an already-compiled image rather than naming a class by convention.
func (s *State) RunEntryPoint(prog *Program, args []value.Value) (exitCode int, err error) {
	class, method, ferr := prog.EntryPoint()
	if ferr != nil {
		return 1, ferr
	}
	return s.runEntry(class, class.Name, method.Name, method, args)
}

func (s *State) runEntry(class *value.Class, className, methodName string, method *process.Method, args []value.Value) (exitCode int, err error) {
	proc := process.NewProcess(class)

	// SendMessage(wait=true) pushes the message and then blocks this
	// goroutine on its reply channel — it must run concurrently with
	// Submit, which is what actually gets a worker to pop the message
	// and advance the task (matching the internal/process package's own
	// test idiom for a waited send: internal/process/process_test.go's
	// TestSendMessageWaitBlocksUntilFinishTask).
	done := make(chan process.Result, 1)
	go func() {
		r, _ := proc.SendMessage(method, args, true)
		done <- r
	}()
	s.Submit(proc)

	r := <-done
	if r.IsError {
		s.logf("main process %s.%s exited with an unhandled error", className, methodName)
		return 1, &RuntimeError{Panic: thrownPanic(r.Thrown), Trace: convertTrace(r.Trace)}
	}
	code := exitStatus(r.Value)
	s.logf("main process %s.%s finished with exit status %d", className, methodName, code)
	return code, nil
}

// exitStatus extracts an OS exit code from the main task's written
// result: an Int value passes through directly (spec.md's ProcessWriteResult
// register is whatever register convention the compiled program chose,
// most naturally a plain integer for a main entry point); anything else
// is treated as success (status 0), since only Int carries a meaningful
// process exit code and this is a convention, not a type the interpreter
// itself enforces.
func exitStatus(v value.Value) int {
	if v.Tag() == value.TagInt {
		return int(v.Int())
	}
	return 0
}

// convertTrace adapts process.TraceFrame to this package's TraceFrame, so
// callers of RunMain don't need to import internal/process just to read
// a RuntimeError's Trace field.
func convertTrace(frames []process.TraceFrame) []TraceFrame {
	if frames == nil {
		return nil
	}
	out := make([]TraceFrame, len(frames))
	for i, f := range frames {
		out[i] = TraceFrame{MethodName: f.MethodName, SourceFile: f.SourceFile, Line: f.Line}
	}
	return out
}

// thrownPanic normalises an unhandled Thrown value into a *value.Panic:
// programs can throw any value (spec.md's Throw has no restriction on
// operand type), but only a Panic carries an Op/Message pair worth
// reporting structurally, so anything else is wrapped with a generic Op.
func thrownPanic(thrown value.Value) *value.Panic {
	if thrown.IsHeap() {
		if p, ok := thrown.Object().Payload.(*value.Panic); ok {
			return p
		}
		if s, ok := thrown.Object().Payload.(*value.StringData); ok {
			return &value.Panic{Op: "Throw", Message: s.S}
		}
	}
	return &value.Panic{Op: "Throw", Message: "unhandled thrown value"}
}
