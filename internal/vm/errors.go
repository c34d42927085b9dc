package vm

import (
	"errors"
	"fmt"

	"github.com/embervm/embervm/internal/value"
)

// Sentinel errors for the loader's own checks, distinct from
// internal/bytecode's decode-time errors (malformed bytes) — these catch
// a well-formed module that doesn't satisfy the linker's invariants.
var (
	ErrUnresolvedMethod = errors.New("vm: method index out of range")
	ErrUnresolvedClass  = errors.New("vm: class index out of range")
	ErrNoSuchClass      = errors.New("vm: no class with that name in program")
	ErrNoSuchMethod     = errors.New("vm: no method with that name on class")
	ErrNoEntryPoint     = errors.New("vm: program names no entry point")
)

// LoadError wraps a lower-level decode or link failure with the module
// name it occurred in, matching the teacher-grounded
// `internal/bytecode.DecodeError` pattern of a wrapped-cause struct
// implementing Unwrap for errors.Is/As.
type LoadError struct {
	Module string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("vm: loading %s: %v", e.Module, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RuntimeError wraps an unhandled program-level panic (spec.md §7's
// tier-1 panic, captured with its stack trace) as the error RunMain
// returns when the main process's task ends in Throw rather than a
// normal Return.
type RuntimeError struct {
	Panic *value.Panic
	Trace []TraceFrame
}

func (e *RuntimeError) Error() string {
	if e.Panic == nil {
		return "vm: unhandled program error"
	}
	return fmt.Sprintf("vm: unhandled panic: %v", e.Panic)
}

func (e *RuntimeError) Unwrap() error { return e.Panic }

// TraceFrame mirrors process.TraceFrame for callers that don't want to
// import internal/process directly.
type TraceFrame struct {
	MethodName string
	SourceFile string
	Line       int32
}
