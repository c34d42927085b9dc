// Package builtin implements the dense, ABI-stable builtin-function
// table the interpreter's BuiltinFunctionCall opcode dispatches through
// (spec.md §4.L). Ids are assigned once and never reassigned, the same
// guarantee spec.md places on bytecode opcodes, so a compiled module
// keeps working against a runtime built from a later compiler version.
package builtin

import (
	"github.com/embervm/embervm/internal/value"
)

// ID is a builtin function's stable numeric identity.
type ID uint16

// ResultKind distinguishes the four shapes a builtin call can return
// (spec.md §4.L): an ordinary value, a value-domain error, a would-block
// signal the interpreter turns into YieldBuiltinWouldBlock, or a panic.
type ResultKind uint8

const (
	ResultValue ResultKind = iota
	ResultError
	ResultWouldBlock
	ResultPanic
)

// Result is what a builtin call returns to the interpreter.
type Result struct {
	Kind  ResultKind
	Value value.Value
	Err   error
	Panic *value.Panic
}

func Value(v value.Value) Result  { return Result{Kind: ResultValue, Value: v} }
func Error(err error) Result      { return Result{Kind: ResultError, Err: err} }
func WouldBlock() Result          { return Result{Kind: ResultWouldBlock} }
func PanicResult(p *value.Panic) Result { return Result{Kind: ResultPanic, Panic: p} }

// Func is one builtin's implementation. args are the raw argument
// registers as passed by the BuiltinFunctionCall instruction.
type Func func(args []value.Value) Result

// Table is the dense id -> implementation dispatch table. Every assigned
// id (see ids.go) is registered by NewTable, either with a real
// implementation or a notImplemented stub; calling an id outside the
// assigned range is a bytecode/table version mismatch, not a program-
// level condition, so it panics rather than returning an Error a
// program could catch.
type Table struct {
	fns []Func
}

// NewTable builds a table sized to cover every assigned id, pre-filled
// with Standard's registrations.
func NewTable() *Table {
	t := &Table{fns: make([]Func, idCount)}
	registerStandard(t)
	return t
}

// Register installs fn at id, overwriting any previous registration.
// Exists so embedding programs can add domain-specific builtins above
// the standard table without forking this package.
func (t *Table) Register(id ID, fn Func) {
	if int(id) >= len(t.fns) {
		grown := make([]Func, int(id)+1)
		copy(grown, t.fns)
		t.fns = grown
	}
	t.fns[id] = fn
}

// Call dispatches to the builtin registered at id.
func (t *Table) Call(id ID, args []value.Value) Result {
	if int(id) >= len(t.fns) || t.fns[id] == nil {
		return PanicResult(&value.Panic{Op: "BuiltinFunctionCall", Message: "unimplemented builtin"})
	}
	return t.fns[id](args)
}
