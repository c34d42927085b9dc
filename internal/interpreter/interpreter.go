// Package interpreter implements the bytecode fetch-decode-dispatch-
// advance loop (spec.md §4.I): the 86-opcode instruction set, call
// convention, reduction-based cooperative preemption, and every yield
// point the scheduler's worker loop (internal/scheduler) and process
// run-lock machinery (internal/process) depend on.
//
// Operand convention. Every Instruction carries five uint16 slots
// (internal/bytecode.Instruction.Operands). Register-valued operands are
// register indices into the current Frame; where an opcode needs a
// wider value than one slot holds (a constant-pool index, a jump
// target), it packs two adjacent slots into a uint32 via Immediate32.
// Values that can be arbitrarily large at runtime (a suspend duration, a
// byte count) are never packed into the instruction itself — they are
// read out of a register instead, since every register already holds a
// full int64-capable Value. Call instructions take their argument count
// from the resolved method's static arity (Method.NumParams) rather
// than encoding it, freeing a slot; the two exceptions are
// BuiltinFunctionCall and CallExtern, whose targets are not bytecode
// methods with a declared arity.
package interpreter

import (
	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/builtin"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// DefaultReductions is the per-run reduction budget used when Config
// leaves Reductions unset, matching spec.md §4.I's "initialised from
// configuration, default a few thousand".
const DefaultReductions = 4000

// Interpreter executes process tasks. It holds every piece of decoded
// program state the opcodes need to resolve by index: the global
// constant pool, the class table, and the flat global method table
// CallStatic/CallInstance/message-send address into directly.
type Interpreter struct {
	Constants []value.Value
	Classes   []*value.Class
	Methods   []*process.Method

	// ArrayClass/ByteArrayClass/StringClass back the three built-in
	// container allocation opcodes; a program need not declare its own
	// classes for these, matching how the teacher's class table expects
	// a handful of runtime-provided classes to always exist.
	ArrayClass     *value.Class
	ByteArrayClass *value.Class
	StringClass    *value.Class

	Builtins *builtin.Table
	Externs  map[string]ExternFunc

	// Reductions is the per-Run preemption budget; DefaultReductions if
	// zero.
	Reductions int32

	// Submit hands a process to the scheduler pool's run queue. Wired by
	// internal/vm's State to scheduler.Pool.Submit; nil in package-local
	// tests that drive a Task through Run directly without a pool. A
	// message send makes its target runnable (spec.md §3's process
	// lifecycle), so ProcessSend/ProcessSendAsync call this after every
	// enqueue — redundant submits of an already-queued or already-running
	// process are harmless, since runProcess's run-lock TryLock simply
	// puts a busy process straight back (see scheduler/worker.go).
	Submit func(*process.Process)
}

// ExternFunc is a host function reachable via CallExtern, keyed by its
// constant-pool name rather than a compiler-assigned index, since extern
// bindings are resolved against the embedding host rather than the
// bytecode's own tables.
type ExternFunc func(args []value.Value) value.Value

// New builds an Interpreter ready to execute against a decoded module's
// resolved classes/methods/constants (the linking step that turns
// bytecode.Module indices into value.Class/process.Method pointers is
// performed by internal/vm's loader, not here).
func New() *Interpreter {
	return &Interpreter{
		ArrayClass:     &value.Class{Name: "Array"},
		ByteArrayClass: &value.Class{Name: "ByteArray"},
		StringClass:    &value.Class{Name: "String"},
		Builtins:       builtin.NewTable(),
		Externs:        make(map[string]ExternFunc),
	}
}

// submit hands p to the scheduler pool if one is wired, a no-op in the
// package-local tests that drive Run directly without a Pool.
func (in *Interpreter) submit(p *process.Process) {
	if in.Submit != nil {
		in.Submit(p)
	}
}

// reg reads register i, panicking with a machine-fatal error on an
// out-of-range index — a compiled-module invariant violation the
// interpreter cannot recover from, distinct from a value.Panic (which the
// interpreter turns into a process-fatal panic with a stack trace, per
// spec.md §7 tier 1).
func reg(regs []value.Value, i uint16) value.Value { return regs[i] }

func setReg(regs []value.Value, i uint16, v value.Value) { regs[i] = v }

// Run implements process.Runner: it advances t's current frame stack
// until a yield point (spec.md §4.I's enumerated list), then returns.
// See internal/process/switch.go's Runner doc comment for why this is a
// plain synchronous call rather than a real stack-swapping context
// switch.
func (in *Interpreter) Run(p *process.Process, t *process.Task) process.SwitchResult {
	if t.State == process.TaskStart {
		m := t.StartMethod
		f := process.NewFrame(m)
		n := m.NumParams
		if n > len(t.StartArgs) {
			n = len(t.StartArgs)
		}
		copy(f.Registers, t.StartArgs[:n])
		t.PushFrame(f)
		t.State = process.TaskResume
	}

	budget := in.Reductions
	if budget == 0 {
		budget = DefaultReductions
	}

	for {
		frame := t.CurrentFrame()
		if frame == nil {
			return process.SwitchResult{Reason: process.YieldReturn, Action: process.ActionIgnore}
		}

		byteOffset := int(frame.Index) * bytecode.InstructionSize
		if byteOffset >= len(frame.Method.Instructions) {
			// Falling off the end of a method body behaves as an
			// implicit Return of Nil; well-formed compiler output always
			// ends in an explicit Return, so this only guards malformed
			// input.
			result, done := in.doReturn(t, frame, value.Nil())
			if done {
				return result
			}
			continue
		}

		ins, err := bytecode.DecodeInstruction(frame.Method.Instructions, byteOffset)
		if err != nil {
			return in.fatalDecode(t, err)
		}

		switched, sr, advance := in.step(p, t, frame, ins, &budget)
		// advance is applied before the yield check: a yield that keeps
		// the frame stack intact (Suspend, FinishTask) must still move past
		// the instruction that caused it, so resuming continues at the
		// next one rather than re-triggering it. BuiltinWouldBlock and a
		// not-yet-done FutureGet/FutureGetFor ask for advance=false
		// instead, to re-enter the same instruction once its condition
		// can succeed — process.Task.WaitFuture's doc comment calls this
		// out explicitly. Return/Throw pop/clear the stack outright, so
		// advance is moot for them either way.
		if advance {
			frame.Index++
		}
		if switched {
			return sr
		}
		if budget <= 0 {
			return process.SwitchResult{Reason: process.YieldReduceExhausted, Action: process.ActionIgnore}
		}
	}
}

// fatalDecode turns a corrupt-bytecode decode failure into a thrown
// panic on the current task, unwinding exactly as a Throw instruction
// would.
func (in *Interpreter) fatalDecode(t *process.Task, err error) process.SwitchResult {
	panicVal := value.Heap(value.Owned, value.NewString(nil, err.Error()))
	return in.unwindThrow(t, panicVal)
}
