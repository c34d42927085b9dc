package interpreter

import (
	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// step executes one decoded instruction. It reports switched=true when a
// yield point was reached (sr is then the result Run should return
// immediately), and advance=false when the caller must not bump
// frame.Index itself (a branch/goto/call already repositioned it, or a
// Return already popped the frame).
func (in *Interpreter) step(p *process.Process, t *process.Task, frame *process.Frame, ins bytecode.Instruction, budget *int32) (switched bool, sr process.SwitchResult, advance bool) {
	regs := frame.Registers
	op := ins.Operands

	switch ins.Opcode {
	case bytecode.OpNop:
		return false, process.SwitchResult{}, true

	// --- allocation ---
	case bytecode.OpAllocate:
		class := in.classAt(ins.Immediate32(1))
		setReg(regs, op[0], value.Heap(value.Owned, value.NewFields(class)))
		return false, process.SwitchResult{}, true
	case bytecode.OpArrayAllocate:
		count := int(reg(regs, op[1]).Int())
		setReg(regs, op[0], value.Heap(value.Owned, value.NewArray(in.ArrayClass, make([]value.Value, count))))
		return false, process.SwitchResult{}, true
	case bytecode.OpByteArrayAllocate:
		count := int(reg(regs, op[1]).Int())
		setReg(regs, op[0], value.Heap(value.Owned, value.NewByteArray(in.ByteArrayClass, make([]byte, count))))
		return false, process.SwitchResult{}, true
	case bytecode.OpProcessAllocate:
		class := in.classAt(ins.Immediate32(1))
		proc := process.NewProcess(class)
		inst := process.NewInstance(class, proc)
		setReg(regs, op[0], value.Heap(value.Owned, &value.Object{Class: class, Payload: inst}))
		return false, process.SwitchResult{}, true

	// --- field access ---
	case bytecode.OpGetField:
		slots := fieldSlots(reg(regs, op[1]))
		setReg(regs, op[0], slots[op[2]])
		return false, process.SwitchResult{}, true
	case bytecode.OpSetField:
		slots := fieldSlots(reg(regs, op[0]))
		slots[op[1]] = reg(regs, op[2])
		return false, process.SwitchResult{}, true

	// --- constant load ---
	case bytecode.OpGetConstant:
		idx := ins.Immediate32(1)
		setReg(regs, op[0], in.Constants[idx])
		return false, process.SwitchResult{}, true

	// --- singletons ---
	case bytecode.OpGetTrue:
		setReg(regs, op[0], value.Bool(true))
		return false, process.SwitchResult{}, true
	case bytecode.OpGetFalse:
		setReg(regs, op[0], value.Bool(false))
		return false, process.SwitchResult{}, true
	case bytecode.OpGetNil:
		setReg(regs, op[0], value.Nil())
		return false, process.SwitchResult{}, true
	case bytecode.OpGetUndefined:
		setReg(regs, op[0], value.Undefined())
		return false, process.SwitchResult{}, true
	case bytecode.OpIsUndefined:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).IsUndefined()))
		return false, process.SwitchResult{}, true

	// --- control flow ---
	case bytecode.OpBranch:
		if reg(regs, op[0]).Bool() {
			frame.Index = int32(ins.Immediate32(1)) - 1 // step's caller adds 1
		}
		return false, process.SwitchResult{}, true
	case bytecode.OpGoto:
		frame.Index = int32(ins.Immediate32(0)) - 1
		return false, process.SwitchResult{}, true
	case bytecode.OpBranchResult:
		// Dispatches on the task's thrown flag (spec.md:174), not a
		// register: op[0] is instead where the thrown value lands when
		// the if_err target is taken, since a thrown value never goes
		// through a call's ordinary ReturnReg delivery (see doReturn).
		if t.HasThrown {
			setReg(regs, op[0], t.Thrown)
			t.Thrown = value.Nil()
			t.HasThrown = false
			frame.Index = int32(ins.Immediate32(3)) - 1
		} else {
			frame.Index = int32(ins.Immediate32(1)) - 1
		}
		return false, process.SwitchResult{}, true
	case bytecode.OpJumpTable:
		selector := int(reg(regs, op[0]).Int())
		table := frame.Method.JumpTable[ins.Immediate32(1)]
		if selector < 0 || selector >= len(table) {
			selector = len(table) - 1
		}
		frame.Index = table[selector] - 1
		return false, process.SwitchResult{}, true
	case bytecode.OpReturn:
		result, done := in.doReturn(t, frame, reg(regs, op[0]))
		return done, result, false
	case bytecode.OpThrow:
		sr, switched, advance := in.throwValue(t, reg(regs, op[0]), op[1] == 1)
		return switched, sr, advance

	// --- refcounting ---
	case bytecode.OpRefKind:
		setReg(regs, op[0], value.Int(int64(reg(regs, op[1]).RefKind())))
		return false, process.SwitchResult{}, true
	case bytecode.OpIncrement:
		value.Increment(reg(regs, op[0]))
		return false, process.SwitchResult{}, true
	case bytecode.OpDecrement:
		value.Decrement(reg(regs, op[0]))
		return false, process.SwitchResult{}, true
	case bytecode.OpDecrementAtomic:
		if value.DecrementAtomic(reg(regs, op[0])) {
			frame.Index = int32(ins.Immediate32(1)) - 1
		}
		return false, process.SwitchResult{}, true
	case bytecode.OpCheckRefs:
		if err := value.CheckRefs(reg(regs, op[0])); err != nil {
			return true, in.unwindThrow(t, value.Heap(value.Owned, value.NewString(nil, err.Error()))), false
		}
		return false, process.SwitchResult{}, true

	// --- preemption ---
	case bytecode.OpReduce:
		*budget -= int32(op[0])
		return false, process.SwitchResult{}, true

	// --- operand stack ---
	case bytecode.OpPush:
		frame.PushOperand(reg(regs, op[0]))
		return false, process.SwitchResult{}, true
	case bytecode.OpPop:
		setReg(regs, op[0], frame.PopOperand())
		return false, process.SwitchResult{}, true
	case bytecode.OpMoveResult:
		setReg(regs, op[0], frame.PopOperand())
		return false, process.SwitchResult{}, true

	default:
		return in.stepExtended(p, t, frame, ins, budget)
	}
}

// fieldSlots returns the mutable field-slot array backing v, regardless
// of whether v is a plain object (value.Fields) or a process instance
// (process.Instance) — both share the same flat-slot-array shape.
func fieldSlots(v value.Value) []value.Value {
	switch payload := v.Object().Payload.(type) {
	case *value.Fields:
		return payload.Slots
	case *process.Instance:
		return payload.Fields
	default:
		panic(&value.Panic{Op: "GetField", Message: "value has no field slots"})
	}
}

// doReturn implements the Return instruction: pop the current frame and
// either finish the task (stack now empty) or deliver the value into the
// resumed caller's reserved register. The bool result mirrors step's
// switched/advance convention: true means the caller must return the
// SwitchResult to the worker immediately.
func (in *Interpreter) doReturn(t *process.Task, frame *process.Frame, retVal value.Value) (process.SwitchResult, bool) {
	popped, empty := t.PopFrame()
	_ = frame
	if empty {
		t.Return = retVal
		return process.SwitchResult{Reason: process.YieldReturn, Action: process.ActionIgnore}, true
	}
	caller := t.CurrentFrame()
	if popped.ReturnReg != noReturnReg {
		caller.Registers[popped.ReturnReg] = retVal
	}
	caller.Index++
	return process.SwitchResult{}, false
}

// throwValue implements the Throw instruction's two-tier semantics
// (spec.md:174, :239, :241): BranchResult is the catch/handler
// instruction a Throw unwinds to, so this pops at most one frame
// rather than the whole stack. unwind=1 pops the current frame and
// leaves the thrown flag set for the caller's own BranchResult to
// dispatch, continuing there exactly as doReturn delivers a value to
// the caller — advance=false, since the frame (and its Index) already
// changed. unwind=0 sets the flag in place for this same frame's own
// next instruction — its BranchResult — to dispatch, without a frame
// change or a yield; advance=true there, to move past Throw itself
// onto that BranchResult rather than re-executing Throw. Mirrors the
// original interpreter's Throw `reset!` arm. A throw that unwinds past
// the bottom frame is an unhandled exception: it ends the task with a
// captured trace, the same as a tier-1 panic.
func (in *Interpreter) throwValue(t *process.Task, thrown value.Value, unwind bool) (sr process.SwitchResult, switched bool, advance bool) {
	t.Thrown = thrown
	t.HasThrown = true
	if !unwind {
		return process.SwitchResult{}, false, true
	}
	if len(t.Stack) == 1 {
		t.Trace = captureTrace(t)
	}
	_, empty := t.PopFrame()
	if empty {
		return process.SwitchResult{Reason: process.YieldReturn, Action: process.ActionIgnore}, true, false
	}
	t.CurrentFrame().Index++
	return process.SwitchResult{}, false, false
}

// unwindThrow implements the tier-1 Panic path (spec.md §7): a
// VM-structural fault (a missing method/vtable/extern lookup, a failed
// CheckRefs, an unrecognised or truncated opcode) is unconditionally
// process-fatal, so unlike throwValue it always clears the entire
// frame stack rather than leaving anything for a BranchResult to
// dispatch.
func (in *Interpreter) unwindThrow(t *process.Task, thrown value.Value) process.SwitchResult {
	t.Trace = captureTrace(t)
	t.Thrown = thrown
	t.HasThrown = true
	t.Stack = nil
	return process.SwitchResult{Reason: process.YieldReturn, Action: process.ActionIgnore}
}

func (in *Interpreter) classAt(idx uint32) *value.Class {
	if int(idx) >= len(in.Classes) {
		return nil
	}
	return in.Classes[idx]
}
