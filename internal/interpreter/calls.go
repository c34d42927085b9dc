package interpreter

import (
	"github.com/embervm/embervm/internal/builtin"
	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// noReturnReg marks a pushed frame whose result the caller discards
// (CallDropper has no destination register to write into).
const noReturnReg uint16 = 0xFFFF

// stepExtended handles everything step didn't recognise directly: the
// arithmetic/container opcodes (delegated to stepArithmetic), the call
// family, process operations, and future operations.
func (in *Interpreter) stepExtended(p *process.Process, t *process.Task, frame *process.Frame, ins bytecode.Instruction, budget *int32) (switched bool, sr process.SwitchResult, advance bool) {
	if threw, result, handled := in.stepArithmetic(t, frame, ins); handled {
		return threw, result, true
	}

	regs := frame.Registers
	op := ins.Operands

	switch ins.Opcode {
	case bytecode.OpCallStatic, bytecode.OpCallInstance:
		m := in.Methods[op[1]]
		in.pushCall(t, frame, m, op[0], op[2], nil)
		return false, process.SwitchResult{}, false

	case bytecode.OpCallDynamic:
		recv := reg(regs, op[1])
		name := stringOf(in.Constants[ins.Immediate32(2)])
		fp := value.Fingerprint(name)
		vm, ok := recv.Object().Class.Lookup(fp, name)
		if !ok {
			return true, in.unwindThrow(t, panicValue(&value.Panic{Op: "CallDynamic", Message: "no method named " + name})), false
		}
		m := vm.Compiled.(*process.Method)
		in.pushCall(t, frame, m, op[0], op[4], nil)
		return false, process.SwitchResult{}, false

	case bytecode.OpCallVirtual:
		recv := reg(regs, op[1])
		vm, ok := recv.Object().Class.Virtual(int(op[2]))
		if !ok {
			return true, in.unwindThrow(t, panicValue(&value.Panic{Op: "CallVirtual", Message: "vtable index out of range"})), false
		}
		m := vm.Compiled.(*process.Method)
		in.pushCall(t, frame, m, op[0], op[3], nil)
		return false, process.SwitchResult{}, false

	case bytecode.OpCallClosure:
		closure := reg(regs, op[1]).Object().Payload.(*process.Closure)
		in.pushCall(t, frame, closure.Method, op[0], op[2], closure.Captured)
		return false, process.SwitchResult{}, false

	case bytecode.OpCallDropper:
		recv := reg(regs, op[0])
		class := recv.Object().Class
		if class.Dropper == nil {
			return false, process.SwitchResult{}, true
		}
		m := class.Dropper.Compiled.(*process.Method)
		newFrame := process.NewFrame(m)
		n := m.NumParams
		if n > 0 {
			newFrame.Registers[0] = recv
		}
		newFrame.ReturnReg = noReturnReg
		t.PushFrame(newFrame)
		return false, process.SwitchResult{}, false

	case bytecode.OpCallExtern:
		name := stringOf(in.Constants[ins.Immediate32(1)])
		fn, ok := in.Externs[name]
		if !ok {
			return true, in.unwindThrow(t, panicValue(&value.Panic{Op: "CallExtern", Message: "no extern named " + name})), false
		}
		base, count := op[3], op[4]
		args := make([]value.Value, count)
		copy(args, regs[base:int(base)+int(count)])
		setReg(regs, op[0], fn(args))
		return false, process.SwitchResult{}, true

	case bytecode.OpBuiltinFunctionCall:
		id := builtin.ID(op[0])
		base, count := op[1], op[2]
		args := make([]value.Value, count)
		copy(args, regs[base:int(base)+int(count)])
		result := in.Builtins.Call(id, args)
		switch result.Kind {
		case builtin.ResultValue:
			frame.PushOperand(result.Value)
			return false, process.SwitchResult{}, true
		case builtin.ResultWouldBlock:
			return true, process.SwitchResult{Reason: process.YieldBuiltinWouldBlock, Action: process.ActionIgnore}, false
		case builtin.ResultError:
			// Tier 3 (spec.md §7): a builtin's error return becomes a
			// recoverable thrown value a BranchResult dispatches, not a
			// process-fatal panic — matches the original interpreter's
			// BuiltinFunctionCall Err(Error(value)) arm, which only calls
			// set_throw_value and keeps running.
			sr, switched, advance := in.throwValue(t, panicValue(result.Err), false)
			return switched, sr, advance
		default: // builtin.ResultPanic
			return true, in.unwindThrow(t, panicValue(result.Panic)), true
		}

	case bytecode.OpProcessSend:
		target := targetProcess(reg(regs, op[1]))
		m := in.Methods[op[2]]
		base, count := op[3], op[4]
		args := make([]value.Value, count)
		copy(args, regs[base:int(base)+int(count)])
		// Enqueue first, then submit the target before blocking on its
		// reply — SendMessage(wait=true) would otherwise park this
		// worker on a process nothing has yet made runnable.
		reply := target.SendMessageWait(m, args)
		in.submit(target)
		r := <-reply
		if r.IsError {
			// The reply already carries a thrown value from the target
			// task's own tier-2/3 handling; propagate it the same way
			// rather than promoting it to a process-fatal panic.
			sr, switched, advance := in.throwValue(t, r.Thrown, false)
			return switched, sr, advance
		}
		setReg(regs, op[0], r.Value)
		return false, process.SwitchResult{}, true

	case bytecode.OpProcessSendAsync:
		target := targetProcess(reg(regs, op[0]))
		m := in.Methods[op[1]]
		base, count := op[2], op[3]
		args := make([]value.Value, count)
		copy(args, regs[base:int(base)+int(count)])
		target.SendMessage(m, args, false)
		in.submit(target)
		return false, process.SwitchResult{}, true

	case bytecode.OpProcessSuspend:
		duration := reg(regs, op[0]).Int()
		return true, process.SwitchResult{Reason: process.YieldSuspend, Action: process.ActionIgnore, SuspendDuration: duration}, true

	case bytecode.OpProcessWriteResult:
		t.Return = reg(regs, op[0])
		return false, process.SwitchResult{}, true

	case bytecode.OpProcessFinishTask:
		t.Terminating = reg(regs, op[0]).Bool()
		return true, process.SwitchResult{Reason: process.YieldFinishTask, Action: process.ActionIgnore}, true

	case bytecode.OpProcessGetField:
		inst := reg(regs, op[1]).Object().Payload.(*process.Instance)
		setReg(regs, op[0], inst.Fields[op[2]])
		return false, process.SwitchResult{}, true

	case bytecode.OpProcessSetField:
		inst := reg(regs, op[0]).Object().Payload.(*process.Instance)
		inst.Fields[op[1]] = reg(regs, op[2])
		return false, process.SwitchResult{}, true

	case bytecode.OpFutureGet:
		f := reg(regs, op[1]).Object().Payload.(*process.Future)
		if !f.Done() {
			t.WaitFuture = f
			// Not done: leave the instruction to be re-executed on
			// resume, once WaitFuture is cleared with the future
			// observed done, same as BuiltinFunctionCall's WouldBlock.
			return true, process.SwitchResult{Reason: process.YieldFutureWait, Action: process.ActionIgnore}, false
		}
		t.WaitFuture = nil
		v, thrown, isErr := f.Peek()
		if isErr {
			sr, switched, advance := in.throwValue(t, thrown, false)
			return switched, sr, advance
		}
		setReg(regs, op[0], v)
		return false, process.SwitchResult{}, true

	case bytecode.OpFutureGetFor:
		f := reg(regs, op[1]).Object().Payload.(*process.Future)
		if !f.Done() {
			t.WaitFuture = f
			timeout := reg(regs, op[2]).Int()
			return true, process.SwitchResult{Reason: process.YieldFutureWait, Action: process.ActionIgnore, SuspendDuration: timeout}, false
		}
		t.WaitFuture = nil
		v, thrown, isErr := f.Peek()
		if isErr {
			sr, switched, advance := in.throwValue(t, thrown, false)
			return switched, sr, advance
		}
		setReg(regs, op[0], v)
		return false, process.SwitchResult{}, true

	case bytecode.OpFuturePoll:
		f := reg(regs, op[1]).Object().Payload.(*process.Future)
		if !f.Done() {
			setReg(regs, op[0], value.Undefined())
			return false, process.SwitchResult{}, true
		}
		v, thrown, isErr := f.Peek()
		if isErr {
			sr, switched, advance := in.throwValue(t, thrown, false)
			return switched, sr, advance
		}
		setReg(regs, op[0], v)
		return false, process.SwitchResult{}, true

	case bytecode.OpFutureDrop:
		value.Decrement(reg(regs, op[0]))
		return false, process.SwitchResult{}, true
	}

	// Unrecognised opcode: treat as a fatal decode error rather than
	// silently no-opping, matching the "never mask a corrupt module"
	// stance fatalDecode takes for truncated instructions.
	return true, in.unwindThrow(t, panicValue(&value.Panic{Op: "dispatch", Message: "unrecognised opcode"})), true
}

// pushCall pushes a new frame for m, copying argBase..argBase+NumParams
// into the callee's registers (plus any closure-captured values right
// after them), and records destReg as where Return should deliver the
// result once this frame pops.
func (in *Interpreter) pushCall(t *process.Task, caller *process.Frame, m *process.Method, destReg, argBase uint16, captured []value.Value) {
	newFrame := process.NewFrame(m)
	n := m.NumParams
	copy(newFrame.Registers, caller.Registers[argBase:int(argBase)+n])
	if len(captured) > 0 {
		copy(newFrame.Registers[n:], captured)
	}
	newFrame.ReturnReg = destReg
	t.PushFrame(newFrame)
}

func targetProcess(v value.Value) *process.Process {
	return v.Object().Payload.(*process.Instance).Proc
}
