package interpreter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/builtin"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// instr assembles one 12-byte instruction record for test programs:
// one opcode byte, one pad byte, five little-endian uint16 operands.
func instr(op bytecode.Opcode, operands ...uint16) []byte {
	var ops [5]uint16
	copy(ops[:], operands)
	b := make([]byte, bytecode.InstructionSize)
	b[0] = byte(op)
	for i, v := range ops {
		b[2+i*2] = byte(v)
		b[2+i*2+1] = byte(v >> 8)
	}
	return b
}

func program(instructions ...[]byte) []byte {
	var out []byte
	for _, ins := range instructions {
		out = append(out, ins...)
	}
	return out
}

func newTask(method *process.Method, args ...value.Value) *process.Task {
	return &process.Task{
		State:       process.TaskStart,
		StartMethod: method,
		StartArgs:   args,
	}
}

func TestRun_SimpleArithmeticReturn(t *testing.T) {
	method := &process.Method{
		NumRegisters: 3,
		NumParams:    2,
		Instructions: program(
			instr(bytecode.OpIntAdd, 2, 0, 1),
			instr(bytecode.OpReturn, 2),
		),
	}

	in := New()
	task := newTask(method, value.Int(3), value.Int(4))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.EqualValues(t, 7, task.Return.Int())
	require.False(t, task.HasThrown)
}

func TestRun_DivideByZeroUnwindsAsThrow(t *testing.T) {
	method := &process.Method{
		NumRegisters: 3,
		NumParams:    2,
		Instructions: program(
			instr(bytecode.OpIntDiv, 2, 0, 1),
			instr(bytecode.OpReturn, 2),
		),
	}

	in := New()
	task := newTask(method, value.Int(10), value.Int(0))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.True(t, task.HasThrown)
	require.Empty(t, task.Stack)
	require.NotEmpty(t, task.Trace)
}

func TestRun_ArrayGetOutOfBoundsPanicsWithIndexAndLength(t *testing.T) {
	method := &process.Method{
		NumRegisters: 3,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpArrayAllocate, 1, 0), // r1 = array of StartArgs[0] elements
			instr(bytecode.OpArrayGet, 2, 1, 0),   // r2 = r1[r0] -- r0 == len(r1), OOB
			instr(bytecode.OpReturn, 2),
		),
	}

	in := New()
	task := newTask(method, value.Int(3))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.True(t, task.HasThrown)

	msg := task.Thrown.Object().Payload.(*value.StringData).S
	require.Contains(t, msg, "index 3")
	require.Contains(t, msg, "length 3")
}

// TestRun_ReductionsPreempt mirrors spec.md §8's "reductions preempt"
// scenario: a tight loop that runs far more iterations than the
// reduction budget allows in one Run call, and must be resumed multiple
// times to finish while still producing the exact same final result.
func TestRun_ReductionsPreempt(t *testing.T) {
	// r0 = limit (param), r1 = counter (0), r2 = accumulator (0),
	// r3 = one (constant), r4 = scratch condition.
	method := &process.Method{
		NumRegisters: 5,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpGetConstant, 3, 1, 0), // 0: r3 = constants[1]
			instr(bytecode.OpIntLt, 4, 1, 0),       // 1: loop_top: r4 = r1 < r0
			instr(bytecode.OpBranch, 4, 4, 0),      // 2: if r4 goto 4
			instr(bytecode.OpGoto, 8, 0),            // 3: goto 8 (done)
			instr(bytecode.OpIntAdd, 2, 2, 3),       // 4: acc += 1
			instr(bytecode.OpIntAdd, 1, 1, 3),       // 5: counter += 1
			instr(bytecode.OpReduce, 1),              // 6: reduce(1)
			instr(bytecode.OpGoto, 1, 0),             // 7: goto loop_top
			instr(bytecode.OpReturn, 2),               // 8: done: return acc
		),
	}

	in := New()
	in.Constants = []value.Value{value.Int(0), value.Int(1)}
	in.Reductions = 500

	task := newTask(method, value.Int(5000))
	p := process.NewProcess(nil)

	resumes := 0
	var result process.SwitchResult
	for {
		result = in.Run(p, task)
		resumes++
		if result.Reason != process.YieldReduceExhausted {
			break
		}
	}

	require.Equal(t, process.YieldReturn, result.Reason)
	require.GreaterOrEqual(t, resumes, 9)
	require.EqualValues(t, 5000, task.Return.Int())
}

func TestRun_CallStaticPushesAndPopsFrame(t *testing.T) {
	callee := &process.Method{
		Name:         "double",
		NumRegisters: 2,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpIntAdd, 1, 0, 0),
			instr(bytecode.OpReturn, 1),
		),
	}
	caller := &process.Method{
		Name:         "main",
		NumRegisters: 2,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpCallStatic, 1, 0, 0), // r1 = double(r0)
			instr(bytecode.OpReturn, 1),
		),
	}

	in := New()
	in.Methods = []*process.Method{callee}

	task := newTask(caller, value.Int(21))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.EqualValues(t, 42, task.Return.Int())
}

func TestRun_BuiltinFunctionCallWouldBlockRetriesSameInstruction(t *testing.T) {
	method := &process.Method{
		NumRegisters: 1,
		NumParams:    0,
		Instructions: program(
			instr(bytecode.OpBuiltinFunctionCall, uint16(builtin.CPUCoreCount), 0, 0),
			instr(bytecode.OpMoveResult, 0),
			instr(bytecode.OpReturn, 0),
		),
	}

	in := New()
	calls := 0
	in.Builtins.Register(builtin.CPUCoreCount, func(args []value.Value) builtin.Result {
		calls++
		if calls == 1 {
			return builtin.WouldBlock()
		}
		return builtin.Value(value.Int(4))
	})

	task := newTask(method)
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldBuiltinWouldBlock, result.Reason)
	require.Equal(t, 1, calls)

	result = in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.Equal(t, 2, calls)
	require.EqualValues(t, 4, task.Return.Int())
}

func TestRun_ProcessSuspendYieldsWithDuration(t *testing.T) {
	method := &process.Method{
		NumRegisters: 1,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpProcessSuspend, 0),
			instr(bytecode.OpReturn, 0),
		),
	}

	in := New()
	task := newTask(method, value.Int(1_000_000))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldSuspend, result.Reason)
	require.EqualValues(t, 1_000_000, result.SuspendDuration)

	// Resuming continues past the Suspend instruction rather than
	// re-suspending.
	result = in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
}

// TestRun_FutureGetNotDoneThenResumeWritesResult exercises the
// not-ready-then-resume path FutureGet/FutureGetFor share with
// BuiltinFunctionCall's WouldBlock: advance=false on the not-done
// branch must leave the instruction to be re-executed once the future
// resolves, rather than falling through to Return with an unwritten
// register.
func TestRun_FutureGetNotDoneThenResumeWritesResult(t *testing.T) {
	method := &process.Method{
		NumRegisters: 2,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpFutureGet, 1, 0),
			instr(bytecode.OpReturn, 1),
		),
	}

	fut := process.NewFuture()
	futVal := value.Heap(value.Owned, &value.Object{Payload: fut})

	in := New()
	task := newTask(method, futVal)
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldFutureWait, result.Reason)
	require.Same(t, fut, task.WaitFuture)
	require.EqualValues(t, 0, task.CurrentFrame().Index)

	fut.Resolve(value.Int(7), value.Value{}, false)

	result = in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.False(t, task.HasThrown)
	require.EqualValues(t, 7, task.Return.Int())
}

// TestRun_FutureGetForNotDoneThenResumeWritesResult mirrors the above
// for the timeout-bearing variant.
func TestRun_FutureGetForNotDoneThenResumeWritesResult(t *testing.T) {
	method := &process.Method{
		NumRegisters: 3,
		NumParams:    2,
		Instructions: program(
			instr(bytecode.OpFutureGetFor, 2, 0, 1),
			instr(bytecode.OpReturn, 2),
		),
	}

	fut := process.NewFuture()
	futVal := value.Heap(value.Owned, &value.Object{Payload: fut})

	in := New()
	task := newTask(method, futVal, value.Int(1_000_000))
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldFutureWait, result.Reason)
	require.EqualValues(t, 1_000_000, result.SuspendDuration)
	require.EqualValues(t, 0, task.CurrentFrame().Index)

	fut.Resolve(value.Int(3), value.Value{}, false)

	result = in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.EqualValues(t, 3, task.Return.Int())
}

// TestRun_RecoverableThrowDispatchesToBranchResultErrorTarget covers the
// previously-untested tier-2 path (spec.md:174, :239): Throw with
// unwind=0 sets the thrown flag in place, and the very next
// instruction's BranchResult reads it, lands on the if_err target with
// the value delivered into its destination register, and execution
// continues normally rather than terminating the task.
func TestRun_RecoverableThrowDispatchesToBranchResultErrorTarget(t *testing.T) {
	method := &process.Method{
		NumRegisters: 2,
		NumParams:    0,
		Instructions: program(
			instr(bytecode.OpGetConstant, 0, 0, 0),       // 0: r0 = constants[0]
			instr(bytecode.OpThrow, 0, 0),                 // 1: throw r0, unwind=0
			instr(bytecode.OpBranchResult, 1, 4, 0, 3, 0), // 2: thrown -> 3, else -> 4
			instr(bytecode.OpReturn, 1),                   // 3: error branch
			instr(bytecode.OpGetFalse, 1),                 // 4: ok branch (unreached)
			instr(bytecode.OpReturn, 1),                   // 5
		),
	}

	in := New()
	in.Constants = []value.Value{value.Heap(value.Owned, value.NewString(nil, "boom"))}
	task := newTask(method)
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.False(t, task.HasThrown)
	require.Empty(t, task.Trace)
	require.Equal(t, "boom", task.Return.Object().Payload.(*value.StringData).S)
}

// TestRun_UnwindingThrowPopsOneFrameToCallersBranchResult covers
// unwind=1: only the throwing frame is popped, landing execution in the
// caller's own BranchResult rather than collapsing the whole task, the
// distinction the always-fatal unwindThrow previously erased.
func TestRun_UnwindingThrowPopsOneFrameToCallersBranchResult(t *testing.T) {
	callee := &process.Method{
		Name:         "fails",
		NumRegisters: 1,
		NumParams:    0,
		Instructions: program(
			instr(bytecode.OpGetConstant, 0, 0, 0),
			instr(bytecode.OpThrow, 0, 1),
		),
	}
	caller := &process.Method{
		Name:         "main",
		NumRegisters: 2,
		NumParams:    0,
		Instructions: program(
			instr(bytecode.OpCallStatic, 1, 0, 0),         // 0: r1 = fails()
			instr(bytecode.OpBranchResult, 1, 3, 0, 2, 0), // 1: thrown -> 2, else -> 3
			instr(bytecode.OpReturn, 1),                   // 2: error branch
			instr(bytecode.OpGetFalse, 1),                 // 3: ok branch (unreached)
			instr(bytecode.OpReturn, 1),                   // 4
		),
	}

	in := New()
	in.Methods = []*process.Method{callee}
	in.Constants = []value.Value{value.Heap(value.Owned, value.NewString(nil, "boom"))}
	task := newTask(caller)
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.False(t, task.HasThrown)
	require.Empty(t, task.Trace)
	require.Equal(t, "boom", task.Return.Object().Payload.(*value.StringData).S)
}

func TestRun_FuturePollNonBlockingOnCompletedFuture(t *testing.T) {
	method := &process.Method{
		NumRegisters: 2,
		NumParams:    1,
		Instructions: program(
			instr(bytecode.OpFuturePoll, 1, 0),
			instr(bytecode.OpReturn, 1),
		),
	}

	fut := process.NewFuture()
	fut.Resolve(value.Int(99), value.Value{}, false)
	futVal := value.Heap(value.Owned, &value.Object{Payload: fut})

	in := New()
	task := newTask(method, futVal)
	p := process.NewProcess(nil)

	result := in.Run(p, task)
	require.Equal(t, process.YieldReturn, result.Reason)
	require.EqualValues(t, 99, task.Return.Int())
}
