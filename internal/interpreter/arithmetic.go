package interpreter

import (
	"strconv"

	"github.com/embervm/embervm/internal/bytecode"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/value"
)

// stepArithmetic handles the integer/float arithmetic and array/byte-
// array/string opcodes. Split out of step/stepExtended purely to keep
// each dispatch file a manageable size; there is no behavioural
// boundary implied by the split.
func (in *Interpreter) stepArithmetic(t *process.Task, frame *process.Frame, ins bytecode.Instruction) (threw bool, sr process.SwitchResult, handled bool) {
	regs := frame.Registers
	op := ins.Operands

	intBinOp := func(fn func(a, b int64) (int64, error)) (bool, process.SwitchResult, bool) {
		a, b := reg(regs, op[1]).Int(), reg(regs, op[2]).Int()
		r, err := fn(a, b)
		if err != nil {
			return true, in.unwindThrow(t, panicValue(err)), true
		}
		setReg(regs, op[0], value.Int(r))
		return false, process.SwitchResult{}, true
	}

	switch ins.Opcode {
	case bytecode.OpIntAdd:
		return intBinOp(value.IntAdd)
	case bytecode.OpIntSub:
		return intBinOp(value.IntSub)
	case bytecode.OpIntMul:
		return intBinOp(value.IntMul)
	case bytecode.OpIntDiv:
		return intBinOp(value.IntDiv)
	case bytecode.OpIntMod:
		return intBinOp(value.IntMod)
	case bytecode.OpIntPow:
		return intBinOp(value.IntPow)
	case bytecode.OpIntShl:
		return intBinOp(value.IntShl)
	case bytecode.OpIntShr:
		return intBinOp(value.IntShr)
	case bytecode.OpIntEq:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Int() == reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true
	case bytecode.OpIntLt:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Int() < reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true
	case bytecode.OpIntGt:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Int() > reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true
	case bytecode.OpIntBitAnd:
		setReg(regs, op[0], value.Int(reg(regs, op[1]).Int()&reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true
	case bytecode.OpIntBitOr:
		setReg(regs, op[0], value.Int(reg(regs, op[1]).Int()|reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true
	case bytecode.OpIntBitXor:
		setReg(regs, op[0], value.Int(reg(regs, op[1]).Int()^reg(regs, op[2]).Int()))
		return false, process.SwitchResult{}, true

	case bytecode.OpFloatAdd:
		setReg(regs, op[0], value.Float(reg(regs, op[1]).Float()+reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatSub:
		setReg(regs, op[0], value.Float(reg(regs, op[1]).Float()-reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatMul:
		setReg(regs, op[0], value.Float(reg(regs, op[1]).Float()*reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatDiv:
		setReg(regs, op[0], value.Float(reg(regs, op[1]).Float()/reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatEq:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Float() == reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatLt:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Float() < reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatGt:
		setReg(regs, op[0], value.Bool(reg(regs, op[1]).Float() > reg(regs, op[2]).Float()))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatIsInf:
		setReg(regs, op[0], value.Bool(value.FloatIsInf(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatIsNan:
		setReg(regs, op[0], value.Bool(value.FloatIsNaN(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatCeil:
		setReg(regs, op[0], value.Float(value.FloatCeil(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatFloor:
		setReg(regs, op[0], value.Float(value.FloatFloor(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatRound:
		setReg(regs, op[0], value.Float(value.FloatRound(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true
	case bytecode.OpFloatToInt:
		setReg(regs, op[0], value.Int(value.FloatToInt(reg(regs, op[1]).Float())))
		return false, process.SwitchResult{}, true

	case bytecode.OpArrayGet:
		arr := array(reg(regs, op[1]))
		i := int(reg(regs, op[2]).Int())
		if i < 0 || i >= len(arr.Elements) {
			return true, in.unwindThrow(t, panicValue(arrayOOB(i, len(arr.Elements)))), true
		}
		setReg(regs, op[0], arr.Elements[i])
		return false, process.SwitchResult{}, true
	case bytecode.OpArraySet:
		arr := array(reg(regs, op[0]))
		i := int(reg(regs, op[1]).Int())
		if i < 0 || i >= len(arr.Elements) {
			return true, in.unwindThrow(t, panicValue(arrayOOB(i, len(arr.Elements)))), true
		}
		arr.Elements[i] = reg(regs, op[2])
		return false, process.SwitchResult{}, true
	case bytecode.OpArrayLength:
		setReg(regs, op[0], value.Int(int64(len(array(reg(regs, op[1])).Elements))))
		return false, process.SwitchResult{}, true
	case bytecode.OpArrayPush:
		arr := array(reg(regs, op[0]))
		arr.Elements = append(arr.Elements, reg(regs, op[1]))
		return false, process.SwitchResult{}, true
	case bytecode.OpArrayPop:
		arr := array(reg(regs, op[1]))
		n := len(arr.Elements)
		if n == 0 {
			return true, in.unwindThrow(t, panicValue(arrayOOB(0, 0))), true
		}
		setReg(regs, op[0], arr.Elements[n-1])
		arr.Elements = arr.Elements[:n-1]
		return false, process.SwitchResult{}, true

	case bytecode.OpByteArrayGet:
		ba := byteArray(reg(regs, op[1]))
		i := int(reg(regs, op[2]).Int())
		if i < 0 || i >= len(ba.Bytes) {
			return true, in.unwindThrow(t, panicValue(arrayOOB(i, len(ba.Bytes)))), true
		}
		setReg(regs, op[0], value.Int(int64(ba.Bytes[i])))
		return false, process.SwitchResult{}, true
	case bytecode.OpByteArraySet:
		ba := byteArray(reg(regs, op[0]))
		i := int(reg(regs, op[1]).Int())
		if i < 0 || i >= len(ba.Bytes) {
			return true, in.unwindThrow(t, panicValue(arrayOOB(i, len(ba.Bytes)))), true
		}
		ba.Bytes[i] = byte(reg(regs, op[2]).Int())
		return false, process.SwitchResult{}, true
	case bytecode.OpByteArrayLength:
		setReg(regs, op[0], value.Int(int64(len(byteArray(reg(regs, op[1])).Bytes))))
		return false, process.SwitchResult{}, true

	case bytecode.OpStringConcat:
		a, b := stringOf(reg(regs, op[1])), stringOf(reg(regs, op[2]))
		setReg(regs, op[0], value.Heap(value.Owned, value.NewString(in.StringClass, a+b)))
		return false, process.SwitchResult{}, true
	case bytecode.OpStringLength:
		setReg(regs, op[0], value.Int(int64(len(stringOf(reg(regs, op[1]))))))
		return false, process.SwitchResult{}, true
	case bytecode.OpStringSlice:
		s := stringOf(reg(regs, op[1]))
		start := int(reg(regs, op[2]).Int())
		length := int(reg(regs, op[3]).Int())
		if start < 0 || length < 0 || start+length > len(s) {
			return true, in.unwindThrow(t, panicValue(arrayOOB(start+length, len(s)))), true
		}
		setReg(regs, op[0], value.Heap(value.Owned, value.NewString(in.StringClass, s[start:start+length])))
		return false, process.SwitchResult{}, true
	case bytecode.OpStringEq:
		setReg(regs, op[0], value.Bool(stringOf(reg(regs, op[1])) == stringOf(reg(regs, op[2]))))
		return false, process.SwitchResult{}, true
	}

	return false, process.SwitchResult{}, false
}

func array(v value.Value) *value.Array { return v.Object().Payload.(*value.Array) }
func byteArray(v value.Value) *value.ByteArray { return v.Object().Payload.(*value.ByteArray) }
func stringOf(v value.Value) string { return v.Object().Payload.(*value.StringData).S }

func panicValue(err error) value.Value {
	return value.Heap(value.Owned, value.NewString(nil, err.Error()))
}

func arrayOOB(index, length int) error {
	return &value.Panic{Op: "ArrayGet", Message: indexMessage(index, length)}
}

func indexMessage(index, length int) string {
	return "index " + strconv.Itoa(index) + " out of bounds for length " + strconv.Itoa(length)
}
