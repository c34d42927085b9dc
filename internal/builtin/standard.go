package builtin

import (
	"errors"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/embervm/embervm/internal/value"
)

// notImplemented is the result every ABI-reserved-but-unimplemented
// builtin id returns: a value-domain error a program can catch and
// report, not a VM panic. Preserves the numeric id assignment for a
// stdlib surface (file I/O, sockets, FFI) this module doesn't carry a
// body for, per spec.md §1's scope boundary.
func notImplemented(name string) Func {
	return func(args []value.Value) Result {
		return Error(errors.New(name + ": not implemented"))
	}
}

// registerStandard wires the representative, fully-implemented builtins
// spec.md §4.L calls out as examples of the table's shape: time and
// environment queries, randomness, string case conversion, and a CPU
// topology query. Ids reserved for out-of-scope builtin bodies (file
// I/O, sockets, FFI) are registered as named not-implemented stubs so
// Table.Call never has to distinguish "unassigned id" from "assigned
// but bodyless id" — only a genuinely out-of-range id reaches the
// PanicResult default in Call.
func registerStandard(t *Table) {
	t.Register(FileOpen, notImplemented("FileOpen"))
	t.Register(FileRead, notImplemented("FileRead"))
	t.Register(FileWrite, notImplemented("FileWrite"))
	t.Register(FileClose, notImplemented("FileClose"))
	t.Register(SocketConnect, notImplemented("SocketConnect"))
	t.Register(SocketSend, notImplemented("SocketSend"))
	t.Register(SocketRecv, notImplemented("SocketRecv"))
	t.Register(FFICall, notImplemented("FFICall"))

	start := time.Now()
	t.Register(TimeMonotonicNanos, func(args []value.Value) Result {
		return Value(value.Int(time.Since(start).Nanoseconds()))
	})
	t.Register(TimeUnixNanos, func(args []value.Value) Result {
		return Value(value.Int(time.Now().UnixNano()))
	})

	t.Register(EnvGet, func(args []value.Value) Result {
		name, ok := stringArg(args, 0)
		if !ok {
			return PanicResult(&value.Panic{Op: "EnvGet", Message: "argument 0 is not a string"})
		}
		v, found := os.LookupEnv(name)
		if !found {
			return Value(value.Undefined())
		}
		return Value(value.Heap(value.Owned, value.NewString(nil, v)))
	})
	t.Register(EnvSet, func(args []value.Value) Result {
		name, ok := stringArg(args, 0)
		if !ok {
			return PanicResult(&value.Panic{Op: "EnvSet", Message: "argument 0 is not a string"})
		}
		val, ok := stringArg(args, 1)
		if !ok {
			return PanicResult(&value.Panic{Op: "EnvSet", Message: "argument 1 is not a string"})
		}
		if err := os.Setenv(name, val); err != nil {
			return Error(err)
		}
		return Value(value.Nil())
	})

	t.Register(RandomInt63, func(args []value.Value) Result {
		return Value(value.Int(rand.Int63()))
	})
	t.Register(RandomFloat64, func(args []value.Value) Result {
		return Value(value.Float(rand.Float64()))
	})

	t.Register(StringToUpper, func(args []value.Value) Result {
		s, ok := stringArg(args, 0)
		if !ok {
			return PanicResult(&value.Panic{Op: "StringToUpper", Message: "argument 0 is not a string"})
		}
		return Value(value.Heap(value.Owned, value.NewString(nil, strings.ToUpper(s))))
	})
	t.Register(StringToLower, func(args []value.Value) Result {
		s, ok := stringArg(args, 0)
		if !ok {
			return PanicResult(&value.Panic{Op: "StringToLower", Message: "argument 0 is not a string"})
		}
		return Value(value.Heap(value.Owned, value.NewString(nil, strings.ToLower(s))))
	})

	t.Register(CPUCoreCount, func(args []value.Value) Result {
		return Value(value.Int(int64(runtime.NumCPU())))
	})
}

func stringArg(args []value.Value, i int) (string, bool) {
	if i >= len(args) || !args[i].IsHeap() {
		return "", false
	}
	s, ok := args[i].Object().Payload.(*value.StringData)
	if !ok {
		return "", false
	}
	return s.S, true
}
