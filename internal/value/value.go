package value

import (
	"errors"
	"sync/atomic"
)

// ErrStillBorrowed is returned by CheckRefs (and wrapped into a panic by
// the interpreter) when a destructive move of an Owned value is attempted
// while non-owning references remain outstanding.
var ErrStillBorrowed = errors.New("value: still borrowed")

// Tag distinguishes immediates (encoded directly, bypassing refcounting)
// from heap values.
type Tag uint8

const (
	TagInt Tag = iota
	TagFloat
	TagBool
	TagNil
	TagUndefined
	TagHeap
)

// Value is the tagged machine word described by spec.md §3. Value types
// (Int, Float, Bool, Nil, the Undefined marker) are immediates that never
// touch the refcounting machinery; everything else is a Kind-tagged
// pointer to a heap Object.
type Value struct {
	tag   Tag
	kind  Kind
	ival  int64
	fval  float64
	bval  bool
	heap  *Object
}

// Object is a heap value's header: class pointer, (possibly atomic)
// reference count, and a type-dependent payload.
type Object struct {
	Class *Class

	// count is the non-atomic refcount, mutated only by the owning
	// thread (Ref kind).
	count int64

	// atomicCount is the atomic refcount (AtomicKind), mutated via the
	// sync/atomic package from any thread.
	atomicCount int64

	// Payload is the type-dependent body: field slots for a plain
	// object, a mailbox + task state for a process, raw bytes for a
	// string/byte-array, etc. Concrete shapes live in the owning
	// package (internal/process for Process payloads).
	Payload any

	// dropped guards against running the dropper more than once; refcounts
	// reaching zero exactly once is an invariant this field makes
	// assertable in tests (spec.md §8).
	dropped bool
}

func Int(v int64) Value     { return Value{tag: TagInt, ival: v} }
func Float(v float64) Value { return Value{tag: TagFloat, fval: v} }
func Bool(v bool) Value     { return Value{tag: TagBool, bval: v} }
func Nil() Value            { return Value{tag: TagNil} }
func Undefined() Value      { return Value{tag: TagUndefined} }

// Heap wraps a heap Object with the given ownership kind.
func Heap(kind Kind, obj *Object) Value {
	return Value{tag: TagHeap, kind: kind, heap: obj}
}

func (v Value) Tag() Tag   { return v.tag }
func (v Value) IsHeap() bool { return v.tag == TagHeap }
func (v Value) Object() *Object { return v.heap }

func (v Value) Int() int64     { return v.ival }
func (v Value) Float() float64 { return v.fval }
func (v Value) Bool() bool     { return v.bval }
func (v Value) IsUndefined() bool { return v.tag == TagUndefined }
func (v Value) IsNil() bool       { return v.tag == TagNil }

// RefKind implements the RefKind instruction: the ownership tag of any
// value. Immediates report Permanent, matching "value-type shapes bypass
// refcounting entirely" (spec.md §4.A) — there is nothing to own.
func (v Value) RefKind() Kind {
	if v.tag != TagHeap {
		return Permanent
	}
	return v.kind
}

// Increment implements the non-atomic Increment instruction. It is only
// valid, per the data-model invariant, on the thread that owns the value;
// callers outside that thread must use IncrementAtomic.
func Increment(v Value) {
	if v.tag != TagHeap || v.kind == Permanent {
		return
	}
	v.heap.count++
}

// Decrement implements the non-atomic Decrement instruction. Returns true
// if the count reached zero, at which point the caller (the drop-expanded
// bytecode) must run the dropper exactly once and then Free.
func Decrement(v Value) bool {
	if v.tag != TagHeap || v.kind == Permanent {
		return false
	}
	v.heap.count--
	return v.heap.count <= 0
}

// IncrementAtomic implements the atomic Increment instruction.
func IncrementAtomic(v Value) {
	if v.tag != TagHeap || v.kind == Permanent {
		return
	}
	atomic.AddInt64(&v.heap.atomicCount, 1)
}

// DecrementAtomic implements the DecrementAtomic branch instruction: it
// decrements the atomic refcount and reports whether it reached zero, so
// the interpreter can branch to the corresponding jump target.
func DecrementAtomic(v Value) (reachedZero bool) {
	if v.tag != TagHeap || v.kind == Permanent {
		return false
	}
	return atomic.AddInt64(&v.heap.atomicCount, -1) <= 0
}

// CheckRefs implements the CheckRefs instruction: it must be called
// before a potentially destructive move of an Owned value, and returns
// ErrStillBorrowed if any non-owning references remain. Outstanding
// references are tracked via the same count field Increment/Decrement
// use — an Owned value only has "referrers" in the sense of borrows taken
// out against it, which the drop-expansion pass routes through
// Increment/Decrement on the same Object.
func CheckRefs(v Value) error {
	if v.tag != TagHeap {
		return nil
	}
	if v.heap.count != 0 {
		return ErrStillBorrowed
	}
	return nil
}

// MarkDroppedOnce reports whether this call is the first to mark obj as
// dropped; the dropper must run exactly once (spec.md §3 invariant), and
// this is the enforcement point.
func (o *Object) MarkDroppedOnce() bool {
	if o.dropped {
		return false
	}
	o.dropped = true
	return true
}

// Dropped reports whether the destructor has already run, for tests that
// assert the drop-exactly-once invariant.
func (o *Object) Dropped() bool { return o.dropped }

// Count returns the current non-atomic refcount, for tests.
func (o *Object) Count() int64 { return o.count }

// AtomicCount returns the current atomic refcount, for tests.
func (o *Object) AtomicCount() int64 { return atomic.LoadInt64(&o.atomicCount) }
