package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediatesBypassRefcounting(t *testing.T) {
	v := Int(42)
	assert.Equal(t, Permanent, v.RefKind())
	Increment(v) // must not panic on nil heap pointer
	assert.False(t, Decrement(v))
}

func TestRefKindOnHeapValue(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	v := Heap(Ref, obj)
	assert.Equal(t, Ref, v.RefKind())
	assert.True(t, v.IsHeap())
	assert.Same(t, obj, v.Object())
}

func TestIncrementDecrementNonAtomic(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	v := Heap(Ref, obj)

	Increment(v)
	Increment(v)
	assert.Equal(t, int64(2), obj.Count())

	assert.False(t, Decrement(v))
	assert.True(t, Decrement(v))
	assert.Equal(t, int64(0), obj.Count())
}

func TestPermanentValuesIgnoreRefcounting(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	v := Heap(Permanent, obj)
	Increment(v)
	assert.Equal(t, int64(0), obj.Count())
	assert.False(t, Decrement(v))
}

func TestAtomicRefcounting(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	v := Heap(AtomicKind, obj)

	IncrementAtomic(v)
	IncrementAtomic(v)
	assert.Equal(t, int64(2), obj.AtomicCount())

	assert.False(t, DecrementAtomic(v))
	assert.True(t, DecrementAtomic(v))
}

func TestCheckRefsStillBorrowed(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	v := Heap(Owned, obj)

	require.NoError(t, CheckRefs(v))

	Increment(v)
	err := CheckRefs(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStillBorrowed)
}

func TestMarkDroppedOnce(t *testing.T) {
	obj := &Object{Class: &Class{Name: "Thing"}}
	assert.False(t, obj.Dropped())
	assert.True(t, obj.MarkDroppedOnce())
	assert.True(t, obj.Dropped())
	// A second call must report false: the dropper runs exactly once.
	assert.False(t, obj.MarkDroppedOnce())
}

func TestClassLookupAndVirtual(t *testing.T) {
	c := &Class{Name: "Counter"}
	inc := &Method{Name: "increment", Fingerprint: Fingerprint("increment")}
	dec := &Method{Name: "decrement", Fingerprint: Fingerprint("decrement")}
	c.AddMethod(inc)
	c.AddMethod(dec)

	m, ok := c.Lookup(Fingerprint("increment"), "increment")
	require.True(t, ok)
	assert.Equal(t, inc, m)

	_, ok = c.Lookup(Fingerprint("missing"), "missing")
	assert.False(t, ok)

	m, ok = c.Virtual(1)
	require.True(t, ok)
	assert.Equal(t, dec, m)

	_, ok = c.Virtual(99)
	assert.False(t, ok)
}

func TestFingerprintIsStable(t *testing.T) {
	assert.Equal(t, Fingerprint("increment"), Fingerprint("increment"))
	assert.NotEqual(t, Fingerprint("increment"), Fingerprint("decrement"))
}
