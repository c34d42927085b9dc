// Package value implements the tagged ownership model described by the
// runtime: every value is either an immediate (bypasses refcounting
// entirely) or a heap object tagged with one of four ownership kinds.
//
// Go's garbage collector does not tolerate pointers with stolen low bits,
// so unlike a from-scratch systems-language implementation this package
// uses the struct{Kind, *Object} pair explicitly permitted as an
// alternative encoding (see SPEC_FULL.md, design notes).
package value

// Kind is the ownership tag carried by every heap value.
type Kind uint8

const (
	// Owned values are unique; their holder is responsible for releasing
	// them exactly once.
	Owned Kind = iota
	// Ref values are shared, non-atomically refcounted borrows.
	Ref
	// AtomicKind values are shared across process boundaries and use
	// atomic refcount operations.
	AtomicKind
	// Permanent values are globally live and never released.
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Owned:
		return "owned"
	case Ref:
		return "ref"
	case AtomicKind:
		return "atomic"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}
