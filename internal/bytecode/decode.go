package bytecode

import "golang.org/x/exp/constraints"

// decodeLE reads a little-endian unsigned integer of the width implied
// by T out of data starting at offset, returning the value and the
// number of bytes consumed. Generic over the unsigned integer kinds so
// the same function backs the 16-bit operand slots, 32-bit packed
// immediates, and 64-bit packed immediates spec.md §4.H describes,
// without three hand-duplicated decoders. Grounded on the generics-over-
// numeric-kinds style the pack uses throughout `logiface`'s field
// builders (e.g. its integer field constructors), using
// `golang.org/x/exp/constraints` for the type-parameter bound.
func decodeLE[T constraints.Unsigned](data []byte, offset int) (T, int) {
	var v T
	size := sizeOf(v)
	for i := size - 1; i >= 0; i-- {
		v <<= 8
		v |= T(data[offset+i])
	}
	return v, size
}

func sizeOf[T constraints.Unsigned](v T) int {
	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		return 8
	}
}

// encodeLE writes v into dst (which must have at least size(T) bytes)
// in little-endian order. The inverse of decodeLE, used by tests to
// round-trip encode/decode.
func encodeLE[T constraints.Unsigned](dst []byte, v T) int {
	size := sizeOf(v)
	for i := 0; i < size; i++ {
		dst[i] = byte(v)
		v >>= 8
	}
	return size
}
