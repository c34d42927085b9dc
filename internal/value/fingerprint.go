package value

import "github.com/cespare/xxhash/v2"

// Fingerprint computes the 32-bit method-name hash used by CallDynamic's
// method lookup (spec.md §4.I). xxhash gives us a fast,
// well-distributed hash without hand-rolling one; the low 32 bits are
// sufficient entropy for per-class method tables, which are small.
func Fingerprint(name string) uint32 {
	return uint32(xxhash.Sum64String(name))
}
