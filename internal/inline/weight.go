package inline

// DefaultCap is the accumulated-weight cap spec.md §4.K names as the
// default (100): a caller's running weight plus a callee's weight must
// stay under this for the "under the cap" inlining condition to hold.
const DefaultCap = 100

// instrWeight implements spec.md §4.K's weight model: Allocate=1,
// Branch=2, CallDynamic=2, everything else (including the other
// InstrKinds this package tracks) counts as trivial.
func instrWeight(kind InstrKind) int {
	switch kind {
	case InstrAllocate:
		return 1
	case InstrBranch:
		return 2
	case InstrCallDynamic:
		return 2
	default:
		return 0
	}
}

// Weight sums a method's instruction weights across every block — its
// contribution to a caller's accumulated weight once inlined.
func Weight(m *Method) int {
	total := 0
	for _, b := range m.Blocks {
		for _, instr := range b.Instrs {
			total += instrWeight(instr.Kind)
		}
	}
	return total
}
