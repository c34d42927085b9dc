package bytecode

// ModuleIndex is the decoded form of the trailing section spec.md §4.H
// names after the method table: which class/method (if either) this
// module nominates as a program's entry point. A library module compiled
// on its own carries no entry point (-1/-1); an executable's top-level
// module names the class whose instance internal/vm.RunMain should
// allocate and the method it should start as the first task, sparing
// cmd/embervm from hard-coding a conventional class/method name.
type ModuleIndex struct {
	EntryClass  int32 // -1 if this module has no entry point
	EntryMethod int32 // -1 if this module has no entry point
}

// DecodeModuleIndex reads the fixed 8-byte module-index record: two
// little-endian signed 32-bit indices, -1 meaning "absent".
func DecodeModuleIndex(data []byte, offset int) (ModuleIndex, int, error) {
	entryClass, offset, err := readI32(data, offset)
	if err != nil {
		return ModuleIndex{}, offset, err
	}
	entryMethod, offset, err := readI32(data, offset)
	if err != nil {
		return ModuleIndex{}, offset, err
	}
	return ModuleIndex{EntryClass: entryClass, EntryMethod: entryMethod}, offset, nil
}
