package bytecode

// Decode parses a complete module file: header, constant pool, class
// table, method table, and module index, in that fixed order (spec.md
// §4.H). The returned Module's Classes/Methods still carry pool-relative
// indices (Class.MethodIndices, Class.DropperIndex) rather than resolved
// pointers; internal/vm's loader performs that linking step once every
// module in a program has been decoded, so cross-module references can
// be resolved after the fact.
func Decode(data []byte) (*Module, error) {
	header, offset, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	pool, offset, err := DecodeConstantPool(data, offset)
	if err != nil {
		return nil, err
	}

	classes, offset, err := DecodeClassTable(data, offset, pool)
	if err != nil {
		return nil, err
	}

	methods, offset, err := DecodeMethodTable(data, offset, pool)
	if err != nil {
		return nil, err
	}

	index, _, err := DecodeModuleIndex(data, offset)
	if err != nil {
		return nil, err
	}

	return &Module{
		Version:     header.Version,
		Constants:   pool,
		Classes:     classes,
		Methods:     methods,
		EntryClass:  index.EntryClass,
		EntryMethod: index.EntryMethod,
	}, nil
}
