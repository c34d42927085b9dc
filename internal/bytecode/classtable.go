package bytecode

// Class is a decoded class-table entry: not yet linked into
// internal/value.Class (that linking step, performed by the loader in
// internal/vm, resolves MethodIndices against the decoded Methods slice
// and fills in a value.Class's fingerprint-keyed lookup table).
type Class struct {
	Name           string
	FieldCount     uint16
	IsProcessClass bool
	MethodIndices  []uint32
	DropperIndex   int32 // -1 if the class has no destructor
}

// Method is a decoded method-table entry: the method's compiled body
// lives in Instructions (fixed 12-byte records, per spec.md §4.H), ready
// to decode via DecodeInstruction.
type Method struct {
	Name         string
	NumParams    uint16
	NumRegisters uint16
	Instructions []byte
	JumpTable    [][]int32
	SourceFile   string
	SourceLines  []int32
}

// DecodeClassTable reads a length-prefixed sequence of class records.
func DecodeClassTable(data []byte, offset int, pool []Constant) ([]*Class, int, error) {
	if offset+4 > len(data) {
		return nil, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	count, _ := decodeLE[uint32](data, offset)
	offset += 4

	classes := make([]*Class, 0, count)
	for i := uint32(0); i < count; i++ {
		c, next, err := decodeClass(data, offset, pool)
		if err != nil {
			return nil, offset, err
		}
		classes = append(classes, c)
		offset = next
	}
	return classes, offset, nil
}

func decodeClass(data []byte, offset int, pool []Constant) (*Class, int, error) {
	nameIdx, offset2, err := readU32(data, offset)
	if err != nil {
		return nil, offset, err
	}
	offset = offset2

	fieldCount, offset3, err := readU16(data, offset)
	if err != nil {
		return nil, offset, err
	}
	offset = offset3

	flags, offset4, err := readU8(data, offset)
	if err != nil {
		return nil, offset, err
	}
	offset = offset4

	dropperIdx, offset5, err := readI32(data, offset)
	if err != nil {
		return nil, offset, err
	}
	offset = offset5

	methodCount, offset6, err := readU32(data, offset)
	if err != nil {
		return nil, offset, err
	}
	offset = offset6

	if offset+int(methodCount)*4 > len(data) {
		return nil, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	indices := make([]uint32, methodCount)
	for i := range indices {
		indices[i], _ = decodeLE[uint32](data, offset)
		offset += 4
	}

	name := ""
	if int(nameIdx) < len(pool) {
		name = pool[nameIdx].Str
	}

	return &Class{
		Name:           name,
		FieldCount:     fieldCount,
		IsProcessClass: flags&1 != 0,
		MethodIndices:  indices,
		DropperIndex:   dropperIdx,
	}, offset, nil
}

// DecodeMethodTable reads a length-prefixed sequence of method records.
func DecodeMethodTable(data []byte, offset int, pool []Constant) ([]*Method, int, error) {
	if offset+4 > len(data) {
		return nil, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	count, _ := decodeLE[uint32](data, offset)
	offset += 4

	methods := make([]*Method, 0, count)
	for i := uint32(0); i < count; i++ {
		m, next, err := decodeMethod(data, offset, pool)
		if err != nil {
			return nil, offset, err
		}
		methods = append(methods, m)
		offset = next
	}
	return methods, offset, nil
}

func decodeMethod(data []byte, offset int, pool []Constant) (*Method, int, error) {
	nameIdx, offset, err := readU32(data, offset)
	if err != nil {
		return nil, offset, err
	}
	numParams, offset, err := readU16(data, offset)
	if err != nil {
		return nil, offset, err
	}
	numRegisters, offset, err := readU16(data, offset)
	if err != nil {
		return nil, offset, err
	}
	instrCount, offset, err := readU32(data, offset)
	if err != nil {
		return nil, offset, err
	}
	byteLen := int(instrCount) * InstructionSize
	if offset+byteLen > len(data) {
		return nil, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	instructions := data[offset : offset+byteLen]
	offset += byteLen

	name := ""
	if int(nameIdx) < len(pool) {
		name = pool[nameIdx].Str
	}

	return &Method{
		Name:         name,
		NumParams:    numParams,
		NumRegisters: numRegisters,
		Instructions: instructions,
	}, offset, nil
}

func readU8(data []byte, offset int) (uint8, int, error) {
	if offset+1 > len(data) {
		return 0, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	return data[offset], offset + 1, nil
}

func readU16(data []byte, offset int) (uint16, int, error) {
	if offset+2 > len(data) {
		return 0, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	v, n := decodeLE[uint16](data, offset)
	return v, offset + n, nil
}

func readU32(data []byte, offset int) (uint32, int, error) {
	if offset+4 > len(data) {
		return 0, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	v, n := decodeLE[uint32](data, offset)
	return v, offset + n, nil
}

func readI32(data []byte, offset int) (int32, int, error) {
	v, next, err := readU32(data, offset)
	return int32(v), next, err
}
