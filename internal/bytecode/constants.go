package bytecode

import (
	"encoding/binary"
	"math"
)

// ConstantTag identifies the shape of one constant-pool entry (spec.md
// §4.H).
type ConstantTag uint8

const (
	ConstInteger ConstantTag = 0
	ConstFloat   ConstantTag = 1
	ConstString  ConstantTag = 2
	ConstArray   ConstantTag = 3
)

// Constant is one decoded constant-pool entry. Exactly one of the typed
// fields is meaningful, selected by Tag.
type Constant struct {
	Tag     ConstantTag
	Int     int64
	Float   float64
	Str     string
	Indices []uint32 // ConstArray: indices into the surrounding pool
}

// DecodeConstantPool reads a length-prefixed (4-byte little-endian count)
// sequence of tagged constant records starting at offset, returning the
// decoded pool and the offset just past it.
func DecodeConstantPool(data []byte, offset int) ([]Constant, int, error) {
	if offset+4 > len(data) {
		return nil, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	count, _ := decodeLE[uint32](data, offset)
	offset += 4

	pool := make([]Constant, 0, count)
	for i := uint32(0); i < count; i++ {
		c, next, err := decodeConstant(data, offset)
		if err != nil {
			return nil, offset, err
		}
		pool = append(pool, c)
		offset = next
	}
	return pool, offset, nil
}

func decodeConstant(data []byte, offset int) (Constant, int, error) {
	if offset+1 > len(data) {
		return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
	}
	tag := ConstantTag(data[offset])
	offset++

	switch tag {
	case ConstInteger:
		if offset+8 > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		u, _ := decodeLE[uint64](data, offset)
		return Constant{Tag: tag, Int: int64(u)}, offset + 8, nil

	case ConstFloat:
		if offset+8 > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		// The sign of zero is significant (IEEE-754 +0.0 != -0.0 in bit
		// pattern), so this decodes the raw bits rather than going
		// through a lossy textual form.
		bits := binary.LittleEndian.Uint64(data[offset : offset+8])
		return Constant{Tag: tag, Float: math.Float64frombits(bits)}, offset + 8, nil

	case ConstString:
		if offset+4 > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		length, _ := decodeLE[uint32](data, offset)
		offset += 4
		if offset+int(length) > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		s := string(data[offset : offset+int(length)])
		return Constant{Tag: tag, Str: s}, offset + int(length), nil

	case ConstArray:
		if offset+4 > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		count, _ := decodeLE[uint32](data, offset)
		offset += 4
		if offset+int(count)*4 > len(data) {
			return Constant{}, offset, &DecodeError{Offset: offset, Err: ErrTruncated}
		}
		indices := make([]uint32, count)
		for i := range indices {
			indices[i], _ = decodeLE[uint32](data, offset)
			offset += 4
		}
		return Constant{Tag: tag, Indices: indices}, offset, nil

	default:
		return Constant{}, offset, &DecodeError{Offset: offset - 1, Err: ErrInvalidConstantTag}
	}
}
