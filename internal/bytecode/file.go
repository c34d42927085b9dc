// Package bytecode decodes the compiled module format described by
// spec.md §4.H: a four-byte signature, a version byte, a constant pool, a
// class table, a method table, and a module index. Decoding is the only
// responsibility here — execution lives in internal/interpreter.
package bytecode

import (
	"errors"
	"fmt"
)

// Signature is the four magic bytes every module file must begin with.
var Signature = [4]byte{'i', 'n', 'k', 'o'}

// CurrentVersion is the only version this loader accepts.
const CurrentVersion = 1

var (
	ErrTruncated          = errors.New("bytecode: truncated file")
	ErrInvalidSignature   = errors.New("bytecode: invalid signature")
	ErrUnsupportedVersion = errors.New("bytecode: unsupported version")
	ErrInvalidConstantTag = errors.New("bytecode: invalid constant tag")
	ErrInvalidOpcode      = errors.New("bytecode: invalid opcode")
)

// DecodeError wraps a lower-level error with the byte offset at which
// decoding failed, matching the teacher's `eventloop/errors.go` pattern
// of wrapped-cause structs implementing Unwrap for errors.Is/As.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bytecode: at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Module is a fully decoded bytecode file: its constant pool, class
// table, and method table, ready for the interpreter to execute.
type Module struct {
	Version   uint8
	Constants []Constant
	Classes   []*Class
	Methods   []*Method

	// EntryClass/EntryMethod are the module index's entry-point indices
	// (-1 if absent), per spec.md §4.H's trailing "module index" section.
	EntryClass  int32
	EntryMethod int32
}

// Header is the fixed five-byte prologue: signature + version.
type Header struct {
	Version uint8
}

// DecodeHeader validates the four-byte signature and version byte at the
// start of data, per spec.md §4.H.
func DecodeHeader(data []byte) (Header, int, error) {
	if len(data) < 5 {
		return Header{}, 0, &DecodeError{Offset: 0, Err: ErrTruncated}
	}
	if data[0] != Signature[0] || data[1] != Signature[1] || data[2] != Signature[2] || data[3] != Signature[3] {
		return Header{}, 0, &DecodeError{Offset: 0, Err: ErrInvalidSignature}
	}
	version := data[4]
	if version != CurrentVersion {
		return Header{}, 5, &DecodeError{Offset: 4, Err: ErrUnsupportedVersion}
	}
	return Header{Version: version}, 5, nil
}
