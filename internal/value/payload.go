package value

// Fields is the payload of a plain object allocated by Allocate: a flat
// slot array sized to its class's FieldCount, indexed directly by
// GetField/SetField's operand (spec.md §4.A).
type Fields struct {
	Slots []Value
}

// NewFields allocates a zeroed field array for a class.
func NewFields(class *Class) *Object {
	return &Object{Class: class, Payload: &Fields{Slots: make([]Value, class.FieldCount)}}
}

// Array is the payload backing ArrayAllocate/ArrayGet/ArraySet/ArrayPush/
// ArrayPop/ArrayLength.
type Array struct {
	Elements []Value
}

func NewArray(class *Class, elements []Value) *Object {
	return &Object{Class: class, Payload: &Array{Elements: elements}}
}

// ByteArray is the payload backing ByteArrayAllocate/ByteArrayGet/
// ByteArraySet/ByteArrayLength — a mutable byte buffer, distinct from
// String's immutable one.
type ByteArray struct {
	Bytes []byte
}

func NewByteArray(class *Class, bytes []byte) *Object {
	return &Object{Class: class, Payload: &ByteArray{Bytes: bytes}}
}

// StringData is the payload backing StringConcat/StringLength/
// StringSlice/StringEq — immutable, so operations that "mutate" a string
// (concat, slice) always allocate a fresh Object rather than writing
// through an existing one.
type StringData struct {
	S string
}

func NewString(class *Class, s string) *Object {
	return &Object{Class: class, Payload: &StringData{S: s}}
}
