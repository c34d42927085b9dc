package process

import "github.com/embervm/embervm/internal/value"

// Closure is the payload of a closure object: the method it runs and the
// variables it captured at creation time, consulted by the CallClosure
// instruction (spec.md §4.I). Lives in this package, not internal/value,
// because it embeds *Method.
type Closure struct {
	Method   *Method
	Captured []value.Value
}
