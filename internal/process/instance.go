package process

import "github.com/embervm/embervm/internal/value"

// Instance is the payload of a process-class object: the actor state
// (mailbox, task queue, run-lock) plus the same flat field-slot layout a
// plain object has, since a process class can declare its own fields
// alongside the implicit mailbox (spec.md §3's Class entry: "process
// classes additionally carry a mailbox").
type Instance struct {
	Proc   *Process
	Fields []value.Value
}

func NewInstance(class *value.Class, proc *Process) *Instance {
	return &Instance{Proc: proc, Fields: make([]value.Value, class.FieldCount)}
}
