package scheduler

import (
	"sync/atomic"

	"github.com/embervm/embervm/internal/process"
)

// dequeCapacity is the bounded size of each worker's local queue. spec.md
// §4.E specifies "capacity ~2048/ptr-size entries" — on a 64-bit (8-byte
// pointer) platform that resolves to 256 slots, which is what this
// constant hard-codes; the array is fixed-size specifically so pushes can
// overflow to the global queue instead of the deque ever needing to grow.
const dequeCapacity = 2048 / 8

// deque is a bounded, lock-free, single-producer/multiple-consumer
// work-stealing deque: the owning worker pushes and pops from the bottom
// (LIFO, cheap, uncontended); any other worker may steal from the top
// (FIFO, contended only against other thieves and the owner's own Pop).
// This is the classic Chase-Lev deque shape, modelled in Go idiom the
// teacher's `eventloop` package uses atomics for (FastState-style
// lock-free primitives, no third-party concurrency library), sized
// statically because spec.md requires a bounded capacity rather than a
// growable one.
type deque struct {
	buf  [dequeCapacity]*process.Process
	top  atomic.Int64 // stolen from here by other workers
	bottom atomic.Int64 // pushed/popped from here by the owner
}

// PushBottom adds p to the bottom of the deque. Only the owning worker
// calls this. Returns false if the deque is full — per spec.md §4.E's
// "Local-queue overflow on push: push to global instead; do not drop
// work", the caller must fall back to the global queue on a false return.
func (d *deque) PushBottom(p *process.Process) bool {
	b := d.bottom.Load()
	t := d.top.Load()
	if b-t >= dequeCapacity {
		return false
	}
	d.buf[b%dequeCapacity] = p
	d.bottom.Store(b + 1)
	return true
}

// PopBottom removes and returns the most recently pushed entry. Only the
// owning worker calls this.
func (d *deque) PopBottom() (*process.Process, bool) {
	b := d.bottom.Load()
	t := d.top.Load()
	if b <= t {
		return nil, false
	}
	b--
	d.bottom.Store(b)
	t = d.top.Load()
	if b < t {
		// A thief raced us and emptied the deque; restore bottom.
		d.bottom.Store(t)
		return nil, false
	}
	p := d.buf[b%dequeCapacity]
	if b == t {
		// Last element: race against concurrent thieves via CAS on top.
		if !d.top.CompareAndSwap(t, t+1) {
			d.bottom.Store(t + 1)
			return nil, false
		}
		d.bottom.Store(t + 1)
	}
	return p, true
}

// Steal removes and returns the oldest entry, for use by any worker other
// than the owner. Returns false if the deque appeared empty or a
// concurrent steal/pop won the race.
func (d *deque) Steal() (*process.Process, bool) {
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil, false
	}
	p := d.buf[t%dequeCapacity]
	if !d.top.CompareAndSwap(t, t+1) {
		return nil, false
	}
	return p, true
}

// Len reports an approximate current length; only exact when called by
// the owner with no concurrent stealers, which is how the scheduler's
// "move remaining/2 into own queue" logic uses it.
func (d *deque) Len() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b <= t {
		return 0
	}
	return int(b - t)
}
