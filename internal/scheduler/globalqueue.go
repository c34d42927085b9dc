package scheduler

import (
	"sync"

	"github.com/embervm/embervm/internal/process"
)

const globalQueueChunkSize = 128

var globalQueueChunkPool = sync.Pool{
	New: func() any { return &globalQueueChunk{} },
}

type globalQueueChunk struct {
	items    [globalQueueChunkSize]*process.Process
	next     *globalQueueChunk
	readPos  int
	writePos int
}

func newGlobalQueueChunk() *globalQueueChunk {
	c := globalQueueChunkPool.Get().(*globalQueueChunk)
	c.next = nil
	c.readPos = 0
	c.writePos = 0
	return c
}

func returnGlobalQueueChunk(c *globalQueueChunk) {
	for i := 0; i < c.writePos; i++ {
		c.items[i] = nil
	}
	c.next = nil
	c.readPos = 0
	c.writePos = 0
	globalQueueChunkPool.Put(c)
}

// globalQueue is the mutex-guarded overflow queue described in spec.md
// §4.E: the target for local-queue overflow pushes, process wake-ups from
// other threads, and poller notifications. It also owns the condition
// variable workers park on when they find no local, stolen, or global
// work (step 6 of the worker loop).
//
// Grounded on the teacher's `eventloop/ingress.go` ChunkedIngress, adapted
// from "queue of closures behind the loop's own mutex" to "queue of
// runnable processes behind a dedicated mutex+cond", since unlike the
// teacher's single-threaded loop, many scheduler workers push and pop
// concurrently here.
type globalQueue struct {
	mu     sync.Mutex
	cond   sync.Cond
	head   *globalQueueChunk
	tail   *globalQueueChunk
	length int
	closed bool
}

func newGlobalQueue() *globalQueue {
	q := &globalQueue{}
	q.cond.L = &q.mu
	return q
}

// Push enqueues p and reports the queue length immediately after the
// push, so the caller can apply spec.md §4.E's wake-semantics rule
// ("single message" vs "wake all" depending on how much was just added).
func (q *globalQueue) Push(p *process.Process) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushLocked(p)
	n := q.length
	q.cond.Signal()
	return n
}

// PushBulk enqueues multiple processes (e.g. half of a stolen-from
// worker's local queue during the monitor's replacement handoff, or a
// burst of poller-ready processes) and wakes every parked worker, per
// spec.md §4.E's "bulk enqueue" wake rule.
func (q *globalQueue) PushBulk(ps []*process.Process) {
	if len(ps) == 0 {
		return
	}
	q.mu.Lock()
	for _, p := range ps {
		q.pushLocked(p)
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *globalQueue) pushLocked(p *process.Process) {
	if q.tail == nil {
		q.tail = newGlobalQueueChunk()
		q.head = q.tail
	}
	if q.tail.writePos == globalQueueChunkSize {
		next := newGlobalQueueChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.items[q.tail.writePos] = p
	q.tail.writePos++
	q.length++
}

// Pop removes and returns one process, non-blocking.
func (q *globalQueue) Pop() (*process.Process, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *globalQueue) popLocked() (*process.Process, bool) {
	if q.head == nil || q.head.readPos >= q.head.writePos {
		if q.head == nil {
			return nil, false
		}
		if q.head == q.tail {
			q.head.readPos = 0
			q.head.writePos = 0
			return nil, false
		}
		old := q.head
		q.head = q.head.next
		returnGlobalQueueChunk(old)
		if q.head.readPos >= q.head.writePos {
			return nil, false
		}
	}
	p := q.head.items[q.head.readPos]
	q.head.items[q.head.readPos] = nil
	q.head.readPos++
	q.length--
	return p, true
}

// PopHalf pops one process and, if at least two more remain, also drains
// up to half of the remaining entries into out — matching step 5 of the
// worker loop ("pop one; if >= 2 more remain, take up to half into own
// queue").
func (q *globalQueue) PopHalf(out []*process.Process) (*process.Process, []*process.Process) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.popLocked()
	if !ok {
		return nil, out
	}
	if q.length >= 2 {
		n := q.length / 2
		for i := 0; i < n; i++ {
			extra, ok := q.popLocked()
			if !ok {
				break
			}
			out = append(out, extra)
		}
	}
	return p, out
}

// Len reports the current queue length.
func (q *globalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Wait parks the calling worker until the queue is non-empty or the
// queue has been closed (pool termination). Returns false if woken by
// Close rather than by new work.
func (q *globalQueue) Wait() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.length == 0 && !q.closed {
		q.cond.Wait()
	}
	return !q.closed
}

// Signal wakes exactly one parked waiter, without pushing anything. Used
// by a worker that just requeued work onto its own local queue and wants
// to pull another worker out of the global sleep, per spec.md §4.E's
// wake-semantics rule.
func (q *globalQueue) Signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// Close implements spec.md §4.E's termination broadcast for the global
// condition variable: every parked waiter wakes and observes closed.
func (q *globalQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
