package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/embervm/embervm/internal/process"
)

// pendingTimeout is one scheduled wake-up: a suspended process, and the
// time it should be pushed back onto the global queue. Grounded directly
// on the teacher's `eventloop` timer type (`loop.go`'s `timer{when, task}`),
// adapted from "scheduled closure" to "scheduled process wake-up", per
// spec.md §4.I's "Cancellation and timeouts" paragraph: ProcessSuspend and
// FutureGetFor both accept an optional duration, serviced by this single
// timeout worker rather than one `time.Timer` per suspension.
type pendingTimeout struct {
	when time.Time
	proc *process.Process
}

// timeoutHeap is a min-heap of pendingTimeouts ordered by wake time,
// implementing heap.Interface exactly as the teacher's timerHeap does.
type timeoutHeap []pendingTimeout

func (h timeoutHeap) Len() int           { return len(h) }
func (h timeoutHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h timeoutHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *timeoutHeap) Push(x any) { *h = append(*h, x.(pendingTimeout)) }

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// timeoutWorker is the single background goroutine that wakes
// ProcessSuspend/FutureGetFor timeouts and requeues the corresponding
// process.
type timeoutWorker struct {
	pool *Pool

	mu      sync.Mutex
	heap    timeoutHeap
	wakeCh  chan struct{}
	stopCh  chan struct{}
}

func newTimeoutWorker(p *Pool) *timeoutWorker {
	return &timeoutWorker{
		pool:   p,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Schedule arranges for proc to be pushed onto the global queue after d
// elapses. Safe to call from any goroutine (the interpreter, servicing a
// ProcessSuspend/FutureGetFor instruction with a duration operand).
func (t *timeoutWorker) Schedule(proc *process.Process, d time.Duration) {
	t.mu.Lock()
	heap.Push(&t.heap, pendingTimeout{when: time.Now().Add(d), proc: proc})
	t.mu.Unlock()
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

func (t *timeoutWorker) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		t.mu.Lock()
		var wait time.Duration
		if len(t.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(t.heap[0].when)
			if wait < 0 {
				wait = 0
			}
		}
		t.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			t.fireDue()
		case <-t.wakeCh:
			// Loop around: a new, possibly earlier, deadline was added.
		case <-t.stopCh:
			return
		}
	}
}

func (t *timeoutWorker) fireDue() {
	now := time.Now()
	var due []*process.Process

	t.mu.Lock()
	for len(t.heap) > 0 && !t.heap[0].when.After(now) {
		due = append(due, heap.Pop(&t.heap).(pendingTimeout).proc)
	}
	t.mu.Unlock()

	for _, p := range due {
		t.pool.Submit(p)
	}
}

func (t *timeoutWorker) stop() {
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
}
