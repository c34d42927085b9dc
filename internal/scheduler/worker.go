package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/stackpool"
)

// notBlocking is the blocked_at sentinel meaning "not currently in a
// blocking operation" (spec.md §4.F: NOT_BLOCKING=0).
const notBlocking uint64 = 0

// Worker is one scheduler thread: a local work-stealing deque, a
// worker-local stack pool, and the blocked_at epoch field the monitor
// inspects for blocking-thread replacement.
type Worker struct {
	id   int
	pool *Pool

	local *deque
	stack stackpool.Pool

	// blockedAt is written (release) by this worker before it enters a
	// blocking operation and CAS-ed back to notBlocking on return
	// (spec.md §4.F). The monitor may concurrently CAS it to notBlocking
	// to mark this worker replaced.
	blockedAt atomic.Uint64

	// isBackup is true for a worker from the reserve pool; such workers
	// park until the monitor assigns them a replaced primary's identity
	// and local queue.
	isBackup atomic.Bool

	// assigned is true once a backup worker has taken over a slot (or,
	// trivially, always true for a worker started as primary).
	assigned atomic.Bool

	done chan struct{}
}

func newWorker(id int, pool *Pool, backup bool) *Worker {
	w := &Worker{
		id:    id,
		pool:  pool,
		local: &deque{},
		done:  make(chan struct{}),
	}
	w.isBackup.Store(backup)
	w.assigned.Store(!backup)
	return w
}

// BeginBlocking records the current epoch into blocked_at, making this
// worker eligible for monitor replacement if it does not return before
// the epoch advances again. A caller invokes this immediately before a
// syscall or other long-running operation, and EndBlocking immediately
// after; within this module only the scheduler's tests call the pair.
func (w *Worker) BeginBlocking() {
	epoch := w.pool.epoch.Load()
	if epoch == notBlocking {
		epoch = 1 // avoid colliding with the sentinel on epoch 0
	}
	w.blockedAt.Store(epoch)
	w.pool.onBeginBlocking(w)
}

// EndBlocking resets blocked_at to notBlocking. If it already held
// notBlocking, the monitor's CAS claimed this worker as blocked and
// replaced it with a backup; the worker must reschedule its in-flight
// process (if any) onto the global queue and transition itself to backup
// role, per spec.md §4.F.
func (w *Worker) EndBlocking(inFlight *process.Process) {
	if w.blockedAt.Swap(notBlocking) != notBlocking {
		return
	}
	// Replaced: our local queue now belongs to whichever backup took
	// over, so any still-running process must go to the global queue
	// rather than a local enqueue, which could strand it.
	if inFlight != nil {
		w.pool.global.Push(inFlight)
	}
	w.becomeBackup()
}

func (w *Worker) becomeBackup() {
	w.isBackup.Store(true)
	w.assigned.Store(false)
	w.local = &deque{}
}

// run is the worker's main loop, implementing the six-step iteration
// from spec.md §4.E verbatim.
func (w *Worker) run() {
	defer close(w.done)

	for w.pool.alive.Load() {
		if hook := w.pool.testHookOnIteration(); hook != nil {
			hook(w.id)
		}

		// Step 1: parked backups wait for assignment.
		if w.isBackup.Load() && !w.assigned.Load() {
			// A worker demoted by EndBlocking may have consumed a
			// global-queue wake-up on its way here; pass it on.
			w.pool.wakeOne()
			w.pool.parkBackup(w)
			continue
		}

		p, ok := w.local.PopBottom() // step 2
		if !ok {
			p, ok = w.steal() // step 3
		}

		w.stack.ShrinkIdle() // step 4: best moment, about to possibly sleep

		if !ok {
			var extra []*process.Process
			p, extra = w.pool.global.PopHalf(nil) // step 5
			ok = p != nil
			for _, e := range extra {
				if !w.local.PushBottom(e) {
					w.pool.global.Push(e)
				}
			}
		}

		if p == nil {
			if !w.pool.alive.Load() {
				return
			}
			w.pool.global.Wait() // step 6
			continue
		}

		w.runProcess(p)
	}
}

// steal implements step 3: try each other worker's queue in ring order
// (or the test-injected order), moving a batch on success.
func (w *Worker) steal() (*process.Process, bool) {
	order := w.pool.stealOrder(w.id)
	for _, victimID := range order {
		victim := w.pool.workers[victimID]
		if victim == nil || victim == w {
			continue
		}
		p, ok := victim.local.Steal()
		if !ok {
			continue
		}
		// Move up to min(remaining/2, StealLimit) more into our own
		// queue, per spec.md §4.E.
		remaining := victim.local.Len()
		n := remaining / 2
		if n > StealLimit {
			n = StealLimit
		}
		for i := 0; i < n; i++ {
			extra, ok := victim.local.Steal()
			if !ok {
				break
			}
			if !w.local.PushBottom(extra) {
				w.pool.global.Push(extra)
				break
			}
		}
		return p, true
	}
	return nil, false
}

// runProcess acquires p's run-lock, advances its next task through the
// configured Runner, and applies the post-yield Action, per spec.md
// §4.D/§4.B.
func (w *Worker) runProcess(p *process.Process) {
	if !p.RunLock.TryLock() {
		// Another worker already holds the lock (should not happen for
		// anything reachable via the queues, which only ever contain
		// processes whose run-lock is free — spec.md §3 invariant). Put
		// it back rather than block.
		w.pool.global.Push(p)
		return
	}
	defer p.RunLock.Unlock()

	task, ok := p.ReceiveNextTask()
	if !ok {
		return
	}

	result := w.pool.runner().Run(p, task)
	p.SetPreferredWorker(int32(w.id))

	switch result.Reason {
	case process.YieldFinishTask:
		action := p.FinishTask()
		if action == process.ActionTerminate {
			// Process is dead: nothing further to schedule. Its task
			// frame stacks are plain slices on process.Task; none was
			// taken from w.stack, so nothing is returned to it.
			return
		}
		if !p.Idle() {
			w.requeue(p)
		}
	case process.YieldSuspend, process.YieldFutureWait:
		// A timed suspension (ProcessSuspend or FutureGetFor with a
		// positive duration) is requeued by the timeout worker once the
		// duration elapses; otherwise the process stays parked until
		// whatever it is waiting on requeues it.
		if result.SuspendDuration > 0 {
			w.pool.timeout.Schedule(p, time.Duration(result.SuspendDuration))
		}
	case process.YieldSendWait, process.YieldBuiltinWouldBlock:
		// Parked: the process re-enters the runnable queues only when
		// whatever it is waiting on (poller, reply) requeues it. Nothing
		// to do here.
	case process.YieldReduceExhausted:
		w.requeue(p)
	case process.YieldReturn:
		if task.HasThrown {
			// An unhandled Throw unwound all the way to the task's entry
			// frame: spec.md §7 treats that the same as an explicit
			// Panic — it marks the process terminating, not just this
			// one task finished. Route it through FinishTask so any
			// waiting SendMessage(wait=true) caller still gets its reply.
			task.Terminating = true
			p.FinishTask()
			return
		}
		if !p.Idle() {
			w.requeue(p)
		}
	case process.YieldExit:
		if !p.Idle() {
			w.requeue(p)
		}
	}
}

// requeue pushes p back onto this worker's local queue, falling back to
// the global queue on overflow, and applies the wake-semantics rule from
// spec.md §4.E ("a local push that brings the local queue above one
// entry and at least one worker is parked: signal one sleeping worker").
func (w *Worker) requeue(p *process.Process) {
	if w.local.PushBottom(p) {
		if w.local.Len() > 1 {
			w.pool.wakeOne()
		}
		return
	}
	w.pool.global.Push(p)
}
