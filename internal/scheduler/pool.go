package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/embervm/embervm/internal/process"
)

// Pool is the fixed-size scheduler described by spec.md §4.E: a set of
// primary workers each owning a bounded local deque, a set of backup
// workers held in reserve, and a single mutex-guarded global queue
// serving as overflow, wake-up target, and poller sink.
type Pool struct {
	cfg Config

	workers []*Worker
	global  *globalQueue

	epoch atomic.Uint64
	alive atomic.Bool

	backupMu      sync.Mutex
	backupCond    *sync.Cond
	parkedBackups []*Worker

	monitor *monitor
	epochWk *epochWorker
	timeout *timeoutWorker

	wg sync.WaitGroup
}

// New constructs a Pool and starts its primary workers, backup workers,
// monitor thread, epoch thread, and timeout worker. Call Shutdown to stop
// everything and unwind every loop.
func New(opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Runner == nil {
		panic("scheduler: Runner must be set via WithRunner")
	}

	total := cfg.Workers + cfg.Backups
	p := &Pool{
		cfg:    cfg,
		global: newGlobalQueue(),
	}
	p.alive.Store(true)
	p.backupCond = sync.NewCond(&p.backupMu)

	p.workers = make([]*Worker, total)
	for i := 0; i < cfg.Workers; i++ {
		p.workers[i] = newWorker(i, p, false)
	}
	for i := cfg.Workers; i < total; i++ {
		p.workers[i] = newWorker(i, p, true)
	}

	p.monitor = newMonitor(p)
	p.epochWk = newEpochWorker(p)
	p.timeout = newTimeoutWorker(p)

	p.wg.Add(len(p.workers) + 2)
	for _, w := range p.workers {
		go func(w *Worker) {
			defer p.wg.Done()
			w.run()
		}(w)
	}
	go func() { defer p.wg.Done(); p.monitor.run() }()
	go func() { defer p.wg.Done(); p.epochWk.run() }()
	p.wg.Add(1)
	go func() { defer p.wg.Done(); p.timeout.run() }()

	return p
}

// Submit enqueues a newly allocated or newly-woken process onto the
// global queue, applying the single-wake rule from spec.md §4.E.
func (p *Pool) Submit(proc *process.Process) {
	p.global.Push(proc)
}

// Shutdown implements spec.md §4.E's termination sequence: clear the
// alive flag, then broadcast on all three condition variables (global
// sleep, backup park, monitor deep-sleep) so every loop unwinds, and
// wait for them to exit.
func (p *Pool) Shutdown() {
	p.alive.Store(false)
	p.global.Close()
	p.backupMu.Lock()
	p.backupCond.Broadcast()
	p.backupMu.Unlock()
	p.monitor.wake()
	p.timeout.stop()
	p.epochWk.stop()
	p.wg.Wait()
}

func (p *Pool) runner() process.Runner { return p.cfg.Runner }

func (p *Pool) wakeOne() { p.global.Signal() }

// stealOrder returns the ring of worker indices to probe, starting at
// self_id+1, per spec.md §4.E's determinism note — or the test-injected
// order if one was configured.
func (p *Pool) stealOrder(selfID int) []int {
	if p.cfg.testHooks != nil && p.cfg.testHooks.stealOrder != nil {
		return p.cfg.testHooks.stealOrder(selfID, len(p.workers))
	}
	return defaultStealOrder(selfID, len(p.workers))
}

func (p *Pool) testHookOnIteration() func(int) {
	if p.cfg.testHooks == nil {
		return nil
	}
	return p.cfg.testHooks.onIteration
}

// parkBackup blocks an unassigned backup worker until the monitor
// assigns it a replaced primary's slot, or the pool shuts down.
func (p *Pool) parkBackup(w *Worker) {
	p.backupMu.Lock()
	p.parkedBackups = append(p.parkedBackups, w)
	for !w.assigned.Load() && p.alive.Load() {
		p.backupCond.Wait()
	}
	p.backupMu.Unlock()
}

// assignBackup implements the handoff half of spec.md §4.F's replacement
// protocol: pop one parked backup (if any) and have it assume the
// replaced worker's id and local queue.
func (p *Pool) assignBackup(replacedID int) bool {
	p.backupMu.Lock()
	defer p.backupMu.Unlock()

	if len(p.parkedBackups) == 0 {
		return false
	}
	n := len(p.parkedBackups)
	backup := p.parkedBackups[n-1]
	p.parkedBackups = p.parkedBackups[:n-1]

	replaced := p.workers[replacedID]

	// backup still occupies its own construction-time slot if it has
	// never been promoted before: p.workers[backup.id] == backup. Clear
	// it so that slot and replacedID don't end up aliasing the same
	// *Worker after the reassignment below. A backup that has already
	// been promoted and later replaced in turn has no such slot — its
	// old index was already overwritten by whichever worker replaced
	// it — so the guard is a no-op for that case rather than clobbering
	// someone else's live entry.
	if oldIdx := backup.id; p.workers[oldIdx] == backup {
		p.workers[oldIdx] = nil
	}

	backup.id = replacedID
	backup.local = replaced.local
	backup.isBackup.Store(false)
	backup.assigned.Store(true)
	p.workers[replacedID] = backup

	p.backupCond.Broadcast()
	return true
}

// onBeginBlocking notifies the monitor's deep-sleep gate of the first
// blocking event after an idle stretch, per spec.md §4.F ("workers
// entering the blocking state after a deep sleep must notify it, paying
// the mutex cost only on this first blocking event").
func (p *Pool) onBeginBlocking(w *Worker) {
	p.monitor.notifyBlocking()
}
