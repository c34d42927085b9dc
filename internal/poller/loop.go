//go:build linux

package poller

import (
	"sync"

	"github.com/embervm/embervm/internal/process"
)

// Submitter is the one thing the poller needs from the scheduler: a way
// to push a ready process back onto the runnable set (spec.md §4.G: "the
// poller pushes the process onto the pool's global queue and signals a
// sleeping worker" — Submit is expected to do both, as
// scheduler.Pool.Submit does).
type Submitter interface {
	Submit(*process.Process)
}

// waiter is a registered process awaiting readiness on one fd.
type waiter struct {
	proc *process.Process
	fd   int
	loop *Loop
}

func (w *waiter) Ready(events Events) {
	w.loop.deliver(w, events)
}

// Loop owns a NetworkPoller plus the background goroutine that calls
// Poll(-1) in a tight loop, dispatching readiness back to the scheduler.
// Grounded on the teacher's `eventloop` driver pattern: a single
// goroutine alternating between blocking syscall wait and inline
// callback dispatch, interrupted on shutdown via an eventfd rather than a
// polling timeout.
type Loop struct {
	poller *NetworkPoller
	wake   *wakeFD
	submit Submitter

	mu      sync.Mutex
	waiters map[int]*waiter // fd -> waiter, for FutureGet/FutureGetFor resolution

	done chan struct{}
}

// NewLoop constructs and starts the poller's background goroutine.
func NewLoop(submit Submitter) (*Loop, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}
	wake, err := newWakeFD()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	l := &Loop{
		poller:  p,
		wake:    wake,
		submit:  submit,
		waiters: make(map[int]*waiter),
		done:    make(chan struct{}),
	}
	if err := p.Register(int(wake.fd), EventRead, wake); err != nil {
		_ = wake.close()
		_ = p.Close()
		return nil, err
	}

	go l.run()
	return l, nil
}

// RegisterWait arms fd on behalf of proc; when it becomes ready the
// process is resubmitted to the scheduler (unblocking whatever
// FuturePoll/FutureGet/FutureGetFor instruction it suspended on).
func (l *Loop) RegisterWait(fd int, events Events, proc *process.Process) error {
	w := &waiter{proc: proc, fd: fd}
	w.loop = l
	l.mu.Lock()
	l.waiters[fd] = w
	l.mu.Unlock()
	if err := l.poller.Register(fd, events, w); err != nil {
		l.mu.Lock()
		delete(l.waiters, fd)
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *Loop) deliver(w *waiter, events Events) {
	l.mu.Lock()
	delete(l.waiters, w.fd)
	l.mu.Unlock()
	_ = l.poller.Unregister(w.fd)
	l.submit.Submit(w.proc)
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.done:
			return
		default:
		}
		if _, err := l.poller.Poll(-1); err != nil {
			return
		}
	}
}

// Close stops the background goroutine and releases the epoll/eventfd
// descriptors.
func (l *Loop) Close() error {
	select {
	case <-l.done:
	default:
		l.wake.signal()
	}
	_ = l.poller.Close()
	return l.wake.close()
}
