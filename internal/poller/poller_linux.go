//go:build linux

// Package poller bridges process-level asynchronous I/O waits to the
// scheduler's global queue (spec.md §4.G): a process registers a file
// descriptor plus itself; on readiness, the poller pushes the process
// back onto the runnable set and wakes a sleeping worker. From the
// scheduler's standpoint the poller is just another producer.
package poller

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxFDs bounds direct-indexed fd lookup, matching the teacher's
// FastPoller sizing.
const maxFDs = 65536

// Events is a bitmask of readiness conditions, mirroring the teacher's
// IOEvents type.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
	EventHangup
)

var (
	ErrFDOutOfRange        = errors.New("poller: fd out of range")
	ErrFDAlreadyRegistered = errors.New("poller: fd already registered")
	ErrFDNotRegistered     = errors.New("poller: fd not registered")
	ErrClosed              = errors.New("poller: closed")
)

// Target is what a ready fd notifies: the waiting process, delivered to
// the scheduler's global queue, plus its own bookkeeping for which
// interpreter-level future it should resolve.
type Target interface {
	// Ready is invoked with the observed events once, from the poller's
	// own goroutine; implementations must not block here — typically
	// this just records the result and submits the process back onto
	// the scheduler (spec.md §4.G).
	Ready(events Events)
}

type fdInfo struct {
	target Target
	events Events
	active bool
}

// NetworkPoller manages epoll-based readiness notification for
// process-owned file descriptors. Grounded directly on the teacher's
// `eventloop.FastPoller`: direct array indexing by fd (no map, O(1)
// lookup), an RWMutex guarding the fds array, and a version counter so a
// concurrent Register/Unregister during EpollWait is detected and its
// stale results discarded rather than raced.
type NetworkPoller struct {
	epfd     int32
	version  atomic.Uint64
	eventBuf [256]unix.EpollEvent
	fds      [maxFDs]fdInfo
	fdMu     sync.RWMutex
	closed   atomic.Bool
}

// New creates and initializes an epoll instance.
func New() (*NetworkPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &NetworkPoller{epfd: int32(epfd)}, nil
}

// Close closes the epoll instance. No further Register/Poll calls are
// valid afterward.
func (p *NetworkPoller) Close() error {
	p.closed.Store(true)
	return unix.Close(int(p.epfd))
}

// Register arms fd for the given events and associates it with target.
func (p *NetworkPoller) Register(fd int, events Events, target Target) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}

	p.fdMu.Lock()
	if p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = fdInfo{target: target, events: events, active: true}
	p.version.Add(1)
	p.fdMu.Unlock()

	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.fdMu.Lock()
		p.fds[fd] = fdInfo{}
		p.fdMu.Unlock()
		return err
	}
	return nil
}

// Unregister disarms fd.
func (p *NetworkPoller) Unregister(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	p.fdMu.Lock()
	if !p.fds[fd].active {
		p.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	p.fds[fd] = fdInfo{}
	p.version.Add(1)
	p.fdMu.Unlock()
	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
}

// Poll waits up to timeoutMs for readiness and dispatches Ready callbacks
// inline. Returns the number of events processed.
func (p *NetworkPoller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	v := p.version.Load()
	n, err := unix.EpollWait(int(p.epfd), p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if p.version.Load() != v {
		// Registrations changed mid-wait; discard rather than dispatch
		// against a potentially-stale fd table.
		return 0, nil
	}

	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxFDs {
			continue
		}
		p.fdMu.RLock()
		info := p.fds[fd]
		p.fdMu.RUnlock()
		if info.active && info.target != nil {
			info.target.Ready(epollToEvents(p.eventBuf[i].Events))
		}
	}
	return n, nil
}

func eventsToEpoll(events Events) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) Events {
	var events Events
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&(unix.EPOLLERR) != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
