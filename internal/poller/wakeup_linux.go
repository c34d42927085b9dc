//go:build linux

package poller

import "golang.org/x/sys/unix"

// wakeFD is an eventfd registered into the poller's own epoll set so
// Close can interrupt a blocked Poll(-1) immediately, rather than making
// every caller poll with a short timeout and check a stop flag. Grounded
// directly on the teacher's `eventloop/wakeup_linux.go` eventfd-based
// wake mechanism.
type wakeFD struct {
	fd int32
}

func newWakeFD() (*wakeFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &wakeFD{fd: int32(fd)}, nil
}

func (w *wakeFD) signal() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(int(w.fd), buf[:])
}

// Ready implements Target: draining the eventfd is all a wake-up needs.
func (w *wakeFD) Ready(Events) {
	var buf [8]byte
	for {
		if _, err := unix.Read(int(w.fd), buf[:]); err != nil {
			break
		}
	}
}

func (w *wakeFD) close() error {
	return unix.Close(int(w.fd))
}
