//go:build linux

package fiberwork

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux epoll-backed readinessPoller, grounded on the
// teacher's FastPoller (poller_linux.go) but keyed by a map instead of a
// fixed-size array, since a carrier's registered FDs are not expected to
// be dense.
type epollPoller struct {
	epfd     int
	mu       sync.RWMutex
	fds      map[int]*delegation
	eventBuf [256]unix.EpollEvent
	closed   bool
}

func newEpollPoller() *epollPoller {
	return &epollPoller{fds: make(map[int]*delegation)}
}

func (p *epollPoller) Init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	return nil
}

func (p *epollPoller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return unix.Close(p.epfd)
}

func (p *epollPoller) RegisterFD(fd int, events IOEvents, d *delegation) error {
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.fds[fd] = d
	p.mu.Unlock()
	return nil
}

func (p *epollPoller) UnregisterFD(fd int) error {
	p.mu.Lock()
	delete(p.fds, fd)
	p.mu.Unlock()
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// PollAndDispatch blocks in EpollWait for up to timeoutMs milliseconds
// (negative means indefinitely), then invokes fn for every fd reported
// ready whose delegation is still registered.
func (p *epollPoller) PollAndDispatch(timeoutMs int, fn func(*delegation, IOEvents)) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	dispatched := 0
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		p.mu.RLock()
		d, ok := p.fds[fd]
		p.mu.RUnlock()
		if !ok {
			continue
		}
		fn(d, epollToEvents(p.eventBuf[i].Events))
		dispatched++
	}
	return dispatched, nil
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}

// newNotifyFD creates a non-blocking Linux eventfd used by a carrier's
// notify() to wake another carrier parked in EpollWait, per §4.5's
// "remote spawn posts a message then signals the destination carrier's
// notify fd" contract.
func newNotifyFD() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

// writeNotify signals a notify fd once. Safe to call from any goroutine.
func writeNotify(fd int) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := writeFD(fd, buf[:])
	return err
}

// drainNotifyFD empties a notify fd's accumulated counter after it wakes
// an EpollWait, so it does not immediately re-fire.
func drainNotifyFD(fd int) {
	var buf [8]byte
	_, _ = readFD(fd, buf[:])
}
