// Package fiberwork's readiness polling support.
//
// A carrier's event bus waits on readiness for any fiber that delegated
// itself to an I/O wait (§4.2). This file declares the platform-neutral
// interface; poller_linux.go supplies the epoll-backed implementation.
package fiberwork

// IOEvents is the set of readiness conditions a caller can wait on,
// mirroring the teacher's FastPoller event bits but trimmed to what
// epoll itself reports.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// readinessPoller is the interface bus.go programs against; poller_linux.go
// supplies the epoll-backed implementation. Registrations are keyed by fd
// and resolve directly to the delegation describing the waiting fiber, a
// map-keyed replacement for the teacher's array-indexed FastPoller (which
// assumed a bounded, densely-populated FD space suited to a 65536-entry
// table; a per-carrier fiber runtime has no such assumption).
type readinessPoller interface {
	Init() error
	Close() error
	RegisterFD(fd int, events IOEvents, d *delegation) error
	UnregisterFD(fd int) error
	// PollAndDispatch blocks up to timeoutMs (or indefinitely if negative)
	// and invokes fn once per ready delegation. It returns the number of
	// delegations dispatched.
	PollAndDispatch(timeoutMs int, fn func(*delegation, IOEvents)) (int, error)
}
