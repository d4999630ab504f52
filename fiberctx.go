package fiberwork

import "sync"

// fiberContext is this module's stand-in for §6's raw context-switch
// primitive (context_init/context_prepare/context_switch). Go exposes no
// user-space register-save/restore API, so the "exactly one of {carrier,
// fiber} runs at a time" invariant of §5 is reproduced with a dedicated
// goroutine per fiber, handed the baton over a pair of unbuffered
// channels. This is the one component with no direct teacher file to
// imitate (the teacher's own "coroutines" are plain promise-chained
// goroutines, not fibers); it is grounded instead on the general
// goroutine+channel fiber-emulation pattern used throughout the Go
// ecosystem for green-thread libraries.
type fiberContext struct {
	resume    chan struct{}
	yield     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newFiberContext() *fiberContext {
	return &fiberContext{
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// start corresponds to context_prepare: it arranges for the first
// switchTo to enter trampoline. trampoline receives false if the context
// was closed (runtime shutdown) before ever being resumed.
func (c *fiberContext) start(trampoline func(resumed bool)) {
	go func() {
		select {
		case <-c.resume:
			trampoline(true)
		case <-c.closed:
			trampoline(false)
		}
	}()
}

// switchTo is called by the carrier to resume the fiber (context_switch
// into it), blocking until the fiber yields back or exits.
func (c *fiberContext) switchTo() {
	select {
	case c.resume <- struct{}{}:
		<-c.yield
	case <-c.closed:
	}
}

// parkAndWait is called from within the fiber's own goroutine to switch
// back to the carrier's saved context and block for the next resumption.
// It reports false if the context was closed instead of resumed, in which
// case the trampoline must return immediately without running user code
// again.
func (c *fiberContext) parkAndWait() bool {
	c.yield <- struct{}{}
	select {
	case <-c.resume:
		return true
	case <-c.closed:
		return false
	}
}

// finish performs the final switch back to the carrier when the fiber is
// about to die; the fiber goroutine returns immediately afterward and is
// never resumed again.
func (c *fiberContext) finish() {
	c.yield <- struct{}{}
}

// close aborts the fiber's goroutine unconditionally, used only during
// stack-allocator ruin (§3 scheduler DYING teardown). Safe to call even if
// the fiber was never resumed, is parked, or has already finished.
func (c *fiberContext) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
