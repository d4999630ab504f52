package fiberwork

// Fiber is one user-space task multiplexed onto a carrier, per §3. It is
// never constructed directly by callers; Scheduler.materialize builds one
// inside a freshly allocated stackMetamark.
type Fiber struct {
	sched *Scheduler
	ctx   *fiberContext
	stack *stackMetamark

	entry func(arg any)
	arg   any

	status fiberState

	// listSlot intrusive linkage for the scheduler's RUNNING/DYING queues
	// (§3's "intrusive doubly-linked queue").
	prev, next *Fiber

	// delegation is non-nil while the fiber is LIMBO and waiting on a
	// timer or readiness event; cleared once the fiber is moved back to
	// RUNNING.
	delegation *delegation
}

// newFiber wires a fresh Fiber into its owning stack metamark, ready for
// trampoline startup.
func newFiber(sched *Scheduler, stack *stackMetamark, entry func(arg any), arg any) *Fiber {
	f := stack.controlBlock()
	f.sched = sched
	f.stack = stack
	f.entry = entry
	f.arg = arg
	f.status = newFiberState()
	f.ctx = newFiberContext()
	f.prev, f.next = nil, nil
	f.delegation = nil
	f.ctx.start(f.trampoline)
	return f
}

// trampoline is the body run by the fiber's dedicated goroutine. It is the
// Go-idiomatic analogue of the raw assembly trampoline described in §6: on
// first resumption it runs entry(arg) to completion, then — per §4.2's
// reincarnation loop — goes to LIMBO and synchronously cherry-picks the
// scheduler's pending request queue. Finding one, it rebinds its entry
// fields in place and keeps running on this same goroutine and stack,
// never touching the DYING queue. Only once no request is pending does it
// mark itself DYING and switch back to the carrier for good. If the
// context is torn down (resumed == false, i.e. runtime shutdown) before
// the fiber ever ran, entry is never invoked.
//
// This is safe without additional locking: the owning carrier is blocked
// inside fiberContext.switchTo for the whole of this loop, per doc.go's
// concurrency model, so nothing else touches s.requests concurrently.
func (f *Fiber) trampoline(resumed bool) {
	if !resumed {
		return
	}
	f.status.store(fiberRunning)
	f.entry(f.arg)
	for {
		f.status.store(fiberLimbo)
		req, ok := f.sched.requests.pop()
		if !ok {
			break
		}
		f.rebind(req)
		f.sched.metrics.stacksReincarnated.AddAcqRel(1)
		f.status.store(fiberRunning)
		f.entry(f.arg)
	}
	f.status.store(fiberDying)
	f.ctx.finish()
}

// rebind installs a new entry/argument pair onto this fiber's control
// block, reusing its stack and goroutine rather than allocating a fresh
// one. Only callable from within the fiber's own trampoline after user
// entry has returned, per §9's reincarnation redesign.
func (f *Fiber) rebind(req spawnRequest) {
	f.entry = req.entrance
	f.arg = req.argument
}

// Spawn requests a new fiber on behalf of the currently running one,
// exactly as Runtime.Spawn does for external callers, per §4.5. It is the
// method fiber bodies call to fan out work (uthread_create from inside a
// uthread, per the GLOSSARY).
func (f *Fiber) Spawn(entry func(arg any), arg any) (SpawnResult, error) {
	return f.sched.runtime.spawn(f.sched.index, entry, arg)
}

// Yield suspends the calling fiber and returns control to its carrier
// without any pending delegation, allowing the scheduler to round-robin to
// the next RUNNING fiber. It reports false if the runtime was torn down
// while the fiber was parked, in which case the fiber must return from its
// entry function immediately.
func (f *Fiber) Yield() bool {
	f.status.store(fiberLimbo)
	resumed := f.ctx.parkAndWait()
	if resumed {
		f.status.store(fiberRunning)
	}
	return resumed
}

// Sleep suspends the calling fiber until durationMs milliseconds have
// elapsed, per §4.1's timer delegation. It reports false if the runtime
// was torn down before the timer fired.
func (f *Fiber) Sleep(durationMs int64) bool {
	t := &fiberTimer{expiryMs: nowMs() + durationMs, fiber: f}
	f.delegation = newTimedDelegation(f, t)
	f.sched.timers.insert(t)
	f.status.store(fiberLimbo)
	resumed := f.ctx.parkAndWait()
	if resumed {
		f.status.store(fiberRunning)
	} else {
		f.sched.timers.detach(t)
	}
	return resumed
}
