package fiberwork

import (
	"context"
	"runtime"
)

// Carrier is one OS-thread-bound driver of a Scheduler, per §3/§5. Exactly
// one goroutine ever calls run for a given carrier, and it locks itself to
// its OS thread for the lifetime of the runtime, the closest Go analogue
// to the original's "each carrier owns one kernel thread" invariant.
type Carrier struct {
	sched *Scheduler
	bus   *bus

	refreshes int
}

func newCarrier(s *Scheduler) *Carrier {
	return &Carrier{sched: s, bus: newBus(s)}
}

// metricsLogInterval is how many carrier-loop refreshes elapse between
// metrics log lines when a Runtime is built with WithMetrics(true).
const metricsLogInterval = 1000

// run is the carrier's main loop: lock to the OS thread, wait at the
// runtime's startup barrier so all carriers begin together, then
// repeatedly refresh the bus, materialize one pending spawn request, pick
// the next RUNNING fiber, and switch into it. It returns when the
// scheduler transitions to DYING (via ctx cancellation or
// Runtime.Shutdown).
func (c *Carrier) run(ctx context.Context, barrier *startupBarrier) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	barrier.arrive()

	for {
		if ctx.Err() != nil {
			break
		}
		if c.sched.state.load() == schedulerDying {
			break
		}

		c.bus.refresh()

		c.refreshes++
		if c.sched.runtime.opts.metricsEnabled && c.refreshes%metricsLogInterval == 0 {
			c.logMetrics()
		}

		if err := c.sched.cherryPick(); err != nil {
			// Allocation failure: the request is dropped per §7's
			// resource-exhaustion handling; nothing further to do this
			// tick.
			_ = err
		}

		target := c.sched.reschedTarget()
		if target == nil {
			continue
		}

		target.status.store(fiberRunning)
		target.ctx.switchTo()

		switch target.status.load() {
		case fiberDying:
			c.sched.running.remove(target)
			c.sched.queueDying(target)
		case fiberLimbo:
			// A fiber that parked with a delegation attached (timer or
			// I/O wait) leaves the RUNNING queue until bus.refresh
			// reenables it; a plain Yield (no delegation) leaves the
			// fiber in place so the round-robin cursor reaches it again
			// next pass.
			if target.delegation != nil {
				c.sched.running.remove(target)
			}
		}
	}

	c.sched.teardown()
}

// logMetrics emits one structured log line with this carrier's scheduler
// counters, called every metricsLogInterval refreshes when the owning
// Runtime was built with WithMetrics(true).
func (c *Carrier) logMetrics() {
	c.sched.runtime.logger.metrics(c.sched.Stats())
}

// notify wakes this carrier if it is currently blocked in its poller,
// used by a remote producer after posting a cross-carrier message, per
// §4.5.
func (c *Carrier) notify() {
	if c.sched.notifyFD > 0 {
		_ = writeNotify(c.sched.notifyFD)
	}
}
