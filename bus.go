package fiberwork

import "time"

// bus is the per-carrier event bus driving the six-phase refresh described
// in §4.3. It holds no state of its own beyond a reference to the
// scheduler it serves; refresh is the sole suspension point of the whole
// runtime, grounded on the teacher's Loop.tick/calculateTimeout/PollIO
// sequence (loop.go) generalized from "run one macrotask batch" to "run
// one fiber-scheduling pass".
type bus struct {
	sched *Scheduler
}

func newBus(s *Scheduler) *bus {
	return &bus{sched: s}
}

// refresh runs one full pass of the six phases and returns whether it made
// progress (a timer fired, an fd became ready, or a cross-carrier message
// was consumed). Carrier.run does not use the result.
func (b *bus) refresh() bool {
	progressed := false

	// Phase 1: compute the poll timeout. Blocking is only safe when the
	// RUNNING queue is empty and Phase 4 has already fully drained every
	// inbox at least once (consumed == true); before that first drain the
	// next refresh still polls with a zero timeout.
	timeoutMs := b.computeTimeout()

	// Phase 1's readiness wait and Phase 3's readiness dispatch (including
	// the notify fd drain) are one poller call, so fibers woken by I/O are
	// queued ahead of fibers woken by timers in the same pass.
	if b.pollReadiness(timeoutMs) {
		progressed = true
	}

	// Phase 2: timer expiry, checked after the wait so that a timer that
	// came due while the carrier was blocked fires in this same pass.
	if b.expireTimers() {
		progressed = true
	}

	// Phase 4: inbound cross-carrier messages. `consumed` records whether
	// every inbox was fully drained this pass, per §4.3 ("AND the box's
	// consuming flag into the scheduler's consumed flag"), not whether a
	// message happened to be present. cpBuffer's flip protocol never
	// refuses to drain (it only spins briefly for in-flight producers), so
	// every box's consuming flag is always true here; consumed is set
	// unconditionally rather than gated on consumedAny.
	consumedAny := b.dispatchInbound()
	b.sched.consumed = true
	if consumedAny {
		progressed = true
	}

	// Phase 5: reserved. The original protocol's IUC (inter-uthread-call)
	// slot has no analogue here; nothing to do.

	// Phase 6: reap the fibers the carrier loop has queued as DYING since
	// the previous refresh.
	b.sched.reap()

	return progressed
}

func (b *bus) computeTimeout() int {
	s := b.sched
	if s.running.len() > 0 || !s.consumed {
		return 0
	}
	earliest := s.timers.peekEarliest()
	if earliest == nil {
		return -1
	}
	deltaMs := earliest.expiryMs - nowMs()
	if deltaMs <= 0 {
		return 0
	}
	return int(deltaMs)
}

func (b *bus) expireTimers() bool {
	s := b.sched
	now := nowMs()
	fired := false
	for {
		t := s.timers.peekEarliest()
		if t == nil || t.expiryMs > now {
			break
		}
		s.timers.detach(t)
		t.triggered.StoreRelease(true)
		s.reenable(t.fiber)
		fired = true
	}
	return fired
}

func (b *bus) pollReadiness(timeoutMs int) bool {
	s := b.sched
	if s.poller == nil {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return false
	}
	n, err := s.poller.PollAndDispatch(timeoutMs, func(d *delegation, _ IOEvents) {
		s.reenable(d.fiber)
	})
	if err != nil {
		s.runtime.logger.err("fiberwork: readiness wait failed", err)
		return false
	}
	if s.notifyFD > 0 {
		drainNotifyFD(s.notifyFD)
	}
	return n > 0
}

// dispatchInbound drains every inbox's active side, handling each
// delivered message by base type, per §4.3 phase 4 and §6's message
// dispatch table.
func (b *bus) dispatchInbound() bool {
	s := b.sched
	consumedAny := false
	for _, box := range s.inboxes {
		if box == nil {
			continue
		}
		if box.consume(func(m *internalMessage) {
			b.handleMessage(m)
		}) {
			consumedAny = true
		}
	}
	return consumedAny
}

func (b *bus) handleMessage(m *internalMessage) {
	switch m.baseType() {
	case baseTypeUthreadRequest:
		b.sched.requests.push(m.request)
	default:
		// Unknown base type: drop it, releasing any attached destructor,
		// per §7's "unknown message types are discarded, not fatal".
		b.sched.runtime.logger.info("fiberwork: dropped message of unknown base type")
	}
	b.sched.metrics.messagesDispatched.AddAcqRel(1)
	m.release()
}

// nowMs is monotonic wall-clock milliseconds, used only for timer
// comparisons; it is a thin seam so tests can avoid real sleeps if needed.
var nowMsFunc = func() int64 { return time.Now().UnixMilli() }

func nowMs() int64 { return nowMsFunc() }
