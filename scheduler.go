package fiberwork

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// schedulerMetrics holds the lightweight counters behind Runtime.Stats,
// maintained whether or not WithMetrics is set (that option only adds
// periodic logging), per SPEC_FULL.md §10.1. stacksAllocated counts fresh
// stacks only; a reincarnation reuses its stack and bumps
// stacksReincarnated instead, so once every fiber has died and been reaped
// through the DYING queue, stacksAllocated equals stacksFreed.
type schedulerMetrics struct {
	stacksAllocated    atomix.Int64
	stacksReincarnated atomix.Int64
	stacksFreed        atomix.Int64
	messagesDispatched atomix.Int64
}

// SchedulerStats is a point-in-time snapshot of one scheduler's counters,
// returned by Runtime.Stats.
type SchedulerStats struct {
	Index              int
	StacksAllocated    int64
	StacksReincarnated int64
	StacksFreed        int64
	MessagesDispatched int64
	Running            int
	Dying              int
}

// fiberList is the intrusive doubly-linked queue described in §3 for a
// scheduler's RUNNING and DYING sets. It owns no allocation beyond the
// Fiber nodes themselves, which carry their own prev/next pointers.
type fiberList struct {
	head, tail *Fiber
	n          int
}

func (l *fiberList) pushTail(f *Fiber) {
	f.prev, f.next = l.tail, nil
	if l.tail != nil {
		l.tail.next = f
	} else {
		l.head = f
	}
	l.tail = f
	l.n++
}

func (l *fiberList) popHead() *Fiber {
	f := l.head
	if f == nil {
		return nil
	}
	l.remove(f)
	return f
}

func (l *fiberList) remove(f *Fiber) {
	if f.prev != nil {
		f.prev.next = f.next
	} else if l.head == f {
		l.head = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	} else if l.tail == f {
		l.tail = f.prev
	}
	f.prev, f.next = nil, nil
	l.n--
}

func (l *fiberList) len() int { return l.n }

// requestQueue is a plain FIFO of pending spawn requests local to one
// scheduler, per §4.5. It is filled by bus phase 4 (§4.3) from delivered
// UTHREAD_REQUEST messages and drained by Scheduler.cherryPick and by
// Fiber.trampoline's reincarnation loop; a local spawn materializes
// directly and never enqueues here.
type requestQueue struct {
	mu    sync.Mutex
	items []spawnRequest
}

func (q *requestQueue) push(r spawnRequest) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

func (q *requestQueue) pop() (spawnRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return spawnRequest{}, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r, true
}

func (q *requestQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Scheduler is the per-carrier scheduling core described in §3: it owns
// the RUNNING/DYING queues, the timer queue, the stack allocator, and one
// inbound cross-producer buffer per other carrier in the runtime (plus one
// reserved slot for the bootstrap/external producer).
type Scheduler struct {
	runtime *Runtime
	index   int

	state schedulerState

	stacks *stackAllocator
	timers *timerQueue

	running fiberList
	dying   fiberList

	requests requestQueue

	// inboxes[i] is this scheduler's consumer-owned cpBuffer fed by
	// carrier i's producers; inboxes[len(inboxes)-1] is the reserved slot
	// fed by Runtime.Spawn, whose caller does not run on any carrier (the
	// "bootstrap" producer of §4.5).
	inboxes []*cpBuffer

	poller   readinessPoller
	notifyFD int

	// consumed gates phase 1's timeout computation per §4.3: while it is
	// false the refresh polls with a zero timeout instead of blocking. Bus
	// phase 4 sets it to true on every refresh, whether or not any message
	// arrived, so it is false only before the first refresh.
	consumed bool

	cursor *Fiber // round-robin cursor into running, for reschedTarget

	metrics schedulerMetrics
}

// Stats returns a point-in-time snapshot of this scheduler's counters.
// Safe to call from any goroutine; the queue lengths are read without
// synchronization and are therefore advisory when called from outside the
// owning carrier, matching §5's treatment of diagnostic reads.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Index:              s.index,
		StacksAllocated:    s.metrics.stacksAllocated.LoadAcquire(),
		StacksReincarnated: s.metrics.stacksReincarnated.LoadAcquire(),
		StacksFreed:        s.metrics.stacksFreed.LoadAcquire(),
		MessagesDispatched: s.metrics.messagesDispatched.LoadAcquire(),
		Running:            s.running.len(),
		Dying:              s.dying.len(),
	}
}

func newScheduler(rt *Runtime, index int, stacks stackPolicy) *Scheduler {
	return &Scheduler{
		runtime: rt,
		index:   index,
		state:   newSchedulerState(),
		stacks:  newStackAllocator(stacks),
		timers:  newTimerQueue(),
	}
}

// reenable moves a LIMBO fiber back onto the RUNNING queue and marks it
// RUNNING, clearing its delegation. Called by bus.refresh when a timer
// expires or an fd becomes ready.
func (s *Scheduler) reenable(f *Fiber) {
	f.delegation = nil
	f.status.store(fiberRunning)
	s.running.pushTail(f)
}

// queueDying moves a fiber whose trampoline has returned onto the DYING
// queue, to be reaped in bus phase 6.
func (s *Scheduler) queueDying(f *Fiber) {
	s.dying.pushTail(f)
}

// reschedTarget picks the next RUNNING fiber to resume, round-robin, per
// §4.4's scheduling policy. It returns nil if no fiber is runnable.
func (s *Scheduler) reschedTarget() *Fiber {
	if s.running.len() == 0 {
		s.cursor = nil
		return nil
	}
	next := s.cursor
	if next == nil || next.next == nil {
		next = s.running.head
	} else {
		next = next.next
	}
	s.cursor = next
	return next
}

// cherryPick pops one pending spawn request, if any, and materializes it
// onto the RUNNING queue with a freshly allocated stack. It is the
// scheduler-local half of uthread_create described in §4.5, used by the
// carrier loop for requests that arrive with no DYING fiber's trampoline
// around to reincarnate them; a trampoline that is still running picks up
// pending requests itself (see Fiber.trampoline) before ever reaching
// DYING, which is the only reincarnation path per §4.2/§9.
func (s *Scheduler) cherryPick() error {
	req, ok := s.requests.pop()
	if !ok {
		return nil
	}
	return s.materialize(req)
}

// materialize builds a new Fiber from a pending spawn request on a freshly
// allocated stack and enqueues it onto RUNNING.
func (s *Scheduler) materialize(req spawnRequest) error {
	stack, err := s.stacks.allocate(s.stacks.policy)
	if err != nil {
		return err
	}
	f := newFiber(s, stack, req.entrance, req.argument)
	s.running.pushTail(f)
	s.metrics.stacksAllocated.AddAcqRel(1)
	return nil
}

// reap frees every fiber currently on the DYING queue, per §4.3 phase 6.
// It is the only place a single stack is returned to the allocator;
// stackAllocator.ruin releases all remaining stacks at teardown.
func (s *Scheduler) reap() int {
	n := 0
	for {
		f := s.dying.popHead()
		if f == nil {
			break
		}
		s.stacks.free(f.stack)
		n++
	}
	if n > 0 {
		s.metrics.stacksFreed.AddAcqRel(int64(n))
	}
	return n
}

// teardown tears down everything owned by this scheduler: the poller, the
// notify fd, every inbox (both cpBuffer sides drained and released), and
// finally the stack allocator, which forcibly destroys any fiber still
// alive. Grounded on the teacher's Loop shutdown sequence (closeFDs via
// sync.Once, then registry teardown).
func (s *Scheduler) teardown() {
	if s.poller != nil {
		_ = s.poller.Close()
	}
	if s.notifyFD > 0 {
		_ = closeFD(s.notifyFD)
	}
	for _, box := range s.inboxes {
		if box == nil {
			continue
		}
		// One consume drains the side that is active when it is called and
		// flips to the other; the second call drains that other side.
		box.consume(func(m *internalMessage) { m.release() })
		box.consume(func(m *internalMessage) { m.release() })
	}
	s.stacks.ruin()
}
