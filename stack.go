package fiberwork

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// stackPolicy describes the size of a requested stack, in pages. The page
// count is informational bookkeeping here (Go manages goroutine stacks
// itself); it exists so the allocator can report n_pages_stack_total per
// §6's metamark contract.
type stackPolicy struct {
	Pages int
}

// defaultStackPolicy is used when a zero-value policy is requested.
var defaultStackPolicy = stackPolicy{Pages: 8}

// stackMetamark is the header record returned by the stack allocator. Per
// §3/§6, the fiber control block logically lives in the metamark's
// user-metadata region; Go cannot place a struct inside a goroutine's
// stack, so it is realized here as a field directly on the metamark,
// making the metamark the sole owner of both the "stack" and the fiber
// that lives in it (stack lifetime == fiber lifetime, per §9).
type stackMetamark struct {
	id        uint64
	pages     int
	allocator *stackAllocator
	fiber     Fiber
}

// controlBlock returns the fiber control block embedded in this metamark.
func (m *stackMetamark) controlBlock() *Fiber {
	return &m.fiber
}

// stackAllocator is a scheduler-local allocator handing out stackMetamarks.
// Grounded on the teacher's registry.go: allocate an ID, track the live
// handle in a map, release on free/ruin. The registry's weak-pointer GC
// scavenging is promise-specific and has no analogue here — stacks are
// explicitly freed by Scheduler.reap (§4.3 phase 6), never garbage
// collected out from under a live fiber, so a plain map suffices.
type stackAllocator struct {
	mu         sync.Mutex
	nextID     atomix.Uint64
	live       map[uint64]*stackMetamark
	pagesTotal int
	policy     stackPolicy
}

func newStackAllocator(policy stackPolicy) *stackAllocator {
	if policy.Pages <= 0 {
		policy = defaultStackPolicy
	}
	return &stackAllocator{
		live:   make(map[uint64]*stackMetamark),
		policy: policy,
	}
}

// allocate hands out a fresh metamark. Resource exhaustion (per §7) would
// surface here as ErrStackExhausted; the bookkeeping allocator modeled here
// never actually runs out, but the error path is real and exercised by
// policy validation.
func (a *stackAllocator) allocate(policy stackPolicy) (*stackMetamark, error) {
	if policy.Pages <= 0 {
		policy = a.policy
	}
	if policy.Pages <= 0 {
		return nil, ErrStackExhausted
	}
	m := &stackMetamark{
		id:        a.nextID.AddAcqRel(1),
		pages:     policy.Pages,
		allocator: a,
	}
	a.mu.Lock()
	a.live[m.id] = m
	a.pagesTotal += policy.Pages
	a.mu.Unlock()
	return m, nil
}

// free releases a metamark. It does not itself destroy the fiber living in
// it; the caller (Scheduler.reap) is responsible for having already torn
// down the fiber's context.
func (a *stackAllocator) free(m *stackMetamark) {
	if m == nil {
		return
	}
	a.mu.Lock()
	if _, ok := a.live[m.id]; ok {
		delete(a.live, m.id)
		a.pagesTotal -= m.pages
	}
	a.mu.Unlock()
}

// reuse re-registers a previously freed metamark as live, without
// allocating a new id, for fiber reincarnation per §3.
func (a *stackAllocator) reuse(m *stackMetamark) {
	a.mu.Lock()
	a.live[m.id] = m
	a.pagesTotal += m.pages
	a.mu.Unlock()
}

// outstanding returns the number of live stacks, for diagnostics/tests.
func (a *stackAllocator) outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// ruin frees all outstanding stacks and destroys every fiber still living
// in them, per §3's scheduler DYING lifecycle ("ruining the stack
// allocator... destroys all fibers").
func (a *stackAllocator) ruin() {
	a.mu.Lock()
	marks := make([]*stackMetamark, 0, len(a.live))
	for _, m := range a.live {
		marks = append(marks, m)
	}
	a.live = make(map[uint64]*stackMetamark)
	a.pagesTotal = 0
	a.mu.Unlock()

	for _, m := range marks {
		m.fiber.ctx.close()
	}
}
