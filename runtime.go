package fiberwork

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
)

// startupBarrier is a generation-counter rendezvous every carrier waits on
// before running its first refresh, so that spawns issued immediately
// after Start never race a carrier that hasn't locked its OS thread yet.
// A bare sync.WaitGroup cannot express this (it has no "wait for everyone,
// then release everyone" mode that can be reused), so this follows the
// classic mutex+sync.Cond barrier pattern instead.
type startupBarrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	arrived    int
	generation int
}

func newStartupBarrier(n int) *startupBarrier {
	b := &startupBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *startupBarrier) arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.generation
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

// Runtime is the top-level handle described in §3: a fixed set of
// Carriers, each driving one Scheduler, bootstrapped together by Start and
// torn down together by Shutdown.
type Runtime struct {
	carriers []*Carrier
	balance  atomix.Int64

	state   schedulerState
	opts    resolvedOptions
	logger  *runtimeLogger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Runtime with n carriers. n must be at least 1.
func New(n int, opts ...Option) (*Runtime, error) {
	if n < 1 {
		return nil, ErrInvalidCarrierCount
	}
	ro := resolveOptions(opts)

	rt := &Runtime{
		state: newSchedulerState(),
		opts:  ro,
	}
	rt.logger = newRuntimeLogger(ro.logger)

	rt.carriers = make([]*Carrier, n)
	scheds := make([]*Scheduler, n)
	for i := 0; i < n; i++ {
		s := newScheduler(rt, i, ro.stackPolicy)
		scheds[i] = s
		rt.carriers[i] = newCarrier(s)
	}

	// Wire inboxes: each scheduler gets one cpBuffer per producer carrier
	// plus a reserved bootstrap slot, per §4.4/§4.5.
	for i, s := range scheds {
		s.inboxes = make([]*cpBuffer, n+1)
		for p := 0; p < n+1; p++ {
			if p == i {
				continue
			}
			s.inboxes[p] = newCPBuffer(ro.messageBoxCapacity)
		}
	}

	if n > 1 {
		for _, s := range scheds {
			poller := newEpollPoller()
			if err := poller.Init(); err != nil {
				rt.logger.err("poller init failed", err)
				continue
			}
			s.poller = poller
			fd, err := newNotifyFD()
			if err != nil {
				rt.logger.err("notify fd init failed", err)
				continue
			}
			s.notifyFD = fd
		}
	}

	return rt, nil
}

// Start launches every carrier's driver goroutine and blocks until they
// have all reached the startup barrier, then returns immediately; the
// runtime continues running in the background until ctx is cancelled or
// Shutdown is called.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.state.load() != schedulerBorn {
		return ErrRuntimeClosed
	}
	rt.state.store(schedulerAlive)

	runCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel

	barrier := newStartupBarrier(len(rt.carriers) + 1)
	for _, c := range rt.carriers {
		c.sched.state.store(schedulerAlive)
		rt.wg.Add(1)
		go func(c *Carrier) {
			defer rt.wg.Done()
			c.run(runCtx, barrier)
		}(c)
	}
	barrier.arrive()
	return nil
}

// Shutdown signals every carrier to stop after its current bus refresh and
// waits for all of them to finish tearing down, or until ctx is done.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if rt.state.load() != schedulerAlive {
		return ErrRuntimeClosed
	}
	rt.state.store(schedulerDying)
	for _, c := range rt.carriers {
		c.sched.state.store(schedulerDying)
	}
	if rt.cancel != nil {
		rt.cancel()
	}

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of every carrier's scheduler counters, indexed
// by carrier index. Populated regardless of WithMetrics; that option only
// controls whether the runtime also logs these periodically.
func (rt *Runtime) Stats() []SchedulerStats {
	stats := make([]SchedulerStats, len(rt.carriers))
	for i, c := range rt.carriers {
		stats[i] = c.sched.Stats()
	}
	return stats
}
