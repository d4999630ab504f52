// Package fiberwork implements a user-space M:N cooperative threading
// runtime: many lightweight fibers are multiplexed onto a fixed pool of
// OS-thread-bound carriers, each driving one scheduler.
//
// # Architecture
//
// A [Runtime] owns n [Scheduler] instances, one per [Carrier]. Each carrier
// pins an OS thread and repeatedly drives its scheduler's carrier loop: a
// bus refresh (the scheduler's single suspension point, see bus.go), at
// most one pending spawn request materialized into a fresh fiber, and one
// round-robin resumption of the next runnable fiber.
//
// Fibers never migrate between schedulers once created. Spawning a fiber
// from running fiber code ([Fiber.Spawn]) load-balances across carriers via
// a process-wide counter; a spawn that targets the calling fiber's own
// carrier materializes immediately, otherwise it is posted as a
// cross-carrier message and the destination carrier is woken through its
// notification descriptor.
//
// # Concurrency model
//
// Each carrier/scheduler pair is single-threaded: scheduler state (queues,
// timers, stack allocator) is touched only by its own carrier and the
// fiber goroutines it resumes, which never run concurrently with it (see
// fiberctx.go). The only concurrent-access surfaces are the per-producer
// [cpBuffer] inboxes, the fiber/scheduler status words, and the
// process-wide spawn balance counter, all documented at their definitions.
//
// # Platform support
//
// Readiness polling is implemented with Linux epoll plus an eventfd
// notification descriptor (poller_linux.go). This package currently
// targets linux/amd64 and linux/arm64.
//
// # Usage
//
//	rt, err := fiberwork.New(4, fiberwork.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt.Start(ctx)
//	if _, err := rt.Spawn(func(arg any) {
//	    fmt.Println(arg)
//	}, "hello"); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown(context.Background())
package fiberwork
