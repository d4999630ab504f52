package fiberwork

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"code.hybscloud.com/spin"
)

// cpBufferCapacity is the per-side queue capacity of every cross-producer
// buffer, per §6's message-box sizing note. Rounded up to a power of two
// internally by lfq.NewMPSC.
const cpBufferCapacity = 256

// cpBuffer is the two-sided MPSC inbox for one (producer carrier,
// consumer carrier) pair described in §4.7. Exactly one side is "active"
// at a time; producers post to the active side. The consuming carrier
// drains the active side, flips, waits for producers still inside produce
// on the old side, and drains it again, so producers may enqueue onto a
// side while it is being drained. Grounded on lfq's MPSC[T] (FAA-based, bounded, lock-free)
// from the hayabusa-cloud-lfq package, which this module's go.mod already
// depends on for exactly this purpose.
type cpBuffer struct {
	sides  [2]*lfq.MPSC[*internalMessage]
	active atomix.Uint64 // index (0 or 1) of the side producers post to
	// inflight counts producers currently inside produce() for each side,
	// used by the consumer to know when a side is safe to drain after a
	// flip (no producer can still be targeting it).
	inflight [2]atomix.Int32
}

func newCPBuffer(capacity int) *cpBuffer {
	if capacity <= 0 {
		capacity = cpBufferCapacity
	}
	b := &cpBuffer{
		sides: [2]*lfq.MPSC[*internalMessage]{
			lfq.NewMPSC[*internalMessage](capacity),
			lfq.NewMPSC[*internalMessage](capacity),
		},
	}
	return b
}

// produce posts a message to whichever side is currently active. Safe for
// concurrent use by any number of producer carriers.
func (b *cpBuffer) produce(m *internalMessage) error {
	bo := iox.Backoff{}
	for {
		side := b.active.LoadAcquire() & 1
		b.inflight[side].Add(1)
		err := b.sides[side].Enqueue(&m)
		b.inflight[side].Add(-1)
		if err == nil {
			return nil
		}
		if !lfq.IsWouldBlock(err) {
			return err
		}
		bo.Wait()
	}
}

// consume drains every message currently visible on the active side,
// invoking fn for each, then flips the active side and drains whatever
// producers had already queued on the now-inactive side before the flip
// was observed. Called only by the single consuming carrier, per §4.7.
//
// It returns true if at least one message was consumed. The bus uses this
// only to report progress; its "consumed" flag is set regardless, since
// consume never refuses to flip.
func (b *cpBuffer) consume(fn func(*internalMessage)) bool {
	consumedAny := false

	drainSide := func(side uint64) {
		for {
			m, err := b.sides[side].Dequeue()
			if err != nil {
				return
			}
			consumedAny = true
			fn(m)
		}
	}

	cur := b.active.LoadAcquire() & 1
	drainSide(cur)

	other := cur ^ 1
	b.active.StoreRelease(other)

	// Producers that had already claimed a slot on `cur` under the old
	// active index may still be mid-Enqueue; wait for them to finish
	// before treating `cur` as quiescent for the next flip back. This is
	// expected to settle within a handful of spins, not a real stall, so
	// it uses the same short spin.Wait primitive lfq's own MPMC queues use
	// for their inner CAS-retry loops rather than iox.Backoff's longer
	// escalating sleep (reserved, in produce, for genuine producer-side
	// backpressure against a full ring).
	sw := spin.Wait{}
	for b.inflight[cur].Load() != 0 {
		sw.Once()
	}
	drainSide(cur)

	return consumedAny
}
