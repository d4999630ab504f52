package fiberwork

import "code.hybscloud.com/atomix"

// SpawnResult mirrors the tri-state {-1, 0, 1} result of uthread_create
// described in §4.5 and the GLOSSARY.
type SpawnResult int

const (
	SpawnFailed SpawnResult = -1
	SpawnLocal  SpawnResult = 0
	SpawnRemote SpawnResult = 1
)

// bootstrapProducerIndex is the reserved slot in every scheduler's inbox
// array used by Runtime.Spawn before any fiber exists to call Spawn from
// (the "external" producer of §4.5).
const bootstrapProducerIndex = -1

// spawn implements uthread_create: a process-wide atomic balance counter,
// incremented modulo the carrier count, selects the destination carrier.
// If the destination is the origin carrier, the fiber is materialized
// immediately, without passing through the request queue (§4.5's local path);
// otherwise a UTHREAD_REQUEST message is posted to the destination's inbox
// and its carrier is notified.
//
// originIndex is the spawning fiber's carrier index, or
// bootstrapProducerIndex when called from outside any carrier (the
// Runtime.Spawn entry point).
func (rt *Runtime) spawn(originIndex int, entry func(arg any), arg any) (SpawnResult, error) {
	if rt.state.load() == schedulerDying {
		return SpawnFailed, ErrSchedulerClosed
	}

	n := int64(len(rt.carriers))
	if n == 0 {
		return SpawnFailed, ErrSchedulerClosed
	}
	target := int(rt.balance.AddAcqRel(1) % n)
	if target < 0 {
		target += int(n)
	}

	dest := rt.carriers[target].sched
	req := spawnRequest{entrance: entry, argument: arg}

	if target == originIndex {
		if err := dest.materialize(req); err != nil {
			return SpawnFailed, wrapf("fiberwork: local spawn", err)
		}
		return SpawnLocal, nil
	}

	producerSlot := originIndex
	if producerSlot == bootstrapProducerIndex {
		producerSlot = len(dest.inboxes) - 1
	}
	if producerSlot < 0 || producerSlot >= len(dest.inboxes) || dest.inboxes[producerSlot] == nil {
		return SpawnFailed, ErrNoInbox
	}
	box := dest.inboxes[producerSlot]
	if err := box.produce(newSpawnRequestMessage(entry, arg)); err != nil {
		return SpawnFailed, wrapf("fiberwork: remote spawn", ErrMessageAllocFailed)
	}
	rt.carriers[target].notify()
	return SpawnRemote, nil
}

// Spawn schedules a new fiber from outside any carrier — the bootstrap
// entry point described in §4.5's "external producer" path, used by
// callers to seed the runtime with its first fibers after Start. Per §7,
// spawn failures are returned to the caller rather than absorbed.
func (rt *Runtime) Spawn(entry func(arg any), arg any) (SpawnResult, error) {
	return rt.spawn(bootstrapProducerIndex, entry, arg)
}
