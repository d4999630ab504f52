package fiberwork

import "code.hybscloud.com/atomix"

// fiberStatus is one of {BORN, RUNNING, LIMBO, DYING} per §3. Written with
// release ordering by the owning scheduler/fiber goroutine; read with
// acquire ordering. Readers outside the owning carrier must treat the
// value as advisory only (§5).
type fiberStatus uint32

const (
	fiberBorn fiberStatus = iota
	fiberRunning
	fiberLimbo
	fiberDying
)

func (s fiberStatus) String() string {
	switch s {
	case fiberBorn:
		return "BORN"
	case fiberRunning:
		return "RUNNING"
	case fiberLimbo:
		return "LIMBO"
	case fiberDying:
		return "DYING"
	default:
		return "UNKNOWN"
	}
}

// fiberState is a small atomic status word (release store, acquire load;
// no compare-and-swap transitions), adapted from the teacher's FastState
// but built on atomix so the whole module shares one explicitly-ordered
// atomics vocabulary with cpbuffer.go's lock-free structures.
type fiberState struct {
	v atomix.Uint64
}

func newFiberState() fiberState {
	var s fiberState
	s.v.StoreRelaxed(uint64(fiberBorn))
	return s
}

func (s *fiberState) load() fiberStatus {
	return fiberStatus(s.v.LoadAcquire())
}

func (s *fiberState) store(v fiberStatus) {
	s.v.StoreRelease(uint64(v))
}

// schedulerStatus is BORN -> ALIVE -> DYING per §3's scheduler lifecycle.
type schedulerStatus uint32

const (
	schedulerBorn schedulerStatus = iota
	schedulerAlive
	schedulerDying
)

type schedulerState struct {
	v atomix.Uint64
}

func newSchedulerState() schedulerState {
	var s schedulerState
	s.v.StoreRelaxed(uint64(schedulerBorn))
	return s
}

func (s *schedulerState) load() schedulerStatus {
	return schedulerStatus(s.v.LoadAcquire())
}

func (s *schedulerState) store(v schedulerStatus) {
	s.v.StoreRelease(uint64(v))
}
