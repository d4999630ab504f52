package fiberwork

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the runtime's public surface. Per §7's error
// taxonomy, resource exhaustion and shutdown-state errors are returned to
// the caller; bus-refresh errors are absorbed internally and logged instead
// (see bus.go).
var (
	// ErrStackExhausted is returned when the stack allocator cannot satisfy
	// an allocate request.
	ErrStackExhausted = errors.New("fiberwork: stack allocation failed")

	// ErrMessageAllocFailed is returned when a cross-carrier spawn message
	// cannot be posted to the destination's inbox.
	ErrMessageAllocFailed = errors.New("fiberwork: cross-carrier message allocation failed")

	// ErrSchedulerClosed is returned by operations attempted against a
	// scheduler that has entered DYING or later.
	ErrSchedulerClosed = errors.New("fiberwork: scheduler is closed")

	// ErrRuntimeClosed is returned by Start once the runtime has already
	// been started or shut down, and by Shutdown when the runtime is not
	// running. Spawn after Shutdown reports ErrSchedulerClosed instead.
	ErrRuntimeClosed = errors.New("fiberwork: runtime is closed")

	// ErrInvalidCarrierCount is returned by New when asked to build a
	// runtime with zero or negative carriers.
	ErrInvalidCarrierCount = errors.New("fiberwork: carrier count must be positive")

	// ErrNoInbox is returned when a spawn targets a carrier index that has
	// no corresponding message box (should not happen for valid indices;
	// indicates a construction bug).
	ErrNoInbox = errors.New("fiberwork: no inbox for destination carrier")
)

// wrapf mirrors the teacher's WrapError cause-chain idiom: a short message
// prefix with the original error preserved for errors.Is/errors.As.
func wrapf(msg string, cause error) error {
	if cause == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %w", msg, cause)
}
