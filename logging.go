package fiberwork

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// runtimeLogger is a thin, nil-safe wrapper around an optional
// logiface.Logger, following the teacher's "logger is optional, nil
// suppresses all calls" idiom (SetStructuredLogger/getGlobalLogger in the
// original logging.go). Unlike the teacher, this module has no
// process-wide global logger: each Runtime owns its own, since a process
// may host more than one runtime.
type runtimeLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

func newRuntimeLogger(l *logiface.Logger[*stumpy.Event]) *runtimeLogger {
	return &runtimeLogger{l: l}
}

func (r *runtimeLogger) err(msg string, cause error) {
	if r == nil || r.l == nil {
		return
	}
	r.l.Err().Err(cause).Log(msg)
}

func (r *runtimeLogger) info(msg string) {
	if r == nil || r.l == nil {
		return
	}
	r.l.Info().Log(msg)
}

// metrics logs one scheduler's counters as structured fields, gated by
// WithMetrics(true).
func (r *runtimeLogger) metrics(stats SchedulerStats) {
	if r == nil || r.l == nil {
		return
	}
	r.l.Info().
		Int("scheduler", stats.Index).
		Int64("stacks_allocated", stats.StacksAllocated).
		Int64("stacks_reincarnated", stats.StacksReincarnated).
		Int64("stacks_freed", stats.StacksFreed).
		Int64("messages_dispatched", stats.MessagesDispatched).
		Int("running", stats.Running).
		Int("dying", stats.Dying).
		Log("fiberwork: scheduler metrics")
}

// NewDefaultLogger builds a stumpy-backed logiface logger writing to
// stderr, suitable for passing to WithLogger when a caller wants
// structured logging without configuring their own writer.
func NewDefaultLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy())
}
