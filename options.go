// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiberwork

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// resolvedOptions holds configuration applied to a Runtime at construction,
// per SPEC_FULL.md §10.1.
type resolvedOptions struct {
	logger             *logiface.Logger[*stumpy.Event]
	stackPolicy        stackPolicy
	messageBoxCapacity int
	metricsEnabled     bool
}

// Option configures a Runtime.
type Option interface {
	apply(*resolvedOptions)
}

type optionFunc func(*resolvedOptions)

func (f optionFunc) apply(o *resolvedOptions) { f(o) }

// WithLogger attaches a structured logger to the runtime. A nil logger (or
// never calling WithLogger) leaves logging disabled, matching the
// teacher's "logger is optional, nil suppresses" idiom.
func WithLogger(l *logiface.Logger[*stumpy.Event]) Option {
	return optionFunc(func(o *resolvedOptions) { o.logger = l })
}

// WithStackPages sets the default stack policy's page count for every
// carrier's stack allocator.
func WithStackPages(pages int) Option {
	return optionFunc(func(o *resolvedOptions) { o.stackPolicy.Pages = pages })
}

// WithMessageBoxCapacity overrides the per-side capacity of every
// cross-producer buffer. Must be a power of two to take effect precisely;
// lfq.NewMPSC rounds up otherwise.
func WithMessageBoxCapacity(capacity int) Option {
	return optionFunc(func(o *resolvedOptions) { o.messageBoxCapacity = capacity })
}

// WithMetrics makes every carrier log its scheduler's counters (see
// SchedulerStats) once every metricsLogInterval refreshes. The counters
// themselves are always maintained and readable through Runtime.Stats.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *resolvedOptions) { o.metricsEnabled = enabled })
}

func resolveOptions(opts []Option) resolvedOptions {
	ro := resolvedOptions{
		stackPolicy:        defaultStackPolicy,
		messageBoxCapacity: cpBufferCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&ro)
	}
	return ro
}
