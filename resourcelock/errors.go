package resourcelock

import "errors"

var (
	// ErrTimeout reports that a caller-supplied deadline elapsed while
	// waiting for the lock. The caller may retry or give up.
	ErrTimeout = errors.New("resourcelock: acquire deadline exceeded")

	// ErrAborted reports that the observer requested termination after the
	// first failed attempt. This is a deliberate short-circuit, not a bug.
	ErrAborted = errors.New("resourcelock: acquisition aborted after initial failure")

	// ErrNotHeld reports a Release without a matching Acquire. It always
	// indicates a usage bug in the caller.
	ErrNotHeld = errors.New("resourcelock: lock not held")

	// ErrNotInvocable reports a nil function handed to Wrap or With. It is
	// raised before any lock I/O happens.
	ErrNotInvocable = errors.New("resourcelock: wrapped function must not be nil")
)
