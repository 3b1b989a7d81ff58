package resourcelock

import (
	"fmt"
	"io"
)

// Observer reacts to the two observable transitions of an acquisition
// attempt sequence: the first failed try, and the eventual success after at
// least one failure. An observer is bound to exactly one Mutex at
// construction; observers carrying per-mutex state must not be shared.
type Observer interface {
	// TerminateAfterInitialFailure is consulted once per Acquire call,
	// immediately after InitialFailure. Returning true makes Acquire fail
	// with ErrAborted instead of retrying.
	TerminateAfterInitialFailure() bool

	// InitialFailure is called when the first try of an Acquire call finds
	// the lock held elsewhere. It fires at most once per call, never on
	// subsequent retries.
	InitialFailure()

	// SuccessAfterInitialFailure is called when Acquire succeeds after
	// InitialFailure fired in the same call.
	SuccessAfterInitialFailure()
}

// SilentObserver ignores both transitions and never terminates. It is the
// default observer for mutexes constructed without one.
type SilentObserver struct{}

// TerminateAfterInitialFailure always reports false.
func (SilentObserver) TerminateAfterInitialFailure() bool { return false }

// InitialFailure is a no-op.
func (SilentObserver) InitialFailure() {}

// SuccessAfterInitialFailure is a no-op.
func (SilentObserver) SuccessAfterInitialFailure() {}

// ReportingObserver prints a human-readable waiting notice when the first
// acquisition attempt fails, so interactive users see why the tool appears
// to hang. It never terminates the attempt sequence.
type ReportingObserver struct {
	lock NamedLock
	out  io.Writer
}

// NewReportingObserver builds an observer reporting on behalf of the given
// lock. Notices are written to out, typically stderr.
func NewReportingObserver(lock NamedLock, out io.Writer) *ReportingObserver {
	return &ReportingObserver{lock: lock, out: out}
}

// TerminateAfterInitialFailure always reports false.
func (o *ReportingObserver) TerminateAfterInitialFailure() bool { return false }

// InitialFailure emits the waiting notice.
func (o *ReportingObserver) InitialFailure() {
	fmt.Fprintf(o.out, "another process is using the %s resource, waiting for the lock to be released...\n", o.lock)
}

// SuccessAfterInitialFailure is a no-op.
func (o *ReportingObserver) SuccessAfterInitialFailure() {}
