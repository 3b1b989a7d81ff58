//go:build !windows

package resourcelock_test

import (
	"errors"
	"os"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

// rawFlock takes a non-blocking exclusive flock on path from an independent
// open file description, simulating a foreign process holding the lock.
// It returns a release func on success and ok=false when the lock is held.
func rawFlock(t *testing.T, path string) (release func(), ok bool) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return nil, false
		}
		t.Fatalf("flock %s: %v", path, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
				t.Errorf("funlock %s: %v", path, err)
			}
			f.Close()
		})
	}, true
}

// mustBeFree fails the test when path is flock-held by anyone.
func mustBeFree(t *testing.T, path string) {
	t.Helper()
	release, ok := rawFlock(t, path)
	if !ok {
		t.Fatalf("expected %s to be free, but it is locked", path)
	}
	release()
}

// mustBeHeld fails the test when path is not flock-held.
func mustBeHeld(t *testing.T, path string) {
	t.Helper()
	release, ok := rawFlock(t, path)
	if ok {
		release()
		t.Fatalf("expected %s to be held, but it is free", path)
	}
}

// countingObserver records callback invocations and optionally terminates
// the attempt sequence after the initial failure.
type countingObserver struct {
	mu        sync.Mutex
	terminate bool
	initial   int
	recovered int
}

func (o *countingObserver) TerminateAfterInitialFailure() bool {
	return o.terminate
}

func (o *countingObserver) InitialFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.initial++
}

func (o *countingObserver) SuccessAfterInitialFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recovered++
}

func (o *countingObserver) counts() (initial, recovered int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initial, o.recovered
}
