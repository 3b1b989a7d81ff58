//go:build !windows

package resourcelock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// flockSupported reports whether this platform carries the flock primitive.
const flockSupported = true

// flockTry takes a non-blocking exclusive flock on f. It returns false when
// another open file description holds the lock, which covers both foreign
// processes and other handles within this process.
func flockTry(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	// Older Unix systems report EWOULDBLOCK and EAGAIN as distinct codes;
	// treat them the same.
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return false, nil
	}
	return false, fmt.Errorf("flock %s: %w", f.Name(), err)
}

// flockRelease drops the flock held on f.
func flockRelease(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("funlock %s: %w", f.Name(), err)
	}
	return nil
}
