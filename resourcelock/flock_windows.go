//go:build windows

package resourcelock

import (
	"errors"
	"os"
)

// flockSupported reports whether this platform carries the flock primitive.
// Cross-process coordination relies on flock(2); the tool targets the
// Unix-like systems the carrier board runs.
const flockSupported = false

var errFlockUnsupported = errors.New("resourcelock: file locking is not supported on windows")

func flockTry(*os.File) (bool, error) {
	return false, errFlockUnsupported
}

func flockRelease(*os.File) error {
	return errFlockUnsupported
}
