package resourcelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NamedLock identifies one logical shared resource. The set is closed: every
// lockable resource the tool knows about is declared here, and each name maps
// to exactly one lock file under the lock directory.
type NamedLock int

const (
	// General serializes whole tool invocations.
	General NamedLock = iota
	// TargetInteraction serializes traffic on the physical bus.
	TargetInteraction
	// ConfigFile serializes updates to the shared configuration file.
	ConfigFile
	// CacheFile serializes updates to the shared cache file.
	CacheFile
	// LogDirectory serializes creation of shared log directories.
	LogDirectory
)

// LockOrder is the global bulk-acquisition order. Every process that takes
// more than one lock must take them in this order; two processes acquiring
// in different orders can deadlock against each other. Treat this as
// process-wide configuration, never as a per-call choice.
var LockOrder = [...]NamedLock{
	General,
	TargetInteraction,
	ConfigFile,
	CacheFile,
	LogDirectory,
}

// LockFileExtension is appended to the lock name to form the file name.
const LockFileExtension = ".lock"

var lockNames = map[NamedLock]string{
	General:           "general",
	TargetInteraction: "target_interaction",
	ConfigFile:        "config_file",
	CacheFile:         "cache_file",
	LogDirectory:      "log_directory",
}

// String returns the stable wire/file name of the lock.
func (n NamedLock) String() string {
	if name, ok := lockNames[n]; ok {
		return name
	}
	return fmt.Sprintf("namedlock(%d)", int(n))
}

// Valid reports whether n is one of the declared locks.
func (n NamedLock) Valid() bool {
	_, ok := lockNames[n]
	return ok
}

// Filename returns the lock file name without directory.
func (n NamedLock) Filename() string {
	return n.String() + LockFileExtension
}

// Path derives the lock file path under dir. The derivation is a pure
// function of the name and dir: two mutexes built for the same name and
// directory always coordinate on the same file.
func (n NamedLock) Path(dir string) string {
	return filepath.Join(dir, n.Filename())
}

// ParseNamedLock resolves a lock name as accepted on the command line.
func ParseNamedLock(s string) (NamedLock, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for lock, name := range lockNames {
		if name == s {
			return lock, nil
		}
	}
	return 0, fmt.Errorf("unknown lock name %q", s)
}

// DefaultDirectory returns the shared coordination directory. It lives under
// the system temp directory so unrelated processes and users agree on it
// without configuration.
func DefaultDirectory() string {
	return filepath.Join(os.TempDir(), "usbswitch")
}
