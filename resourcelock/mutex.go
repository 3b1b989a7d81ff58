package resourcelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/usbswitch/internal/clock"
)

// Mutex is a file-backed advisory mutex for one NamedLock. Exclusion across
// processes comes from an OS-level flock on the lock file; within one
// process the mutex is reentrant, so any thread of a process that already
// holds the lock acquires again immediately and only the final balancing
// Release drops the OS-level lock.
//
// One Mutex per NamedLock per process is the intended shape; Registry
// enforces it. Two Mutex instances for the same name inside one process
// would contend against each other on the flock.
type Mutex struct {
	name     NamedLock
	path     string
	observer Observer
	clock    clock.Clock
	logger   pslog.Logger

	mu     sync.Mutex
	depth  int
	handle *os.File
}

// MutexOption customises mutex construction.
type MutexOption func(*mutexOptions)

type mutexOptions struct {
	dir      string
	observer Observer
	clock    clock.Clock
	logger   pslog.Logger
}

// WithDirectory overrides the lock directory, mainly for tests.
func WithDirectory(dir string) MutexOption {
	return func(o *mutexOptions) { o.dir = dir }
}

// WithObserver binds an observer to the mutex. The mutex owns the observer
// for its lifetime; the default is SilentObserver.
func WithObserver(obs Observer) MutexOption {
	return func(o *mutexOptions) { o.observer = obs }
}

// WithClock substitutes the time source, mainly for tests.
func WithClock(c clock.Clock) MutexOption {
	return func(o *mutexOptions) { o.clock = c }
}

// WithLogger attaches a structured logger.
func WithLogger(logger pslog.Logger) MutexOption {
	return func(o *mutexOptions) { o.logger = logger }
}

// NewMutex builds the mutex for name and makes sure the lock directory
// exists. The directory and lock files are opened up to every user
// (best effort) because coordination must work across processes running
// under different accounts.
func NewMutex(name NamedLock, opts ...MutexOption) (*Mutex, error) {
	if !flockSupported {
		return nil, errors.New("resourcelock: file locking is not supported on this platform")
	}
	if !name.Valid() {
		return nil, fmt.Errorf("resourcelock: invalid lock %v", name)
	}
	o := mutexOptions{
		dir:      DefaultDirectory(),
		observer: SilentObserver{},
		clock:    clock.Real{},
		logger:   pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(o.dir) == "" {
		o.dir = DefaultDirectory()
	}
	if err := os.MkdirAll(o.dir, 0o777); err != nil {
		return nil, fmt.Errorf("create lock directory %s: %w", o.dir, err)
	}
	// Relaxing the directory mode past the umask is an optimisation for
	// foreign-user coordination, not a correctness requirement.
	_ = os.Chmod(o.dir, 0o777)
	return &Mutex{
		name:     name,
		path:     name.Path(o.dir),
		observer: o.observer,
		clock:    o.clock,
		logger:   o.logger.With("sys", "resourcelock").With("lock", name.String()),
	}, nil
}

// Name returns the lock identity this mutex guards.
func (m *Mutex) Name() NamedLock { return m.name }

// Path returns the lock file path derived from the name.
func (m *Mutex) Path() string { return m.path }

// Acquire blocks until the lock is held, the context expires, or the bound
// observer terminates the attempt sequence. A context deadline surfaces as
// ErrTimeout; observer termination after the first failed try surfaces as
// ErrAborted. Reacquisition by a process that already holds the lock
// succeeds immediately and increments the reentrant depth.
//
// The observer's InitialFailure fires at most once per call, on the first
// failed try; SuccessAfterInitialFailure fires exactly when at least one
// failure preceded success within the same call.
func (m *Mutex) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := false
	backoff := newPollBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return m.contextFailure(err)
		}
		acquired, err := m.step()
		if err != nil {
			return err
		}
		if acquired {
			if failed {
				m.logger.Debug("lock.acquire.recovered")
				m.observer.SuccessAfterInitialFailure()
			}
			return nil
		}
		if !failed {
			failed = true
			m.logger.Debug("lock.acquire.contended", "path", m.path)
			m.observer.InitialFailure()
			if m.observer.TerminateAfterInitialFailure() {
				return fmt.Errorf("%w: %s", ErrAborted, m.name)
			}
		}
		limit := time.Duration(0)
		if deadline, ok := ctx.Deadline(); ok {
			limit = deadline.Sub(m.clock.Now())
			if limit <= 0 {
				return fmt.Errorf("%w: %s", ErrTimeout, m.name)
			}
		}
		select {
		case <-ctx.Done():
			return m.contextFailure(ctx.Err())
		case <-m.clock.After(backoff.Next(limit)):
		}
	}
}

// step performs one atomic attempt: reentrant fast path, then a
// non-blocking flock. It reports whether the lock is now held by this call.
func (m *Mutex) step() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth > 0 {
		m.depth++
		return true, nil
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return false, fmt.Errorf("open lock file %s: %w", m.path, err)
	}
	// Same best-effort mode relaxation as the directory.
	_ = f.Chmod(0o666)
	ok, err := flockTry(f)
	if err != nil {
		f.Close()
		return false, err
	}
	if !ok {
		f.Close()
		return false, nil
	}
	// Record the holder pid. The content is informational only; locking
	// never reads it.
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	m.depth = 1
	m.handle = f
	return true, nil
}

// Release undoes one Acquire. The OS-level lock is dropped only when the
// reentrant depth returns to zero. Calling Release without holding the lock
// fails with ErrNotHeld.
func (m *Mutex) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		return fmt.Errorf("%w: %s", ErrNotHeld, m.name)
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	handle := m.handle
	m.handle = nil
	if handle == nil {
		return nil
	}
	_ = handle.Truncate(0)
	if err := flockRelease(handle); err != nil {
		handle.Close()
		return err
	}
	if err := handle.Close(); err != nil {
		return fmt.Errorf("close lock file %s: %w", m.path, err)
	}
	m.logger.Debug("lock.released")
	return nil
}

// Depth returns the current reentrant depth, for diagnostics and tests.
func (m *Mutex) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// Probe reports whether any process currently holds the lock, without
// waiting and without disturbing holders. When the lock is held and the
// holder recorded its pid, pid carries it; pid 0 means unknown.
func (m *Mutex) Probe() (held bool, pid int, err error) {
	m.mu.Lock()
	if m.depth > 0 {
		m.mu.Unlock()
		return true, os.Getpid(), nil
	}
	m.mu.Unlock()
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("open lock file %s: %w", m.path, err)
	}
	defer f.Close()
	ok, err := flockTry(f)
	if err != nil {
		return false, 0, err
	}
	if ok {
		// Nobody held it; drop the probe lock again.
		if err := flockRelease(f); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	if recorded, convErr := strconv.Atoi(strings.TrimSpace(string(buf[:n]))); convErr == nil {
		pid = recorded
	}
	return true, pid, nil
}

func (m *Mutex) contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, m.name)
	}
	return err
}
