package resourcelock

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/usbswitch/internal/clock"
)

// Registry owns the process-wide singleton mutex for every NamedLock. Build
// one Registry per process and share it; the reentrancy guarantees only
// hold when all callers go through the same instance.
type Registry struct {
	mutexes map[NamedLock]*Mutex
}

// ObserverFactory builds the observer bound to the mutex for a given lock.
type ObserverFactory func(NamedLock) Observer

// RegistryOption customises registry construction.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	dir       string
	logger    pslog.Logger
	clock     clock.Clock
	observers ObserverFactory
}

// WithRegistryDirectory overrides the lock directory for every mutex.
func WithRegistryDirectory(dir string) RegistryOption {
	return func(o *registryOptions) { o.dir = dir }
}

// WithRegistryLogger attaches a structured logger to every mutex.
func WithRegistryLogger(logger pslog.Logger) RegistryOption {
	return func(o *registryOptions) { o.logger = logger }
}

// WithRegistryClock substitutes the time source, mainly for tests.
func WithRegistryClock(c clock.Clock) RegistryOption {
	return func(o *registryOptions) { o.clock = c }
}

// WithObservers installs a factory producing one observer per mutex.
// Factories must hand out a fresh observer per call when the observer
// carries state.
func WithObservers(factory ObserverFactory) RegistryOption {
	return func(o *registryOptions) { o.observers = factory }
}

// NewRegistry eagerly constructs the mutex singletons for every lock in
// LockOrder.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{
		dir:    DefaultDirectory(),
		logger: pslog.NoopLogger(),
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	mutexes := make(map[NamedLock]*Mutex, len(LockOrder))
	for _, name := range LockOrder {
		mutexOpts := []MutexOption{
			WithDirectory(o.dir),
			WithLogger(o.logger),
			WithClock(o.clock),
		}
		if o.observers != nil {
			if obs := o.observers(name); obs != nil {
				mutexOpts = append(mutexOpts, WithObserver(obs))
			}
		}
		m, err := NewMutex(name, mutexOpts...)
		if err != nil {
			return nil, fmt.Errorf("build mutex for %s: %w", name, err)
		}
		mutexes[name] = m
	}
	return &Registry{mutexes: mutexes}, nil
}

// Mutex returns the singleton mutex for name.
func (r *Registry) Mutex(name NamedLock) *Mutex {
	return r.mutexes[name]
}

// With runs fn while holding the named lock, releasing it on every exit
// path. The wrapped function's error passes through untouched; a release
// failure after a successful fn is joined onto the result. A nil fn is a
// usage error rejected before any lock I/O.
func (r *Registry) With(ctx context.Context, name NamedLock, fn func(context.Context) error) error {
	wrapped, err := r.Wrap(name, fn)
	if err != nil {
		return err
	}
	return wrapped(ctx)
}

// Wrap is the decorator factory: it returns fn guarded by the named lock.
// The nil-function check happens here, at wrap time, so misconfiguration
// surfaces immediately rather than on first call.
func (r *Registry) Wrap(name NamedLock, fn func(context.Context) error) (func(context.Context) error, error) {
	if fn == nil {
		return nil, ErrNotInvocable
	}
	m := r.Mutex(name)
	if m == nil {
		return nil, fmt.Errorf("resourcelock: no mutex registered for %s", name)
	}
	return func(ctx context.Context) (err error) {
		if acquireErr := m.Acquire(ctx); acquireErr != nil {
			return acquireErr
		}
		// Release must run even when fn fails or panics; a failure from fn
		// passes through untouched, with any release failure joined on.
		defer func() {
			if releaseErr := m.Release(); releaseErr != nil {
				err = errors.Join(err, releaseErr)
			}
		}()
		return fn(ctx)
	}, nil
}

// WithValue runs fn under the named lock in r and returns its result. It is
// the value-returning shape of Registry.With.
func WithValue[T any](ctx context.Context, r *Registry, name NamedLock, fn func(context.Context) (T, error)) (T, error) {
	var result T
	if fn == nil {
		return result, ErrNotInvocable
	}
	err := r.With(ctx, name, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// BulkLease holds every registered lock. Release drops them in exact
// reverse acquisition order.
type BulkLease struct {
	held []*Mutex
}

// AllAcquired takes every lock in LockOrder and returns a lease over all of
// them. If any intermediate acquisition fails, the locks already taken are
// released in reverse order before the failure propagates: the bulk hold is
// all or nothing.
func (r *Registry) AllAcquired(ctx context.Context) (*BulkLease, error) {
	lease := &BulkLease{held: make([]*Mutex, 0, len(LockOrder))}
	for _, name := range LockOrder {
		m := r.Mutex(name)
		if err := m.Acquire(ctx); err != nil {
			releaseErr := lease.Release()
			if releaseErr != nil {
				return nil, errors.Join(fmt.Errorf("acquire %s: %w", name, err), releaseErr)
			}
			return nil, fmt.Errorf("acquire %s: %w", name, err)
		}
		lease.held = append(lease.held, m)
	}
	return lease, nil
}

// Release drops the held locks in reverse order. It keeps going past
// individual failures and joins them.
func (l *BulkLease) Release() error {
	var err error
	for i := len(l.held) - 1; i >= 0; i-- {
		if releaseErr := l.held[i].Release(); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}
	l.held = nil
	return err
}
