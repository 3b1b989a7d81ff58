// Package resourcelock serializes access to the resources the tool shares
// with other processes: the hardware bus, the configuration file, the cache
// file, and the log directory. Coordination runs entirely through advisory
// flock(2) locks on files under a well-known directory, so any cooperating
// process, regardless of language or privilege, can participate.
//
// Each logical resource is a NamedLock with a stable lock-file path. The
// usual entry points are the decorator forms:
//
//	reg, err := resourcelock.NewRegistry()
//	if err != nil { ... }
//	err = reg.With(ctx, resourcelock.TargetInteraction, func(ctx context.Context) error {
//	    return driveTheBus(ctx)
//	})
//
// and the bulk form for maintenance work that must not race with anything:
//
//	lease, err := reg.AllAcquired(ctx)
//	if err != nil { ... }
//	defer lease.Release()
//
// Acquisition polls with bounded backoff; there is no fairness among
// waiters. An Observer bound to a mutex sees the first failed attempt and
// the recovery after it, and may abort the attempt sequence instead of
// waiting. Bulk acquisition follows LockOrder strictly; see its comment for
// the deadlock reasoning.
package resourcelock
