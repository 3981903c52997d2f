// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package locks contains lock implementations that satisfy the
// [syncs.RWLocker] contract and can guard a [protected.Data].
//
// [syncs.RWLocker]: lockguard.io/syncs.RWLocker
// [protected.Data]: lockguard.io/protected.Data
package locks

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// MaxReaders is the maximum number of shared holds a Fair may grant at once.
const MaxReaders = 1 << 20

// Fair is a reader/writer lock that grants holds in the order they were
// requested. A waiting writer blocks readers that arrive after it, so a
// steady stream of readers cannot starve it.
//
// The zero value is an unlocked Fair. A Fair must not be copied after
// first use.
type Fair struct {
	once sync.Once
	sem  *semaphore.Weighted
}

func (f *Fair) weighted() *semaphore.Weighted {
	f.once.Do(func() {
		f.sem = semaphore.NewWeighted(MaxReaders)
	})
	return f.sem
}

// Lock blocks until f is held exclusively.
func (f *Fair) Lock() {
	// Acquire only fails when the context is done.
	f.weighted().Acquire(context.Background(), MaxReaders)
}

// TryLock takes an exclusive hold if that is possible without waiting,
// and reports whether it did.
func (f *Fair) TryLock() bool {
	return f.weighted().TryAcquire(MaxReaders)
}

// LockContext is like Lock but gives up when ctx is done, returning its error.
func (f *Fair) LockContext(ctx context.Context) error {
	return f.weighted().Acquire(ctx, MaxReaders)
}

// Unlock releases an exclusive hold. It panics if f is not held
// exclusively.
func (f *Fair) Unlock() {
	f.weighted().Release(MaxReaders)
}

// RLock blocks until a shared hold on f is obtained.
func (f *Fair) RLock() {
	f.weighted().Acquire(context.Background(), 1)
}

// TryRLock takes a shared hold if that is possible without waiting, and
// reports whether it did. It fails while a writer is waiting.
func (f *Fair) TryRLock() bool {
	return f.weighted().TryAcquire(1)
}

// RUnlock releases a shared hold.
func (f *Fair) RUnlock() {
	f.weighted().Release(1)
}
