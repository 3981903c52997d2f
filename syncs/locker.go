// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

// Locker is the exclusive-lock capability: Lock blocks until the caller
// holds the lock exclusively, and Unlock gives it back.
//
// It has the same method set as sync.Locker, so *sync.Mutex and
// *sync.RWMutex both satisfy it.
type Locker interface {
	Lock()
	Unlock()
}

// RWLocker is the shared-lock capability. In addition to Locker's exclusive
// mode, RLock acquires a hold that any number of other RLock holders may
// share but that excludes Lock holders.
type RWLocker interface {
	Locker
	RLock()
	RUnlock()
}

// LockerOf is satisfied by *M when *M is a Locker.
//
// It lets a generic type store a lock M by value and still call its
// pointer methods:
//
//	type box[M any, PM LockerOf[M]] struct{ mu M }
//
//	func (b *box[M, PM]) lock() { PM(&b.mu).Lock() }
type LockerOf[M any] interface {
	*M
	Locker
}

// RWLockerOf is satisfied by *M when *M is an RWLocker.
type RWLockerOf[M any] interface {
	*M
	RWLocker
}
