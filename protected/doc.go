// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package protected provides [Data], a container that owns a value together
// with the lock guarding it. The value is reachable only through guards:
// an [ExclusiveGuard] for reading and writing, or a [SharedGuard] for reading
// alongside other readers.
//
// The lock type is a type parameter. Any type whose pointer has Lock and
// Unlock methods can guard a Data; shared access ([Shared], [WithShared],
// [TryNarrowShared]) additionally requires RLock and RUnlock and does not
// compile otherwise. [Mutex] and [RWMutex] are the common instantiations.
//
// Example:
//
//	type Account struct {
//	  balance protected.RWMutex[int]
//	}
//
//	func (a *Account) Deposit(n int) {
//	  a.balance.WithExclusive(func(b *int) { *b += n })
//	}
//
//	func (a *Account) Balance() int {
//	  g := protected.Shared(&a.balance)
//	  defer g.Release()
//	  return g.Get()
//	}
//
// When the protected value is an interface, [CanNarrow], [TryNarrowExclusive],
// [TryNarrowShared] and [NarrowOwner] check its dynamic type and hand out
// guards or handles typed as the concrete type, still backed by the same lock
// and the same storage.
//
// Acquiring a second guard on the same Data from a goroutine that already
// holds one deadlocks. Locks are not reentrant and this is not detected.
package protected
