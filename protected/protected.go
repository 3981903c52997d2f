// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package protected

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"lockguard.io/syncs"
)

// Data owns a value of type T and the lock M that guards it.
//
// The zero value is an unlocked container holding the zero T. A Data must
// not be copied after first use; pass *Data around instead. The garbage
// collector keeps the storage alive while any handle or guard refers to it.
//
// If T is an interface type, the dynamic type of the stored value is fixed
// once the value is non-nil: a later write through a guard that changes it,
// or that stores nil, panics. That keeps [CanNarrow] lock-free and keeps
// handles returned by [NarrowOwner] valid for as long as they are
// referenced. To hold values of varying dynamic types, wrap them in a
// struct.
type Data[T any, M any, PM syncs.LockerOf[M]] struct {
	_    noCopy
	mu   M
	meta meta
	root valueSlot[T]

	// alias is non-nil for handles returned by NarrowOwner. Such handles
	// use the lock, bookkeeping and storage of the Data they came from
	// and leave mu, meta and root unused.
	alias *alias[T, PM]
}

// Mutex is a Data guarded by a [syncs.Mutex]. It offers exclusive access only.
type Mutex[T any] = Data[T, syncs.Mutex, *syncs.Mutex]

// RWMutex is a Data guarded by a [syncs.RWMutex]. It offers both exclusive
// and shared access.
type RWMutex[T any] = Data[T, syncs.RWMutex, *syncs.RWMutex]

type alias[T any, L syncs.Locker] struct {
	mu       L
	meta     *meta
	slot     slot[T]
	fallback reflect.Type // kind of the original storage when nothing is pinned
}

// meta is the per-storage bookkeeping shared by every handle and guard
// over the same storage.
type meta struct {
	pinned  atomic.Pointer[reflect.Type] // dynamic type of the stored value, once known
	writer  atomic.Bool
	readers atomic.Int32
}

// pin records t as the dynamic type of the stored value.
func (m *meta) pin(t reflect.Type) {
	if t != nil {
		m.pinned.Store(&t)
	}
}

// kind returns the pinned dynamic type, or fallback if none is pinned yet.
func (m *meta) kind(fallback reflect.Type) reflect.Type {
	if p := m.pinned.Load(); p != nil {
		return *p
	}
	return fallback
}

// New returns a Data that takes ownership of v.
//
// Callers typically name T and M and let PM be inferred:
//
//	d := protected.New[Shape, sync.RWMutex](sq)
func New[T, M any, PM syncs.LockerOf[M]](v T) *Data[T, M, PM] {
	d := &Data[T, M, PM]{root: valueSlot[T]{v: v}}
	d.meta.pin(typeOf(v))
	return d
}

// NewFunc returns a Data whose value is built by fill. fill runs exactly
// once, before the Data is visible to any other goroutine.
func NewFunc[T, M any, PM syncs.LockerOf[M]](fill func() T) *Data[T, M, PM] {
	d := new(Data[T, M, PM])
	d.root.v = fill()
	d.meta.pin(typeOf(d.root.v))
	return d
}

// NewMutex returns a [Mutex] holding v.
func NewMutex[T any](v T) *Mutex[T] {
	return New[T, syncs.Mutex](v)
}

// NewRWMutex returns an [RWMutex] holding v.
func NewRWMutex[T any](v T) *RWMutex[T] {
	return New[T, syncs.RWMutex](v)
}

// parts returns the lock, bookkeeping and storage behind d, and the type
// to report while no dynamic type is pinned.
func (d *Data[T, M, PM]) parts() (PM, *meta, slot[T], reflect.Type) {
	if d == nil {
		panic("protected: use of nil *Data")
	}
	if a := d.alias; a != nil {
		return a.mu, a.meta, a.slot, a.fallback
	}
	var zero T
	return PM(&d.mu), &d.meta, &d.root, typeOf(zero)
}

// kind returns the dynamic type of the value stored in d, or nil if d
// holds a nil interface.
func (d *Data[T, M, PM]) kind() reflect.Type {
	_, m, _, fallback := d.parts()
	return m.kind(fallback)
}

// Exclusive blocks until d's lock is held exclusively and returns a guard
// granting read-write access to the value. The caller must call Release
// on the guard, typically with defer.
func (d *Data[T, M, PM]) Exclusive() *ExclusiveGuard[T, PM] {
	mu, m, s, fallback := d.parts()
	mu.Lock()
	return newExclusiveGuard(mu, m, s, fallback)
}

// WithExclusive calls f with a pointer to the value while holding d's lock
// exclusively. The pointer must not be retained after f returns.
func (d *Data[T, M, PM]) WithExclusive(f func(*T)) {
	g := d.Exclusive()
	defer g.Release()
	f(g.Ptr())
}

// Shared blocks until a shared hold on d's lock is obtained and returns a
// guard granting read-only access to the value. Any number of shared
// guards may be held at once. The caller must call Release on the guard.
//
// Shared is only available when d's lock supports shared locking.
func Shared[T, M any, PM syncs.RWLockerOf[M]](d *Data[T, M, PM]) *SharedGuard[T, PM] {
	mu, m, s, _ := d.parts()
	mu.RLock()
	return newSharedGuard(mu, m, s)
}

// WithShared calls f with the value while holding a shared hold on d's lock.
//
// f must treat the value as read-only, including anything it refers to.
func WithShared[T, M any, PM syncs.RWLockerOf[M]](d *Data[T, M, PM], f func(T)) {
	g := Shared(d)
	defer g.Release()
	f(g.Get())
}

// State describes the guards outstanding on a Data. At most one of
// Exclusive and Shared > 0 holds at any time.
type State struct {
	Exclusive bool // an ExclusiveGuard is held
	Shared    int  // number of SharedGuards held
}

// Idle reports whether no guard is held.
func (s State) Idle() bool { return !s.Exclusive && s.Shared == 0 }

func (s State) String() string {
	switch {
	case s.Exclusive:
		return "exclusive"
	case s.Shared > 0:
		return fmt.Sprintf("shared(%d)", s.Shared)
	}
	return "idle"
}

// State returns a snapshot of the guards outstanding on d. It does not
// take d's lock, so the answer may be stale by the time it's returned.
func (d *Data[T, M, PM]) State() State {
	_, m, _, _ := d.parts()
	return State{
		Exclusive: m.writer.Load(),
		Shared:    int(m.readers.Load()),
	}
}

// Idle is shorthand for d.State().Idle().
func (d *Data[T, M, PM]) Idle() bool { return d.State().Idle() }

// Same reports whether a and b are handles to the same storage, as is the
// case for a Data and the handles [NarrowOwner] returns for it.
func Same[A, B, M any, PM syncs.LockerOf[M]](a *Data[A, M, PM], b *Data[B, M, PM]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	_, am, _, _ := a.parts()
	_, bm, _, _ := b.parts()
	return am == bm
}

// typeOf returns the dynamic type of v, or nil if v is a nil interface.
func typeOf[T any](v T) reflect.Type {
	return reflect.TypeOf(any(v))
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
