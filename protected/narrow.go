// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package protected

import (
	"reflect"

	"lockguard.io/syncs"
)

// narrows reports whether a value of dynamic type kind can be asserted to D.
func narrows[D any](kind reflect.Type) bool {
	if kind == nil {
		return false
	}
	want := reflect.TypeFor[D]()
	if want.Kind() == reflect.Interface {
		return kind.Implements(want)
	}
	return kind == want
}

// CanNarrow reports whether the value stored in d is a D: that is, whether
// its dynamic type is D or, for an interface D, implements D. A nil stored
// interface is never a D.
//
// CanNarrow does not take d's lock. It returns false for a nil d.
func CanNarrow[D, T, M any, PM syncs.LockerOf[M]](d *Data[T, M, PM]) bool {
	if d == nil {
		return false
	}
	return narrows[D](d.kind())
}

// TryNarrowExclusive acquires d's lock exclusively and returns a guard over
// the stored value typed as D. The guard uses d's lock and d's storage:
// writes through it are visible through d once it is released.
//
// If the stored value is not a D, TryNarrowExclusive returns (nil, false)
// without blocking. The lock is acquired at most once per call.
func TryNarrowExclusive[D, T, M any, PM syncs.LockerOf[M]](d *Data[T, M, PM]) (*ExclusiveGuard[D, PM], bool) {
	if !CanNarrow[D](d) {
		return nil, false
	}
	mu, m, s, fallback := d.parts()
	mu.Lock()
	ns := narrowSlot[D, T]{base: s}
	if _, ok := ns.tryLoad(); !ok {
		mu.Unlock()
		return nil, false
	}
	return newExclusiveGuard[D](mu, m, slot[D](ns), fallback), true
}

// TryNarrowShared is like [TryNarrowExclusive] but takes a shared hold and
// returns a read-only guard.
func TryNarrowShared[D, T, M any, PM syncs.RWLockerOf[M]](d *Data[T, M, PM]) (*SharedGuard[D, PM], bool) {
	if !CanNarrow[D](d) {
		return nil, false
	}
	mu, m, s, _ := d.parts()
	mu.RLock()
	ns := narrowSlot[D, T]{base: s}
	if _, ok := ns.tryLoad(); !ok {
		mu.RUnlock()
		return nil, false
	}
	return newSharedGuard[D](mu, m, slot[D](ns)), true
}

// WithNarrowExclusive calls f with a pointer to the stored value typed as
// D while holding d's lock exclusively, and reports whether f was called.
// Writes through the pointer are stored when f returns.
func WithNarrowExclusive[D, T, M any, PM syncs.LockerOf[M]](d *Data[T, M, PM], f func(*D)) bool {
	g, ok := TryNarrowExclusive[D](d)
	if !ok {
		return false
	}
	defer g.Release()
	f(g.Ptr())
	return true
}

// WithNarrowShared calls f with the stored value typed as D while holding
// a shared hold on d's lock, and reports whether f was called.
func WithNarrowShared[D, T, M any, PM syncs.RWLockerOf[M]](d *Data[T, M, PM], f func(D)) bool {
	g, ok := TryNarrowShared[D](d)
	if !ok {
		return false
	}
	defer g.Release()
	f(g.Get())
	return true
}

// NarrowOwner returns a handle to d's storage typed as holding a D, if the
// stored value is a D. The new handle is not a copy: it shares d's lock and
// d's value, and guards obtained from either handle exclude each other.
//
// NarrowOwner does not take d's lock. It returns (nil, false) if d is nil
// or its value is not a D.
func NarrowOwner[D, T, M any, PM syncs.LockerOf[M]](d *Data[T, M, PM]) (*Data[D, M, PM], bool) {
	if !CanNarrow[D](d) {
		return nil, false
	}
	mu, m, s, fallback := d.parts()
	return &Data[D, M, PM]{
		alias: &alias[D, PM]{
			mu:       mu,
			meta:     m,
			slot:     narrowSlot[D, T]{base: s},
			fallback: fallback,
		},
	}, true
}
