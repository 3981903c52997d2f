// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package protected

import (
	"fmt"
	"reflect"

	"lockguard.io/syncs"
)

// ExclusiveGuard grants read-write access to a value while holding its
// lock exclusively. No other guard over the same lock exists while an
// ExclusiveGuard is held.
//
// ExclusiveGuards are created by [Data.Exclusive] and [TryNarrowExclusive].
// Release must be called exactly once; any use after Release panics.
type ExclusiveGuard[T any, L syncs.Locker] struct {
	_        noCopy
	mu       L
	meta     *meta
	slot     slot[T]
	fallback reflect.Type
	p        *T
	commit   func() error // nil if p points directly into storage

	// orig is the value at acquisition, kept when p points directly into
	// interface-typed storage so that a retyping write can be undone.
	orig     T
	haveOrig bool
	released bool
}

func newExclusiveGuard[T any, L syncs.Locker](mu L, m *meta, s slot[T], fallback reflect.Type) *ExclusiveGuard[T, L] {
	m.writer.Store(true)
	p, commit := s.borrow()
	g := &ExclusiveGuard[T, L]{
		mu:       mu,
		meta:     m,
		slot:     s,
		fallback: fallback,
		p:        p,
		commit:   commit,
	}
	if commit == nil && reflect.TypeFor[T]().Kind() == reflect.Interface {
		g.orig, g.haveOrig = *p, true
	}
	return g
}

func (g *ExclusiveGuard[T, L]) check() {
	if g.released {
		panic("protected: use of released guard")
	}
}

// Get returns the value.
func (g *ExclusiveGuard[T, L]) Get() T {
	g.check()
	return *g.p
}

// Set replaces the value.
//
// It panics, leaving the value unchanged, if v's dynamic type differs from
// the one already stored.
func (g *ExclusiveGuard[T, L]) Set(v T) {
	g.check()
	if want, got := g.meta.kind(g.fallback), typeOf(v); want != nil && got != want {
		panic(retypeMessage(want, got))
	}
	*g.p = v
}

// Ptr returns a pointer to the value for in-place modification. It is valid
// until Release and must not be retained past it.
func (g *ExclusiveGuard[T, L]) Ptr() *T {
	g.check()
	return g.p
}

// Release gives up the exclusive hold. Writes made through a guard
// returned by [TryNarrowExclusive] reach the storage at this point.
//
// Release panics if called twice. If the value's dynamic type was changed
// through Ptr, Release puts back the value the guard started with, unlocks
// and then panics.
func (g *ExclusiveGuard[T, L]) Release() {
	if g.released {
		panic("protected: guard released twice")
	}
	g.released = true
	var msg string
	want := g.meta.kind(g.fallback)
	if got := typeOf(*g.p); want != nil && got != want {
		msg = retypeMessage(want, got)
		if g.haveOrig {
			*g.p = g.orig
		}
		// A narrowed guard's copy is dropped without being committed.
	} else if g.commit != nil {
		if err := g.commit(); err != nil {
			msg = err.Error()
		}
	}
	if want == nil {
		g.meta.pin(typeOf(g.slot.load()))
	}
	var zero T
	g.p, g.orig = nil, zero
	g.meta.writer.Store(false)
	g.mu.Unlock()
	if msg != "" {
		panic(msg)
	}
}

// SharedGuard grants read-only access to a value while holding a shared
// hold on its lock. Other SharedGuards over the same lock may be held at
// the same time; ExclusiveGuards may not.
//
// SharedGuards are created by [Shared] and [TryNarrowShared]. Release must
// be called exactly once; any use after Release panics.
type SharedGuard[T any, L syncs.RWLocker] struct {
	_        noCopy
	mu       L
	meta     *meta
	slot     slot[T]
	released bool
}

func newSharedGuard[T any, L syncs.RWLocker](mu L, m *meta, s slot[T]) *SharedGuard[T, L] {
	m.readers.Add(1)
	return &SharedGuard[T, L]{mu: mu, meta: m, slot: s}
}

// Get returns the value. The caller must not modify anything reachable
// through it.
func (g *SharedGuard[T, L]) Get() T {
	if g.released {
		panic("protected: use of released guard")
	}
	return g.slot.load()
}

// Release gives up the shared hold. It panics if called twice.
func (g *SharedGuard[T, L]) Release() {
	if g.released {
		panic("protected: guard released twice")
	}
	g.released = true
	g.meta.readers.Add(-1)
	g.mu.RUnlock()
}

func retypeMessage(want, got reflect.Type) string {
	return fmt.Sprintf("protected: stored value changed dynamic type from %v to %v", want, got)
}
