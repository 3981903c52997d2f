// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package protected

import (
	"fmt"
	"reflect"
)

// slot is where a guard finds its value. All methods require the lock.
type slot[T any] interface {
	load() T

	// borrow returns a pointer through which the value may be modified.
	// If commit is non-nil, writes through p only reach the storage when
	// commit is called. A failed commit leaves the storage unchanged.
	borrow() (p *T, commit func() error)
}

// valueSlot is the storage of a Data.
type valueSlot[T any] struct {
	v T
}

func (s *valueSlot[T]) load() T                    { return s.v }
func (s *valueSlot[T]) borrow() (*T, func() error) { return &s.v, nil }

// narrowSlot views a T-typed slot as holding a D. The view is only made
// after checking that the stored value is a D.
type narrowSlot[D, T any] struct {
	base slot[T]
}

func (s narrowSlot[D, T]) load() D {
	d, _ := any(s.base.load()).(D)
	return d
}

// tryLoad is load, also reporting whether the stored value is a D.
func (s narrowSlot[D, T]) tryLoad() (D, bool) {
	d, ok := any(s.base.load()).(D)
	return d, ok
}

func (s narrowSlot[D, T]) borrow() (*D, func() error) {
	d := s.load()
	return &d, func() error { return s.store(d) }
}

// store writes d back into the base storage.
func (s narrowSlot[D, T]) store(d D) error {
	var t T
	if v := any(d); v != nil {
		var ok bool
		if t, ok = v.(T); !ok {
			return fmt.Errorf("protected: cannot store %T in storage of type %v", v, reflect.TypeFor[T]())
		}
	}
	p, commit := s.base.borrow()
	*p = t
	if commit != nil {
		return commit()
	}
	return nil
}
