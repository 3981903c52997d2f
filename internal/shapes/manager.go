// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package shapes

import (
	"lockguard.io/protected"
	"lockguard.io/syncs"
)

// Manager holds a list of shapes, each in its own container guarded by a
// lock of type M.
//
// The zero value is an empty Manager.
type Manager[M any, PM syncs.RWLockerOf[M]] struct {
	shapes protected.RWMutex[[]*protected.Data[Shape, M, PM]]
}

// Add takes ownership of s and returns the container now holding it.
func (m *Manager[M, PM]) Add(s Shape) *protected.Data[Shape, M, PM] {
	h := protected.New[Shape, M, PM](s)
	m.shapes.WithExclusive(func(l *[]*protected.Data[Shape, M, PM]) {
		*l = append(*l, h)
	})
	return h
}

// Len returns the number of shapes in m.
func (m *Manager[M, PM]) Len() (n int) {
	protected.WithShared(&m.shapes, func(l []*protected.Data[Shape, M, PM]) {
		n = len(l)
	})
	return n
}

// At returns the container of the i'th shape, or false if i is out of range.
func (m *Manager[M, PM]) At(i int) (h *protected.Data[Shape, M, PM], ok bool) {
	protected.WithShared(&m.shapes, func(l []*protected.Data[Shape, M, PM]) {
		if i >= 0 && i < len(l) {
			h, ok = l[i], true
		}
	})
	return h, ok
}

// All returns the containers of all shapes in m, in the order they were added.
func (m *Manager[M, PM]) All() []*protected.Data[Shape, M, PM] {
	var out []*protected.Data[Shape, M, PM]
	protected.WithShared(&m.shapes, func(l []*protected.Data[Shape, M, PM]) {
		out = append(out, l...)
	})
	return out
}

// Squares returns handles to the shapes in m that are squares. Each handle
// shares its lock and storage with the container returned by At.
func (m *Manager[M, PM]) Squares() []*protected.Data[*Square, M, PM] {
	var out []*protected.Data[*Square, M, PM]
	for _, h := range m.All() {
		if sq, ok := protected.NarrowOwner[*Square](h); ok {
			out = append(out, sq)
		}
	}
	return out
}

// Names returns the current name of every shape in m, taking a shared
// hold on each in turn.
func (m *Manager[M, PM]) Names() []string {
	var names []string
	for _, h := range m.All() {
		protected.WithShared(h, func(s Shape) {
			names = append(names, s.Name())
		})
	}
	return names
}

// TotalArea sums the areas of the shapes in m that have one.
func (m *Manager[M, PM]) TotalArea() float64 {
	var sum float64
	for _, h := range m.All() {
		protected.WithNarrowShared(h, func(s Sized) {
			sum += s.Area()
		})
	}
	return sum
}
