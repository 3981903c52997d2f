// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package shapes is a small catalog of shapes guarded by
// lockguard.io/protected containers. It is used by cmd/shapedemo.
package shapes

import (
	"fmt"
	"math"

	"lockguard.io/protected"
)

// Shape is anything with a name.
type Shape interface {
	Name() string
	SetName(string)
}

// Sized is a Shape with an area.
type Sized interface {
	Shape
	Area() float64
}

// Named is the base of the shapes in this package.
type Named struct {
	name string
}

// NewNamed returns a Named shape called name.
func NewNamed(name string) *Named { return &Named{name: name} }

func (n *Named) Name() string     { return n.name }
func (n *Named) SetName(s string) { n.name = s }
func (n *Named) String() string   { return n.name }

// Square is a square with a list of values attached.
//
// The values have their own lock, so AddValue and NumValues may be called
// by a holder of a shared guard on the Square.
type Square struct {
	Named
	edge   float64
	values protected.RWMutex[[]int]
}

// NewSquare returns a square with the given name and edge length.
func NewSquare(name string, edge float64) *Square {
	return &Square{Named: Named{name: name}, edge: edge}
}

func (s *Square) Edge() float64     { return s.edge }
func (s *Square) SetEdge(e float64) { s.edge = e }
func (s *Square) Area() float64     { return s.edge * s.edge }
func (s *Square) String() string    { return fmt.Sprintf("%s (square, edge %g)", s.name, s.edge) }

// AddValue appends v to the values attached to s.
func (s *Square) AddValue(v int) {
	s.values.WithExclusive(func(vs *[]int) { *vs = append(*vs, v) })
}

// NumValues returns the number of values attached to s.
func (s *Square) NumValues() (n int) {
	protected.WithShared(&s.values, func(vs []int) { n = len(vs) })
	return n
}

// Values returns a copy of the values attached to s.
func (s *Square) Values() []int {
	var out []int
	protected.WithShared(&s.values, func(vs []int) { out = append(out, vs...) })
	return out
}

// Circle is a circle.
type Circle struct {
	Named
	radius float64
}

// NewCircle returns a circle with the given name and radius.
func NewCircle(name string, radius float64) *Circle {
	return &Circle{Named: Named{name: name}, radius: radius}
}

func (c *Circle) Radius() float64 { return c.radius }
func (c *Circle) Area() float64   { return math.Pi * c.radius * c.radius }
func (c *Circle) String() string  { return fmt.Sprintf("%s (circle, radius %g)", c.name, c.radius) }
