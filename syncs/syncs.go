// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package syncs contains the lock capability contracts used by
// lockguard.io/protected, plus a few additional sync types.
package syncs

import "sync/atomic"

// WaitGroupChan is like a sync.WaitGroup, but has a chan that closes
// on completion that you can wait on. (This, you can only use the
// value once)
// Also, its zero value is not usable. Use the constructor.
type WaitGroupChan struct {
	n    atomic.Int64
	done chan struct{} // closed on transition to zero
}

// NewWaitGroupChan returns a new single-use WaitGroupChan.
func NewWaitGroupChan() *WaitGroupChan {
	return &WaitGroupChan{done: make(chan struct{})}
}

// DoneChan returns a channel that's closed on completion.
func (c *WaitGroupChan) DoneChan() <-chan struct{} { return c.done }

// Add adds delta, which may be negative, to the WaitGroupChan
// counter. If the counter becomes zero, all goroutines blocked on
// Wait or the Done chan are released. If the counter goes negative,
// Add panics.
func (c *WaitGroupChan) Add(delta int) {
	n := c.n.Add(int64(delta))
	switch {
	case n < 0:
		panic("syncs: negative WaitGroupChan counter")
	case n == 0:
		close(c.done)
	}
}

// Decr decrements the WaitGroupChan counter by one.
//
// (It is like sync.WaitGroup's Done method, but we don't use Done in
// this type, because it's ambiguous between Context.Done and
// WaitGroup.Done. So we use DoneChan and Decr instead.)
func (c *WaitGroupChan) Decr() {
	c.Add(-1)
}

// Wait blocks until the WaitGroupChan counter is zero.
func (c *WaitGroupChan) Wait() { <-c.done }
