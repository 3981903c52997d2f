// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	_ Locker   = (*Mutex)(nil)
	_ RWLocker = (*RWMutex)(nil)
	_ Locker   = (*sync.Mutex)(nil)
	_ RWLocker = (*sync.RWMutex)(nil)
)

// ownsLock stores M by value, the way protected.Data does.
type ownsLock[M any, PM LockerOf[M]] struct {
	mu M
	n  int
}

func (o *ownsLock[M, PM]) incr() {
	PM(&o.mu).Lock()
	defer PM(&o.mu).Unlock()
	o.n++
}

func readLocked[M any, PM RWLockerOf[M]](o *ownsLock[M, PM]) int {
	PM(&o.mu).RLock()
	defer PM(&o.mu).RUnlock()
	return o.n
}

func TestLockerOf(t *testing.T) {
	c := qt.New(t)

	var m ownsLock[Mutex, *Mutex]
	var rw ownsLock[RWMutex, *RWMutex]
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				m.incr()
				rw.incr()
			}
		})
	}
	wg.Wait()
	c.Assert(m.n, qt.Equals, 800)
	c.Assert(readLocked(&rw), qt.Equals, 800)
}

func TestWaitGroupChan(t *testing.T) {
	wg := NewWaitGroupChan()

	wantNotDone := func() {
		t.Helper()
		select {
		case <-wg.DoneChan():
			t.Fatal("done too early")
		default:
		}
	}

	wantDone := func() {
		t.Helper()
		select {
		case <-wg.DoneChan():
		default:
			t.Fatal("expected to be done")
		}
	}

	wg.Add(2)
	wantNotDone()

	wg.Decr()
	wantNotDone()

	wg.Decr()
	wantDone()
	wantDone()
}

func TestWaitGroupChanWait(t *testing.T) {
	wg := NewWaitGroupChan()
	wg.Add(3)
	for range 3 {
		go wg.Decr()
	}
	select {
	case <-wg.DoneChan():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for counter to reach zero")
	}
	wg.Wait()
}

func TestWaitGroupChanNegative(t *testing.T) {
	c := qt.New(t)
	wg := NewWaitGroupChan()
	c.Assert(func() { wg.Decr() }, qt.PanicMatches, "syncs: negative WaitGroupChan counter")
}
