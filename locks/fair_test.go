// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/sync/errgroup"
	"lockguard.io/syncs"
	"lockguard.io/tstest"
)

var _ syncs.RWLocker = (*Fair)(nil)

func TestFairExclusion(t *testing.T) {
	var (
		f Fair
		n int
		g errgroup.Group
	)
	for range 8 {
		g.Go(func() error {
			for range 500 {
				f.Lock()
				n++
				f.Unlock()
			}
			return nil
		})
	}
	qt.Assert(t, g.Wait(), qt.IsNil)
	qt.Assert(t, n, qt.Equals, 8*500)
}

func TestFairTry(t *testing.T) {
	c := qt.New(t)
	var f Fair
	c.Assert(f.TryLock(), qt.IsTrue)
	c.Assert(f.TryLock(), qt.IsFalse)
	c.Assert(f.TryRLock(), qt.IsFalse)
	f.Unlock()

	c.Assert(f.TryRLock(), qt.IsTrue)
	c.Assert(f.TryRLock(), qt.IsTrue)
	c.Assert(f.TryLock(), qt.IsFalse)
	f.RUnlock()
	f.RUnlock()
	c.Assert(f.TryLock(), qt.IsTrue)
	f.Unlock()
}

func TestFairLockContext(t *testing.T) {
	var f Fair
	f.RLock()
	defer f.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.LockContext(ctx)
	qt.Assert(t, errors.Is(err, context.DeadlineExceeded), qt.IsTrue, qt.Commentf("err = %v", err))

	// The abandoned writer must not hold anything.
	qt.Assert(t, f.TryRLock(), qt.IsTrue)
	f.RUnlock()
}

func TestFairWriterNotStarved(t *testing.T) {
	tstest.ResourceCheck(t)
	var f Fair
	f.RLock()

	writerDone := make(chan struct{})
	go func() {
		f.Lock()
		close(writerDone)
		time.Sleep(10 * time.Millisecond)
		f.Unlock()
	}()

	// Wait for the writer to queue up behind the first reader.
	err := tstest.WaitFor(5*time.Second, func() error {
		if f.TryRLock() {
			f.RUnlock()
			return errors.New("writer not waiting yet")
		}
		return nil
	})
	qt.Assert(t, err, qt.IsNil)

	readerDone := make(chan struct{})
	go func() {
		f.RLock()
		defer f.RUnlock()
		close(readerDone)
	}()
	tstest.AssertBlocked(t, readerDone, 20*time.Millisecond)

	f.RUnlock()
	tstest.AssertUnblocks(t, writerDone, 5*time.Second)
	tstest.AssertUnblocks(t, readerDone, 5*time.Second)
}
