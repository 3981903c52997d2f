// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package tstest provides utilities for use in unit tests.
package tstest

import (
	"testing"
	"time"
)

// Replace replaces the value of target with val.
// The old value is restored when the test ends.
func Replace[T any](t testing.TB, target *T, val T) {
	t.Helper()
	if target == nil {
		t.Fatalf("Replace: nil pointer")
		panic("unreachable") // pacify staticcheck
	}
	old := *target
	t.Cleanup(func() {
		*target = old
	})

	*target = val
}

// WaitFor retries try for up to maxWait.
// It returns nil once try returns nil the first time.
// If maxWait passes without success, it returns try's last error.
func WaitFor(maxWait time.Duration, try func() error) error {
	bo := 10 * time.Millisecond
	deadline := time.Now().Add(maxWait)
	var err error
	for time.Now().Before(deadline) {
		err = try()
		if err == nil {
			break
		}
		time.Sleep(bo)
		bo = min(2*bo, time.Second)
	}
	return err
}

// AssertBlocked fails tb if done is closed, or closes within d.
// It's used to check that a goroutine is stuck waiting on something,
// such as a lock held by the test.
func AssertBlocked(tb testing.TB, done <-chan struct{}, d time.Duration) {
	tb.Helper()
	select {
	case <-done:
		tb.Fatalf("unexpectedly unblocked within %v", d)
	case <-time.After(d):
	}
}

// AssertUnblocks fails tb if done isn't closed within d.
func AssertUnblocks(tb testing.TB, done <-chan struct{}, d time.Duration) {
	tb.Helper()
	select {
	case <-done:
	case <-time.After(d):
		tb.Fatalf("still blocked after %v", d)
	}
}
