// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Idler is implemented by values that can report whether anything is
// still using them, such as a *protected.Data with no guard outstanding.
type Idler interface {
	Idle() bool
}

// ResourceCheck registers a cleanup on tb that fails the test if goroutines
// started during the test are still running when it ends, or if any of idle
// is still in use by then. Both are given a few seconds to settle.
//
// It panics if called from a parallel test, whose neighbors' goroutines
// would be counted too.
func ResourceCheck(tb testing.TB, idle ...Idler) {
	tb.Helper()
	tb.Setenv("LOCKGUARD_CHECKING_RESOURCES", "1") // panics if tb is parallel

	before := runtime.NumGoroutine()
	stacks := goroutineStacks()
	tb.Cleanup(func() {
		if tb.Failed() {
			return
		}
		err := WaitFor(3*time.Second, func() error {
			if n := runtime.NumGoroutine(); n > before {
				return fmt.Errorf("%d goroutines running at the end of the test, %d at the start", n, before)
			}
			for i, x := range idle {
				if !x.Idle() {
					return fmt.Errorf("resource %d (%T) still in use at the end of the test", i, x)
				}
			}
			return nil
		})
		if err == nil {
			return
		}
		if runtime.NumGoroutine() > before {
			tb.Logf("goroutine stacks (-start +end):\n%s", cmp.Diff(stacks, goroutineStacks()))
		}
		tb.Error(err)
	})
}

// goroutineStacks returns the sorted stacks of all goroutines, without
// their "goroutine N [state]:" headers, so that two calls can be diffed.
func goroutineStacks() []string {
	buf := make([]byte, 1<<20)
	buf = buf[:runtime.Stack(buf, true)]
	var stacks []string
	for g := range strings.SplitSeq(string(buf), "\n\n") {
		_, stack, _ := strings.Cut(g, "\n")
		stacks = append(stacks, stack)
	}
	slices.Sort(stacks)
	return stacks
}
