// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"fmt"
	"math"
	"testing"
	"time"
)

// MinAllocsPerRun returns an error unless f can run with at most target
// allocations. Allocation counts are noisy, so f is measured in up to ten
// rounds of [testing.AllocsPerRun], stopping early after 5s, and the best
// round counts.
func MinAllocsPerRun(tb testing.TB, target uint64, f func()) error {
	tb.Helper()
	best := math.Inf(1)
	deadline := time.Now().Add(5 * time.Second)
	for range 10 {
		avg := testing.AllocsPerRun(100, f)
		if avg <= float64(target) {
			return nil
		}
		best = min(best, avg)
		if time.Now().After(deadline) {
			break
		}
	}
	return fmt.Errorf("best round averaged %.2f allocs/run; want <= %d", best, target)
}
