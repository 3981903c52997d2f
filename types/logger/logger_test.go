// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"lockguard.io/envknob"
)

// collect returns a Logf that appends each formatted line to *got.
func collect(got *[]string) Logf {
	return func(format string, args ...any) {
		*got = append(*got, fmt.Sprintf(format, args...))
	}
}

func TestRateLimiter(t *testing.T) {
	var got []string
	lg := RateLimitedFn(collect(&got), time.Hour, 2, 50)
	for i := range 10 {
		lg("boring string with constant formatting %s", "(constant)")
		if i == 4 {
			WithPrefix(lg, "prefix: ")("templated %d", i)
		}
	}

	want := []string{
		"boring string with constant formatting (constant)",
		"boring string with constant formatting (constant)",
		`[RATE LIMITED] format string "boring string with constant formatting %s" (example: "boring string with constant formatting (constant)")`,
		"prefix: templated 4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("logged lines mismatch (-want +got):\n%s", diff)
	}
}

func TestRateLimiterCacheEviction(t *testing.T) {
	var got []string
	lg := RateLimitedFn(collect(&got), time.Hour, 1, 1)
	lg("a %d", 1)
	lg("b %d", 1) // evicts "a %d"
	lg("a %d", 2) // fresh bucket for "a %d"
	want := []string{"a 1", "b 1", "a 2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("logged lines mismatch (-want +got):\n%s", diff)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	envknob.Setenv("LOCKGUARD_DEBUG_LOG_RATE", "all")
	t.Cleanup(func() { envknob.Setenv("LOCKGUARD_DEBUG_LOG_RATE", "") })

	var got []string
	lg := RateLimitedFn(collect(&got), time.Hour, 1, 1)
	for range 5 {
		lg("same %s", "line")
	}
	if len(got) != 5 {
		t.Errorf("got %d lines; want 5 with rate limiting disabled", len(got))
	}
}

func TestWithPrefix(t *testing.T) {
	var got []string
	lg := WithPrefix(WithPrefix(collect(&got), "a: "), "b: ")
	lg("n=%d", 1)
	if diff := cmp.Diff([]string{"a: b: n=1"}, got); diff != "" {
		t.Errorf("logged lines mismatch (-want +got):\n%s", diff)
	}
}

func TestPeakRSS(t *testing.T) {
	rss, ok := PeakRSS()
	if runtime.GOOS == "linux" && !ok {
		t.Fatal("PeakRSS not reported on linux")
	}
	if ok && rss <= 0 {
		t.Errorf("PeakRSS = %d; want > 0", rss)
	}
}
