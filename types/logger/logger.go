// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package logger defines Logf, the printf-style logging func that
// lockguard.io packages take instead of a logger object, and helpers
// that wrap one.
package logger

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"lockguard.io/envknob"
)

// Logf is a printf-like logging func. The format need not end in a
// newline, and a Logf must be safe for concurrent use.
//
// Wrappers should pass the format and args through rather than
// pre-formatting them, since RateLimitedFn keys on the format.
type Logf func(format string, args ...any)

// WithPrefix returns a Logf that logs to f with prefix prepended to
// each format.
func WithPrefix(f Logf, prefix string) Logf {
	return func(format string, args ...any) {
		f(prefix+format, args...)
	}
}

// Discard is a Logf that drops everything.
func Discard(string, ...any) {}

var logRate = envknob.RegisterString("LOCKGUARD_DEBUG_LOG_RATE")

// RateLimitedFn returns a Logf that passes calls through to logf, allowing
// each format string one call per every with bursts of up to burst. At
// most maxCache formats are tracked, forgetting the least recently used.
// The first call dropped for a format is replaced by a single
// "[RATE LIMITED]" line quoting it.
//
// Setting LOCKGUARD_DEBUG_LOG_RATE=all turns rate limiting off.
func RateLimitedFn(logf Logf, every time.Duration, burst, maxCache int) Logf {
	if logRate() == "all" {
		return logf
	}
	fl := &formatLimiter{
		limit:    rate.Every(every),
		burst:    burst,
		maxCache: maxCache,
		byFormat: make(map[string]*list.Element),
		lru:      list.New(),
	}
	return func(format string, args ...any) {
		switch fl.judge(format) {
		case pass:
			logf(format, args...)
		case warn:
			logf("[RATE LIMITED] format string %q (example: %q)",
				format, strings.TrimSpace(fmt.Sprintf(format, args...)))
		}
	}
}

type verdict int

const (
	pass verdict = iota
	warn
	drop
)

// formatLimiter keeps a token bucket per format string.
type formatLimiter struct {
	limit    rate.Limit
	burst    int
	maxCache int

	mu       sync.Mutex
	byFormat map[string]*list.Element // values are *formatState
	lru      *list.List               // most recently used at the front
}

type formatState struct {
	format string
	lim    *rate.Limiter
	warned bool // a [RATE LIMITED] line was logged since the last pass
}

func (fl *formatLimiter) judge(format string) verdict {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	st := fl.lookupLocked(format)
	if st.lim.Allow() {
		st.warned = false
		return pass
	}
	if st.warned {
		return drop
	}
	st.warned = true
	return warn
}

func (fl *formatLimiter) lookupLocked(format string) *formatState {
	if e, ok := fl.byFormat[format]; ok {
		fl.lru.MoveToFront(e)
		return e.Value.(*formatState)
	}
	st := &formatState{format: format, lim: rate.NewLimiter(fl.limit, fl.burst)}
	fl.byFormat[format] = fl.lru.PushFront(st)
	for fl.lru.Len() > fl.maxCache {
		oldest := fl.lru.Remove(fl.lru.Back()).(*formatState)
		delete(fl.byFormat, oldest.format)
	}
	return st
}

// PeakRSS returns the peak resident set size of the process in bytes.
// ok is false on platforms that don't report it.
func PeakRSS() (bytes int64, ok bool) {
	return peakRSS()
}
