// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package locks

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"lockguard.io/envknob"
	"lockguard.io/types/logger"
)

var (
	waitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "lockguard_lock_wait_seconds",
		Help: "Time spent waiting to acquire an instrumented lock",
		// 12 buckets from 1µs to 10s.
		Buckets: prometheus.ExponentialBucketsRange(1e-6, 10, 12),
	}, []string{"mode"})
	acquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lockguard_lock_acquisitions_total",
		Help: "Number of holds granted on instrumented locks",
	}, []string{"mode"})
)

// Lock modes, used as the "mode" metric label.
const (
	ModeExclusive = "exclusive"
	ModeShared    = "shared"
)

// slowLock is the wait time above which an acquisition is logged.
// Zero disables the logging.
var slowLock = envknob.RegisterDuration("LOCKGUARD_SLOW_LOCK")

var logf atomic.Pointer[logger.Logf]

// Register registers the metrics recorded by [Instrumented] locks with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{waitSeconds, acquisitions} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// SetLogf sets where [Instrumented] locks report slow acquisitions.
// The messages are rate limited. A nil f turns the reports off.
func SetLogf(f logger.Logf) {
	if f == nil {
		logf.Store(nil)
		return
	}
	rl := logger.RateLimitedFn(f, time.Second, 5, 50)
	logf.Store(&rl)
}

// Instrumented is a sync.RWMutex that records how long each acquisition
// waited.
//
// The zero value is an unlocked Instrumented. An Instrumented must not be
// copied after first use.
type Instrumented struct {
	mu sync.RWMutex

	// Name, if set, identifies the lock in slow acquisition reports.
	Name string
}

func (l *Instrumented) observe(mode string, start time.Time) {
	d := time.Since(start)
	waitSeconds.WithLabelValues(mode).Observe(d.Seconds())
	acquisitions.WithLabelValues(mode).Inc()
	if slow := slowLock(); slow > 0 && d >= slow {
		if f := logf.Load(); f != nil {
			(*f)("locks: %s hold on %q took %v", mode, l.Name, d.Round(time.Microsecond))
		}
	}
}

// Lock blocks until l is held exclusively.
func (l *Instrumented) Lock() {
	start := time.Now()
	l.mu.Lock()
	l.observe(ModeExclusive, start)
}

// Unlock releases an exclusive hold.
func (l *Instrumented) Unlock() { l.mu.Unlock() }

// RLock blocks until a shared hold on l is obtained.
func (l *Instrumented) RLock() {
	start := time.Now()
	l.mu.RLock()
	l.observe(ModeShared, start)
}

// RUnlock releases a shared hold.
func (l *Instrumented) RUnlock() { l.mu.RUnlock() }
