// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package locks

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"lockguard.io/syncs"
	"lockguard.io/tstest"
)

var _ syncs.RWLocker = (*Instrumented)(nil)

func TestRegister(t *testing.T) {
	c := qt.New(t)
	reg := prometheus.NewPedanticRegistry()
	c.Assert(Register(reg), qt.IsNil)

	err := Register(reg)
	var are prometheus.AlreadyRegisteredError
	c.Assert(errors.As(err, &are), qt.IsTrue, qt.Commentf("err = %v", err))

	var l Instrumented
	l.Lock()
	l.Unlock()
	n, err := testutil.GatherAndCount(reg, "lockguard_lock_wait_seconds", "lockguard_lock_acquisitions_total")
	c.Assert(err, qt.IsNil)
	c.Assert(n >= 2, qt.IsTrue, qt.Commentf("n = %d", n))
}

func TestInstrumentedCounts(t *testing.T) {
	c := qt.New(t)
	ex0 := testutil.ToFloat64(acquisitions.WithLabelValues(ModeExclusive))
	sh0 := testutil.ToFloat64(acquisitions.WithLabelValues(ModeShared))

	var l Instrumented
	for range 3 {
		l.Lock()
		l.Unlock()
	}
	l.RLock()
	l.RLock()
	l.RUnlock()
	l.RUnlock()

	c.Check(testutil.ToFloat64(acquisitions.WithLabelValues(ModeExclusive))-ex0, qt.Equals, 3.0)
	c.Check(testutil.ToFloat64(acquisitions.WithLabelValues(ModeShared))-sh0, qt.Equals, 2.0)
}

func TestInstrumentedSlowLog(t *testing.T) {
	var (
		mu   sync.Mutex
		logs []string
	)
	SetLogf(func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, args...))
	})
	t.Cleanup(func() { SetLogf(nil) })

	l := Instrumented{Name: "accounts"}
	l.Lock()
	l.Unlock()
	mu.Lock()
	qt.Assert(t, logs, qt.HasLen, 0)
	mu.Unlock()

	tstest.Replace(t, &slowLock, func() time.Duration { return time.Nanosecond })
	l.RLock()
	l.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	qt.Assert(t, logs, qt.HasLen, 1)
	qt.Assert(t, strings.HasPrefix(logs[0], `locks: shared hold on "accounts" took `), qt.IsTrue, qt.Commentf("log = %q", logs[0]))
}
