// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build lockguard_mutex_debug

package syncs

import (
	"sync"
	"sync/atomic"
)

// Mutex is a sync.Mutex that remembers whether it is held, so that
// unlocking an unheld mutex names the culprit instead of failing
// inside the runtime.
type Mutex struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

func (m *Mutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.held.Store(true)
	return true
}

func (m *Mutex) Unlock() {
	if !m.held.Swap(false) {
		panic("syncs: unlock of unlocked Mutex")
	}
	m.mu.Unlock()
}

// Holders reports 1 if m is held and 0 otherwise.
func (m *Mutex) Holders() int {
	if m.held.Load() {
		return 1
	}
	return 0
}

// RWMutex is a sync.RWMutex that counts its holders.
type RWMutex struct {
	mu      sync.RWMutex
	writer  atomic.Bool
	readers atomic.Int32
}

func (m *RWMutex) Lock() {
	m.mu.Lock()
	m.writer.Store(true)
}

func (m *RWMutex) Unlock() {
	if !m.writer.Swap(false) {
		panic("syncs: unlock of RWMutex not locked for writing")
	}
	m.mu.Unlock()
}

func (m *RWMutex) RLock() {
	m.mu.RLock()
	m.readers.Add(1)
}

func (m *RWMutex) RUnlock() {
	if m.readers.Add(-1) < 0 {
		m.readers.Add(1)
		panic("syncs: RUnlock of RWMutex not locked for reading")
	}
	m.mu.RUnlock()
}

// Holders reports the number of goroutines holding m. A writer counts as one.
func (m *RWMutex) Holders() int {
	if m.writer.Load() {
		return 1
	}
	return int(m.readers.Load())
}
