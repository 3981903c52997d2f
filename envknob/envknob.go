// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package envknob provides environment-variable tweakable debug settings.
//
// Each knob is registered once, usually in a package-level var, and read
// through the func that registration returns. Knobs are for developers
// chasing lock contention or noisy logs. They are not a stable interface
// and may be removed at any time.
package envknob

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	mu      sync.Mutex
	setters = map[string][]func(val string){} // by env var, for Setenv
	inUse   = map[string]string{}             // env var => non-empty value
)

// register adds a knob for envVar whose values are parsed by parse and
// returns its getter. An empty value reads as the zero T; one parse
// rejects exits the program.
func register[T any](envVar string, parse func(string) (T, error)) func() T {
	var cur atomic.Pointer[T]
	set := func(val string) {
		var v T
		if val != "" {
			var err error
			if v, err = parse(val); err != nil {
				log.Fatalf("envknob: invalid %s value %q: %v", envVar, val, err)
			}
		}
		cur.Store(&v)
	}

	mu.Lock()
	defer mu.Unlock()
	val := os.Getenv(envVar)
	set(val)
	noteLocked(envVar, val)
	setters[envVar] = append(setters[envVar], set)
	return func() T { return *cur.Load() }
}

func noteLocked(envVar, val string) {
	if val == "" {
		delete(inUse, envVar)
	} else {
		inUse[envVar] = val
	}
}

// RegisterString registers a knob read verbatim from envVar.
func RegisterString(envVar string) func() string {
	return register(envVar, func(s string) (string, error) { return s, nil })
}

// RegisterBool registers a knob parsed from envVar by [strconv.ParseBool].
func RegisterBool(envVar string) func() bool {
	return register(envVar, strconv.ParseBool)
}

// RegisterDuration registers a knob parsed from envVar by
// [time.ParseDuration].
func RegisterDuration(envVar string) func() time.Duration {
	return register(envVar, time.ParseDuration)
}

// Setenv sets envVar in the process environment and updates the knobs
// registered for it. Getters may be called concurrently with Setenv.
func Setenv(envVar, val string) {
	mu.Lock()
	defer mu.Unlock()
	os.Setenv(envVar, val)
	noteLocked(envVar, val)
	for _, set := range setters[envVar] {
		set(val)
	}
}

// LogCurrent logs each knob that is registered or was set through Setenv
// and has a non-empty value, sorted by name.
func LogCurrent(logf func(format string, args ...any)) {
	mu.Lock()
	defer mu.Unlock()
	for _, k := range slices.Sorted(maps.Keys(inUse)) {
		logf("envknob: %s=%q", k, inUse[k])
	}
}

// ApplyFile calls Setenv for each KEY=value line in the named file.
// Blank lines, lines starting with '#' and lines without a key are
// skipped. A value starting with a double quote is unquoted as a Go
// string literal.
func ApplyFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := applyLines(f); err != nil {
		return fmt.Errorf("error parsing %s: %w", name, err)
	}
	return nil
}

func applyLines(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		k, v, ok, err := parseLine(sc.Text())
		if err != nil {
			return err
		}
		if ok {
			Setenv(k, v)
		}
	}
	return sc.Err()
}

func parseLine(line string) (key, val string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return "", "", false, nil
	}
	key, val, ok = strings.Cut(line, "=")
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	if !ok || key == "" {
		return "", "", false, nil
	}
	if strings.HasPrefix(val, `"`) {
		if val, err = strconv.Unquote(val); err != nil {
			return "", "", false, fmt.Errorf("invalid value in line %q: %v", line, err)
		}
	}
	return key, val, true, nil
}
