// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package protected

import (
	"testing"

	"lockguard.io/tstest/deptest"
)

func TestDeps(t *testing.T) {
	deptest.DepChecker{
		BadDeps: map[string]string{
			"lockguard.io/types/logger": "core package must not log",
			"lockguard.io/envknob":      "core package must not read configuration",
			"lockguard.io/locks":        "lock implementations are optional",
			"log":                       "core package must not log",
		},
		BadPrefixes: map[string]string{
			"github.com/":        "core package has no third-party dependencies",
			"golang.org/x/":      "core package has no third-party dependencies",
			"gvisor.dev/gvisor/": "core package has no third-party dependencies",
		},
		WantDeps: []string{
			"lockguard.io/syncs",
		},
	}.Check(t)
}
