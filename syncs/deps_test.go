// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"testing"

	"lockguard.io/tstest/deptest"
)

func TestDeps(t *testing.T) {
	deptest.DepChecker{
		BadPrefixes: map[string]string{
			"lockguard.io/": "syncs is a leaf package",
			"github.com/":   "syncs has no third-party dependencies",
		},
	}.Check(t)
}
