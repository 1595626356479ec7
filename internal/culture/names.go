// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package culture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var suffixPattern = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// foldName returns the comparison key of a name: NFC normalized and case folded.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// UniqueName returns name, or "name (n)" with the lowest n >= 1 that no
// sibling uses. Names compare case-insensitively. A name that already carries
// a numeric suffix is renumbered from its base.
func UniqueName(name string, siblings []string) string {
	name = strings.TrimSpace(name)
	taken := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		taken[foldName(s)] = true
	}
	if !taken[foldName(name)] {
		return name
	}

	base := name
	if m := suffixPattern.FindStringSubmatch(name); m != nil {
		if _, err := strconv.Atoi(m[2]); err == nil {
			base = m[1]
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[foldName(candidate)] {
			return candidate
		}
	}
}
