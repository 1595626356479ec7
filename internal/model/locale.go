// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is a language a content item can be varied by.
type Locale struct {
	ID         int64  `json:"id"`
	IsoCode    string `json:"iso_code"`   // canonical BCP 47 tag: en-US, da-DK
	Name       string `json:"name"`       // English (United States)
	IsDefault  bool   `json:"is_default"` // exactly one locale is the default
	FallbackID int64  `json:"fallback_id,omitempty"`
}

// CanonicalCulture folds a culture code to its BCP 47 form so that "en-us",
// "en_US" and "en-US" address the same culture. Codes that do not parse are
// returned trimmed and resolve to nothing later. The invariant culture ("")
// and AllCultures pass through.
func CanonicalCulture(culture string) string {
	culture = strings.TrimSpace(culture)
	if culture == "" || culture == AllCultures {
		return culture
	}
	tag, err := language.Parse(strings.ReplaceAll(culture, "_", "-"))
	if err != nil {
		return culture
	}
	return tag.String()
}
