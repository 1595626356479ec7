// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	segmentInvalid  = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// URLSegment converts a content name to a lowercase URL segment. Accents are
// stripped and non-Latin scripts are transliterated, so "Über München" and
// "Привет" both yield a usable segment.
func URLSegment(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ := transform.String(t, name)
	s = unidecode.Unidecode(s)

	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "-")
	s = segmentInvalid.ReplaceAllString(s, "")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Route joins the URL segments of names into a path with leading and
// trailing slashes. Names that produce an empty segment are skipped.
func Route(names ...string) string {
	var b strings.Builder
	b.WriteByte('/')
	for _, name := range names {
		seg := URLSegment(name)
		if seg == "" {
			continue
		}
		b.WriteString(seg)
		b.WriteByte('/')
	}
	return b.String()
}
