// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SearchKey lowercases a string and strips diacritics so that report
// searches match regardless of accents ("reunión" matches "reunion").
// Decompose to NFD, drop combining marks, recompose to NFC.
func SearchKey(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return norm.NFC.String(b.String())
}

// ContainsFold reports whether substr occurs in s under SearchKey
// normalization.
func ContainsFold(s, substr string) bool {
	return strings.Contains(SearchKey(s), SearchKey(substr))
}
