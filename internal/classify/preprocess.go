// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFKD decomposition, so accented
// letters fold to their ASCII base ("reçu" -> "recu") before matching.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the query, folds diacritics, replaces everything
// outside [a-z0-9$] with spaces and collapses runs of whitespace. Digits and
// the dollar sign survive so amounts like "$99" stay matchable. The result
// is the canonical text all indicator matching runs against; an empty result
// marks the degenerate no-signal query.
func Normalize(query string) string {
	lowered := strings.ToLower(query)
	if folded, _, err := transform.String(stripMarks, lowered); err == nil {
		lowered = folded
	}

	var b strings.Builder
	b.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		keep := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '$'
		if keep {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text into words longer than two characters.
/// Used for diagnostics and matched-indicator reporting, not for scoring:
// scoring matches indicators by substring containment so that inflected
// forms ("charged") still hit their stem ("charge").
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
