// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textfold normalizes human-entered names for storage and search.
//
// # Usage
//
// Request names are stored twice: the cleaned display form and a folded form
// used for case-insensitive substring search. Hebrew vowel points and other
// combining marks are dropped from the folded form so "שָׁלוֹם" matches "שלום".
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Clean trims the value, collapses inner whitespace runs to one space and
// normalizes to NFC.
func Clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Fold converts s into its search key.
//
// # Transformation Pipeline
//
// 1. Cleans whitespace (see [Clean]).
// 2. Normalizes to NFD and removes combining marks (accents, niqqud).
// 3. Applies Unicode case folding.
// 4. Recomposes to NFC.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, Clean(s))
	if err != nil {
		result = Clean(s)
	}

	// Casers carry state and are not safe for concurrent use.
	return cases.Fold().String(result)
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
