// Package textutil provides the string canonicalization used by every
// comparison in the matching pipeline.
//
// Normalize produces the strict canonical form (lowercase, alphanumeric plus
// single spaces); FuzzyNormalize additionally folds common spelling variants
// onto shared stems so that "Midnite" and "Midnight" compare equal. Both are
// pure functions and idempotent, so callers may re-normalize freely.
package textutil

import (
	"regexp"
	"strings"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, strips every character outside [a-z0-9] and
// whitespace, collapses whitespace runs to single spaces and trims. Unicode
// punctuation, dashes, curly quotes and accented letters are removed outright
// rather than transliterated.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// substitution folds a spelling variant onto a canonical stem. Patterns are
// anchored on word boundaries so substrings inside longer words are never
// rewritten ("dynamite" keeps its "nite").
type substitution struct {
	pattern *regexp.Regexp
	stem    string
}

// fuzzySubstitutions is applied in order on already-normalized text. The
// multi-word and compound variants come first so the single-word rules below
// never see their fragments.
var fuzzySubstitutions = []substitution{
	{regexp.MustCompile(`\bmid night\b`), "midnight"},
	{regexp.MustCompile(`\bmidnite\b`), "midnight"},
	{regexp.MustCompile(`\bnite\b`), "night"},
	{regexp.MustCompile(`\btha\b`), "the"},
	{regexp.MustCompile(`\bu\b`), "you"},
	{regexp.MustCompile(`\b2nite\b`), "tonight"},
	{regexp.MustCompile(`\btonite\b`), "tonight"},
}

// FuzzyNormalize applies Normalize and then the ordered whole-word
// substitution list, so spelling variants of the same title compare equal.
func FuzzyNormalize(s string) string {
	s = Normalize(s)
	for _, sub := range fuzzySubstitutions {
		s = sub.pattern.ReplaceAllString(s, sub.stem)
	}
	return s
}

// Words splits a normalized string into its space-separated words. Empty
// input yields a nil slice.
func Words(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}
