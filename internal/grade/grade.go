// Package grade models the eight standardized media condition grades used on
// marketplace listings, ordered from Mint (best) to Poor (worst).
package grade

import "strings"

// Grade is the integer rank of a condition label. Lower is better; the
// ordering is total and fixed.
type Grade int

// Condition grades, best to worst.
const (
	Mint Grade = iota + 1
	NearMint
	VGPlus
	VG
	GPlus
	Good
	Fair
	Poor
	// Unknown is returned for unrecognized labels and never passes a
	// condition filter.
	Unknown Grade = 0
)

// label pairs a grade's full marketplace string with its short abbreviation.
type label struct {
	full   string
	abbrev string
	grade  Grade
}

// labels is ordered best to worst. Longer names come before their prefixes
// ("Very Good Plus" before "Very Good", "Good Plus" before "Good") so a
// first-match scan never truncates a grade.
var labels = []label{
	{"Near Mint (NM or M-)", "NM", NearMint},
	{"Mint (M)", "M", Mint},
	{"Very Good Plus (VG+)", "VG+", VGPlus},
	{"Very Good (VG)", "VG", VG},
	{"Good Plus (G+)", "G+", GPlus},
	{"Good (G)", "G", Good},
	{"Fair (F)", "F", Fair},
	{"Poor (P)", "P", Poor},
}

// Labels returns the eight recognized full label strings, best-first aside
// from the Near Mint/Mint ordering required for prefix-safe scanning.
func Labels() []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.full
	}
	return out
}

// String returns the full marketplace label for the grade
func (g Grade) String() string {
	for _, l := range labels {
		if l.grade == g {
			return l.full
		}
	}
	return "Unknown"
}

// Abbrev returns the 1-3 character abbreviation for the grade
func (g Grade) Abbrev() string {
	for _, l := range labels {
		if l.grade == g {
			return l.abbrev
		}
	}
	return "?"
}

// Parse maps a condition label string to its grade. It accepts the full
// marketplace form ("Very Good Plus (VG+)") or any string containing one,
// and returns Unknown for anything else.
func Parse(s string) Grade {
	for _, l := range labels {
		if strings.Contains(s, l.full) {
			return l.grade
		}
	}
	return Unknown
}

// IsVGPlusOrBetter reports whether the grade passes a "VG+ or better"
// condition filter. Unknown never passes.
func (g Grade) IsVGPlusOrBetter() bool {
	return g >= Mint && g <= VGPlus
}
