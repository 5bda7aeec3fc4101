package listing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Eric-A99/discogs-preview/internal/grade"
)

// The sell page is parsed with a small set of named extraction rules rather
// than one monolithic pattern. Each rule is independently testable and the
// phantom-block rejection logic composes them.

// paginationRule matches the "1 - 25 of 150" range text. The inner separator
// may be a hyphen, en dash or em dash, and digits may be comma-grouped.
var paginationRule = regexp.MustCompile(`([\d,]+)\s*[-–—]\s*([\d,]+)\s+of\s+([\d,]+)`)

// noResultsRule matches the explicit empty-marketplace phrasings.
var noResultsRule = regexp.MustCompile(`(?i)(no items for sale|0 results|sorry,? no results)`)

// conditionMarkerRule is the per-listing anchor; the document is segmented at
// every occurrence. Both the plain and hyphenated spellings appear in the
// wild.
var conditionMarkerRule = regexp.MustCompile(`Media[ -]Condition:`)

// shipsFromRule captures the seller country following the "Ships From:"
// marker across intervening markup, up to the end of a run of letters and
// spaces. Real listings always declare a seller location; sidebar filter
// fragments never do, which is what separates them from phantom blocks.
var shipsFromRule = regexp.MustCompile(`Ships From:(?:\s|<[^>]*>)*([A-Za-z][A-Za-z .,']*)`)

// gradeAfterSplitRule requires one of the eight recognized grade labels
// immediately after the segmentation point, allowing only whitespace and
// markup in between. A block whose marker is a sidebar filter heading has
// filter text there instead.
var gradeAfterSplitRule = buildGradeAfterSplitRule()

func buildGradeAfterSplitRule() *regexp.Regexp {
	quoted := make([]string, 0, 8)
	for _, label := range grade.Labels() {
		quoted = append(quoted, regexp.QuoteMeta(label))
	}
	return regexp.MustCompile(`^(?:\s|<[^>]*>)*(` + strings.Join(quoted, "|") + `)`)
}

// amountRule matches a single financial amount with its currency prefix.
// CA$ must come before $ in the alternation or Canadian amounts would parse
// as US dollars with a stray "CA".
var amountRule = regexp.MustCompile(`(CA\$|\$|€|£)\s?([\d,]+(?:\.\d+)?)`)

// currencyCodes maps an amount prefix to its ISO code for rate lookup.
var currencyCodes = map[string]string{
	"$":   "USD",
	"CA$": "CAD",
	"€":   "EUR",
	"£":   "GBP",
}

// amount is one matched financial amount within a block.
type amount struct {
	currency string
	value    float64
	start    int
	end      int
}

// parseTotal extracts the authoritative listing count from pagination text.
// The second return is false when the page has no pagination.
func parseTotal(html string) (int, bool) {
	m := paginationRule.FindStringSubmatch(html)
	if m == nil {
		return 0, false
	}
	total, err := strconv.Atoi(strings.ReplaceAll(m[3], ",", ""))
	if err != nil {
		return 0, false
	}
	return total, true
}

// hasNoResults reports whether the page explicitly declares an empty
// marketplace.
func hasNoResults(html string) bool {
	return noResultsRule.MatchString(html)
}

// splitListingBlocks segments the document at every condition-marker
// occurrence. The leading part before the first marker is discarded.
func splitListingBlocks(html string) []string {
	parts := conditionMarkerRule.Split(html, -1)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}

// mediaGrade returns the media condition grade declared at the head of a
// block, or grade.Unknown for phantom blocks. Only the first condition
// phrase gates filtering; the second one in a real listing is the sleeve
// condition and is never consulted.
func mediaGrade(block string) grade.Grade {
	m := gradeAfterSplitRule.FindStringSubmatch(block)
	if m == nil {
		return grade.Unknown
	}
	return grade.Parse(m[1])
}

// shipsFrom returns the seller country declared in the block, or "" when the
// block carries no shipping origin.
func shipsFrom(block string) string {
	m := shipsFromRule.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// findAmounts returns every currency amount in the block in document order.
func findAmounts(block string) []amount {
	var out []amount
	for _, m := range amountRule.FindAllStringSubmatchIndex(block, -1) {
		prefix := block[m[2]:m[3]]
		raw := strings.ReplaceAll(block[m[4]:m[5]], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		out = append(out, amount{
			currency: currencyCodes[prefix],
			value:    value,
			start:    m[0],
			end:      m[1],
		})
	}
	return out
}

var shippingWordRule = regexp.MustCompile(`(?i)shipping\s*$`)

// isDecoy reports whether the amount is one of the three decoy shapes that
// must never be read as a listing price: a "+" shipping add-on, an
// "about $X" currency-conversion annotation, or a combined shipping total
// immediately preceded by the word "shipping".
func isDecoy(block string, a amount) bool {
	lead := block[:a.start]
	trimmed := strings.TrimRight(lead, " \t")
	if strings.HasSuffix(trimmed, "+") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(trimmed), "about") {
		return true
	}
	if shippingWordRule.MatchString(lead) {
		return true
	}
	return false
}

// blockPrice extracts the listing price from a validated block, converted to
// USD. Among the non-decoy amounts, the first US-dollar amount wins; a block
// priced only in a foreign currency is converted through the rate table
// (units per USD). The boolean is false when no usable price exists, e.g.
// the rate for the block's currency is unknown.
func blockPrice(block string, rates map[string]float64) (float64, bool) {
	var firstForeign *amount
	for _, a := range findAmounts(block) {
		if isDecoy(block, a) {
			continue
		}
		if a.currency == "USD" {
			return round2(a.value), true
		}
		if firstForeign == nil {
			f := a
			firstForeign = &f
		}
	}
	if firstForeign == nil {
		return 0, false
	}
	rate, ok := rates[firstForeign.currency]
	if !ok || rate <= 0 {
		return 0, false
	}
	return round2(firstForeign.value / rate), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
