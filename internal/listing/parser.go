// Package listing parses marketplace sell-page HTML into structured pricing
// statistics.
//
// The pages are server-rendered and semi-structured, so the parser works on
// raw markup with a composable set of named extraction rules instead of a
// DOM. The central failure mode it defends against is fabricating plausible
// numbers from decoys: sidebar filter fragments that segment like listings,
// "+$x" shipping add-ons, "about $x" currency-conversion annotations, and
// combined shipping totals.
package listing

import (
	"context"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/grade"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Filters are the per-request listing filters. Condition filtering is only
// ever applied here, never as a URL parameter.
type Filters struct {
	// USOnly keeps listings whose shipping origin is the United States.
	USOnly bool
	// VGPlus keeps listings whose media condition ranks VG+ or better.
	VGPlus bool
}

// DefaultPageSize is the number of listings the marketplace renders per page.
const DefaultPageSize = 25

// DefaultExchangeRates maps currency codes to units per USD. A coarse static
// snapshot; prices quoted natively in these currencies are converted through
// it when a block carries no USD amount.
var DefaultExchangeRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"CAD": 1.36,
	"AUD": 1.52,
	"JPY": 149.0,
	"CHF": 0.88,
	"SEK": 10.5,
}

// PageFetcher returns the raw HTML of the given 1-based sell page.
type PageFetcher func(ctx context.Context, page int) (string, error)

// Parser turns sell-page HTML into PageStats. It is stateless apart from the
// injected rate table and safe for concurrent use.
type Parser struct {
	logger *logrus.Logger
	// rates maps 3-letter currency codes to units per USD, supplied
	// externally.
	rates map[string]float64
}

// NewParser creates a listing parser using the supplied exchange-rate table.
func NewParser(rates map[string]float64, logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.New()
	}
	return &Parser{logger: logger, rates: rates}
}

// ParsePage parses a single sell page under the given filters.
//
// The listing total comes from pagination text when present; an explicit
// "no results" phrasing short-circuits to zero so stray amounts elsewhere in
// the document can never materialize as prices. Without either signal the
// total falls back to the count of validated on-page listings.
func (p *Parser) ParsePage(html string, filters Filters) types.PageStats {
	total, hasPagination := parseTotal(html)
	if !hasPagination && hasNoResults(html) {
		return types.PageStats{}
	}

	var stats types.PageStats
	for _, block := range splitListingBlocks(html) {
		g := mediaGrade(block)
		origin := shipsFrom(block)
		amounts := findAmounts(block)

		// a real listing always carries a grade right after its
		// marker, a shipping origin and at least one amount; sidebar
		// filter fragments fail at least one of these
		if g == grade.Unknown || origin == "" || len(amounts) == 0 {
			continue
		}
		stats.OnPageCount++

		if filters.VGPlus && !g.IsVGPlusOrBetter() {
			continue
		}
		if filters.USOnly && !strings.Contains(strings.ToLower(origin), "united states") {
			continue
		}
		stats.MatchedCount++

		if price, ok := blockPrice(block, p.rates); ok {
			if stats.Lowest == nil || price < *stats.Lowest {
				low := price
				stats.Lowest = &low
				stats.LowestGrade = g.Abbrev()
			}
			stats.Prices = append(stats.Prices, price)
		}
	}

	if hasPagination {
		// stray marker occurrences elsewhere in the document must not
		// inflate counts past the authoritative pagination number
		stats.Total = total
		if stats.OnPageCount > total {
			stats.OnPageCount = total
		}
		if stats.MatchedCount > total {
			stats.MatchedCount = total
		}
	} else {
		stats.Total = stats.OnPageCount
	}

	p.logger.WithFields(logrus.Fields{
		"component": "listing",
		"operation": "parse_page",
		"total":     stats.Total,
		"on_page":   stats.OnPageCount,
		"matched":   stats.MatchedCount,
		"prices":    len(stats.Prices),
	}).Debug("Parsed sell page")

	return stats
}

// ParseListings fetches and parses up to pageCap sell pages and merges their
// statistics. Counts sum across pages and the lowest price is the minimum
// over all pages. Paging stops once a page yields fewer than pageSize
// listings or the cumulative on-page count reaches the total; when listings
// remain unfetched the matched count is extrapolated from the matched ratio
// of the fetched pages.
func (p *Parser) ParseListings(ctx context.Context, fetch PageFetcher, filters Filters, pageCap, pageSize int) (types.PageStats, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var merged types.PageStats

	for page := 1; page <= pageCap; page++ {
		html, err := fetch(ctx, page)
		if err != nil {
			return merged, err
		}

		stats := p.ParsePage(html, filters)
		if page == 1 {
			merged.Total = stats.Total
		}
		merged.OnPageCount += stats.OnPageCount
		merged.MatchedCount += stats.MatchedCount
		merged.Prices = append(merged.Prices, stats.Prices...)
		if stats.Lowest != nil && (merged.Lowest == nil || *stats.Lowest < *merged.Lowest) {
			merged.Lowest = stats.Lowest
			merged.LowestGrade = stats.LowestGrade
		}

		if stats.OnPageCount < pageSize || merged.OnPageCount >= merged.Total {
			break
		}
	}

	if merged.OnPageCount > 0 && merged.OnPageCount < merged.Total {
		ratio := float64(merged.MatchedCount) / float64(merged.OnPageCount)
		merged.MatchedCount = int(math.Round(ratio * float64(merged.Total)))
	}

	return merged, nil
}
