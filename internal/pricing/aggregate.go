// Package pricing combines per-entity listing statistics into the aggregate
// published for a query.
package pricing

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Median returns the median of xs, or nil for an empty slice. For an even
// count it is the arithmetic mean of the two central elements after sorting.
// The input is not modified.
func Median(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	n := len(sorted)
	var m float64
	if n%2 == 1 {
		m = sorted[n/2]
	} else {
		m = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return &m
}

// Aggregator combines verified per-entity matches into one statistics object.
type Aggregator struct {
	logger *logrus.Logger
}

// NewAggregator creates a price aggregator
func NewAggregator(logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{logger: logger}
}

// Combine merges per-entity statistics across matches. The listing count
// sums; the lowest price is the minimum non-nil per-entity lowest; the
// median is computed over the pooled per-listing prices, never over the set
// of per-entity medians.
func (a *Aggregator) Combine(matches []types.MatchDetail) types.AggregateStats {
	var agg types.AggregateStats
	var pooled []float64

	for _, m := range matches {
		agg.NumForSale += m.Stats.NumForSale
		pooled = append(pooled, m.Prices...)

		if m.Stats.LowestPrice == nil {
			continue
		}
		if agg.LowestPrice == nil || *m.Stats.LowestPrice < *agg.LowestPrice {
			agg.LowestPrice = m.Stats.LowestPrice
			agg.LowestGrade = m.Stats.LowestGrade
		}
	}
	agg.MedianPrice = Median(pooled)

	a.logger.WithFields(logrus.Fields{
		"component":    "pricing",
		"operation":    "combine",
		"entities":     len(matches),
		"num_for_sale": agg.NumForSale,
		"pooled":       len(pooled),
	}).Debug("Combined per-entity statistics")

	return agg
}

// PublishableMatches drops zero-listing entities from the match list and
// sorts the remainder ascending by lowest price, nil-priced entities last.
// The sort is stable so equally-priced entities keep their discovery order.
func (a *Aggregator) PublishableMatches(matches []types.MatchDetail) []types.MatchDetail {
	published := make([]types.MatchDetail, 0, len(matches))
	for _, m := range matches {
		if m.Stats.NumForSale == 0 {
			continue
		}
		published = append(published, m)
	}

	sort.SliceStable(published, func(i, j int) bool {
		pi, pj := published[i].Stats.LowestPrice, published[j].Stats.LowestPrice
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})

	return published
}

// CanReuseUnfiltered reports whether a previously cached unfiltered
// aggregate may serve a filtered request. A condition filter always demands
// freshly scraped filter-aware numbers, because the unfiltered lowest or
// median may belong to a listing the filter excludes. A location-only filter
// may reuse the unfiltered numbers while it excluded nothing, i.e. the
// filtered count still equals the unfiltered count.
func CanReuseUnfiltered(conditionFilter bool, filteredCount, unfilteredCount int) bool {
	if conditionFilter {
		return false
	}
	return filteredCount == unfilteredCount
}
