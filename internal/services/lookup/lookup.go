// Package lookup runs the end-to-end pricing pipeline: clean and split the
// query, discover candidate entities, verify them against their tracklists,
// scrape their sell pages and aggregate the prices.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/cache"
	"github.com/Eric-A99/discogs-preview/internal/discogs"
	"github.com/Eric-A99/discogs-preview/internal/grade"
	"github.com/Eric-A99/discogs-preview/internal/listing"
	"github.com/Eric-A99/discogs-preview/internal/match"
	"github.com/Eric-A99/discogs-preview/internal/pricing"
	"github.com/Eric-A99/discogs-preview/internal/query"
	"github.com/Eric-A99/discogs-preview/internal/textutil"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

// ErrNoResults is returned when no candidate survives tracklist verification,
// even after retrying the best discovery candidate without the track filter.
var ErrNoResults = errors.New("no results found")

// Config holds configuration for the lookup pipeline.
type Config struct {
	// PageCap bounds how many sell pages are fetched per entity.
	PageCap int
	// PageSize is the number of listings the marketplace renders per page.
	PageSize int
	// CacheTTL and CacheEntries bound the query result cache.
	CacheTTL     time.Duration
	CacheEntries int
}

// DefaultConfig returns the default lookup configuration.
func DefaultConfig() Config {
	return Config{
		PageCap:      4,
		PageSize:     listing.DefaultPageSize,
		CacheTTL:     10 * time.Minute,
		CacheEntries: 50,
	}
}

// Service implements the PriceLookup interface.
type Service struct {
	discogs    types.DiscogsService
	discovery  types.DiscoveryService
	parser     *listing.Parser
	aggregator *pricing.Aggregator
	cache      *cache.Cache
	config     Config
	logger     *logrus.Logger
}

// NewService creates the lookup pipeline from its collaborators.
func NewService(discogsService types.DiscogsService, discoveryService types.DiscoveryService, parser *listing.Parser, config Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		discogs:    discogsService,
		discovery:  discoveryService,
		parser:     parser,
		aggregator: pricing.NewAggregator(logger),
		cache:      cache.New(config.CacheTTL, config.CacheEntries),
		config:     config,
		logger:     logger,
	}
}

// verified is a candidate that survived tracklist verification
type verified struct {
	ref    types.EntityRef
	detail *types.EntityDetail
}

// Lookup resolves pricing statistics for the request. Results are cached per
// query and filter combination; a location-only filter may serve the cached
// unfiltered aggregate when the filter turns out to exclude nothing, but a
// condition filter always gets freshly scraped filter-aware numbers.
func (s *Service) Lookup(ctx context.Context, req types.LookupRequest) (*types.LookupResult, error) {
	parsed := s.parseQuery(req)
	queryKey := textutil.Normalize(strings.TrimSpace(parsed.Artist + " " + parsed.Track))
	if queryKey == "" {
		// a bare release selection has no text query to key on
		if req.ReleaseID == 0 {
			return nil, fmt.Errorf("lookup query cannot be empty")
		}
		queryKey = "release " + strconv.Itoa(req.ReleaseID)
	}
	filterKey := cache.FilterKey(req.USOnly, req.VGPlus, req.ReleaseID)

	if cached, ok := s.cache.Get(queryKey, filterKey); ok {
		s.logger.WithFields(logrus.Fields{
			"component": "lookup",
			"operation": "cache_hit",
			"query":     queryKey,
			"filters":   filterKey,
		}).Debug("Serving cached result")
		return cached, nil
	}

	result, err := s.resolve(ctx, req, parsed)
	if err != nil {
		return nil, err
	}

	// a location-only filter that excluded nothing may keep serving the
	// unfiltered aggregate; a condition filter never may, since the
	// unfiltered lowest or median can belong to an excluded listing
	if req.USOnly || req.VGPlus {
		unfilteredKey := cache.FilterKey(false, false, req.ReleaseID)
		if unfiltered, ok := s.cache.Get(queryKey, unfilteredKey); ok &&
			pricing.CanReuseUnfiltered(req.VGPlus, result.Stats.NumForSale, unfiltered.Stats.NumForSale) {
			result = unfiltered
		}
	}

	s.cache.Put(queryKey, filterKey, result)
	return result, nil
}

// parseQuery turns the request into an artist/track pair, cleaning and
// splitting the raw title when one was supplied.
func (s *Service) parseQuery(req types.LookupRequest) types.ParsedQuery {
	if req.Title == "" {
		return types.ParsedQuery{
			Artist: strings.TrimSpace(req.Artist),
			Track:  strings.TrimSpace(req.Track),
		}
	}
	return query.ParseArtistTrack(query.CleanTitle(req.Title))
}

func (s *Service) resolve(ctx context.Context, req types.LookupRequest, parsed types.ParsedQuery) (*types.LookupResult, error) {
	refs, err := s.candidates(ctx, req, parsed)
	if err != nil {
		return nil, err
	}

	matches, err := s.verifyCandidates(ctx, refs, parsed.Track)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoResults
	}

	filters := listing.Filters{USOnly: req.USOnly, VGPlus: req.VGPlus}
	fallbackQuery := strings.TrimSpace(parsed.Artist + " " + parsed.Track)

	details := make([]types.MatchDetail, 0, len(matches))
	for _, v := range matches {
		details = append(details, s.scrapeEntity(ctx, v, filters, fallbackQuery, req))
	}

	published := s.aggregator.PublishableMatches(details)
	stats := s.aggregator.Combine(published)
	s.attachSuggestions(ctx, &stats, matches)

	s.logger.WithFields(logrus.Fields{
		"component":    "lookup",
		"operation":    "resolve",
		"artist":       parsed.Artist,
		"track":        parsed.Track,
		"candidates":   len(refs),
		"verified":     len(matches),
		"published":    len(published),
		"num_for_sale": stats.NumForSale,
	}).Info("Lookup completed")

	return &types.LookupResult{Query: parsed, Stats: stats, Matches: published}, nil
}

// candidates returns the entity references to verify. A release selection in
// the request pins the lookup to that single release; otherwise discovery
// supplies a bounded, ranked candidate list.
func (s *Service) candidates(ctx context.Context, req types.LookupRequest, parsed types.ParsedQuery) ([]types.EntityRef, error) {
	if req.ReleaseID > 0 {
		return []types.EntityRef{{Kind: types.KindRelease, ID: req.ReleaseID}}, nil
	}
	refs, err := s.discovery.FindCandidates(ctx, parsed.Artist, parsed.Track)
	if err != nil {
		return nil, fmt.Errorf("candidate discovery failed: %w", err)
	}
	return refs, nil
}

// verifyCandidates fetches each candidate's detail and keeps the ones whose
// tracklist contains the queried track. Absent entities are skipped, and
// non-vinyl releases never match. When track filtering rejects everything,
// the single best-ranked candidate is retried without the filter.
func (s *Service) verifyCandidates(ctx context.Context, refs []types.EntityRef, track string) ([]verified, error) {
	var kept []verified
	var fetched []verified

	for _, ref := range refs {
		detail, err := s.entityDetail(ctx, ref)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			continue
		}
		if len(detail.Formats) > 0 && !discogs.IsVinylFormat(detail.Formats) {
			continue
		}
		fetched = append(fetched, verified{ref: ref, detail: detail})

		if outcome := match.Decide(detail.Tracklist, track); outcome != match.NotFound {
			kept = append(kept, verified{ref: ref, detail: detail})
		}
	}

	if len(kept) == 0 && len(fetched) > 0 {
		best := fetched[0]
		s.logger.WithFields(logrus.Fields{
			"component": "lookup",
			"operation": "unfiltered_fallback",
			"entity":    best.ref.Key(),
		}).Info("No tracklist match; accepting best candidate unfiltered")
		kept = append(kept, best)
	}
	return kept, nil
}

func (s *Service) entityDetail(ctx context.Context, ref types.EntityRef) (*types.EntityDetail, error) {
	switch ref.Kind {
	case types.KindMaster:
		return s.discogs.GetMaster(ctx, ref.ID)
	default:
		return s.discogs.GetRelease(ctx, ref.ID)
	}
}

// scrapeEntity fetches and parses the entity's sell pages into a MatchDetail.
// Scrape and parse failures for one entity degrade to zero results for that
// entity instead of aborting the aggregate.
func (s *Service) scrapeEntity(ctx context.Context, v verified, filters listing.Filters, fallbackQuery string, req types.LookupRequest) types.MatchDetail {
	sellURL := discogs.FilterURL(discogs.SellURL(v.ref, fallbackQuery), req.USOnly, req.ReleaseID)
	detail := types.MatchDetail{
		Entity:  v.ref,
		Title:   v.detail.Title,
		Artist:  discogs.ExtractArtistNames(v.detail.Artists),
		Year:    v.detail.Year,
		SellURL: sellURL,
	}
	if len(v.detail.Images) > 0 {
		detail.Thumb = v.detail.Images[0].URI
	}
	if len(v.detail.Formats) > 0 {
		detail.Format = v.detail.Formats[0].Name
	}

	stats := s.parseListings(ctx, sellURL, filters)
	detail.Stats = types.AggregateStats{
		NumForSale:  stats.MatchedCount,
		LowestPrice: stats.Lowest,
		LowestGrade: stats.LowestGrade,
		MedianPrice: pricing.Median(stats.Prices),
	}
	detail.Prices = stats.Prices
	return detail
}

// parseListings runs the pager over the entity's sell pages. A panic out of
// the parser is converted to zero results for the entity.
func (s *Service) parseListings(ctx context.Context, sellURL string, filters listing.Filters) (stats types.PageStats) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"component": "lookup",
				"operation": "parse_listings",
				"url":       sellURL,
				"panic":     r,
			}).Error("Listing parse panicked; treating entity as empty")
			stats = types.PageStats{}
		}
	}()

	fetch := func(ctx context.Context, page int) (string, error) {
		return s.discogs.FetchSellPage(ctx, pageURL(sellURL, page))
	}
	stats, err := s.parser.ParseListings(ctx, fetch, filters, s.config.PageCap, s.config.PageSize)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "lookup",
			"operation": "parse_listings",
			"url":       sellURL,
			"error":     err,
		}).Warn("Sell page fetch failed; treating entity as empty")
		return types.PageStats{}
	}
	return stats
}

// pageURL appends the 1-based page parameter; page one is the base URL.
func pageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

// attachSuggestions fills the condition-graded price estimates from the
// marketplace's price-suggestion endpoint. Suggestions need a release id, so
// a master falls back to its main release; failures leave the estimates nil.
func (s *Service) attachSuggestions(ctx context.Context, stats *types.AggregateStats, matches []verified) {
	if !s.discogs.HasToken() {
		return
	}
	releaseID := 0
	for _, v := range matches {
		if v.ref.Kind == types.KindRelease {
			releaseID = v.ref.ID
			break
		}
		if v.detail.MainRelease > 0 && releaseID == 0 {
			releaseID = v.detail.MainRelease
		}
	}
	if releaseID == 0 {
		return
	}

	suggestions, err := s.discogs.GetPriceSuggestions(ctx, releaseID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "lookup",
			"operation": "price_suggestions",
			"release":   releaseID,
			"error":     err,
		}).Warn("Price suggestions unavailable")
		return
	}

	if v, ok := suggestions[grade.VGPlus.String()]; ok {
		price := v
		stats.VGPlusPrice = &price
	}
	if v, ok := suggestions[grade.NearMint.String()]; ok {
		price := v
		stats.NearMintPrice = &price
	}
}
