package types

import (
	"context"
	"strconv"
)

// DiscogsService defines the interface for Discogs API operations
type DiscogsService interface {
	GetRelease(ctx context.Context, id int) (*EntityDetail, error)
	GetMaster(ctx context.Context, id int) (*EntityDetail, error)
	GetPriceSuggestions(ctx context.Context, releaseID int) (map[string]float64, error)
	FetchSellPage(ctx context.Context, url string) (string, error)
	HasToken() bool
}

// DiscoveryService defines the interface for finding candidate Discogs
// entities for a parsed query
type DiscoveryService interface {
	FindCandidates(ctx context.Context, artist, track string) ([]EntityRef, error)
}

// PriceLookup defines the interface for the end-to-end lookup pipeline
type PriceLookup interface {
	Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error)
}

// RateBudget defines the interface for the shared outbound request budget
type RateBudget interface {
	Wait(ctx context.Context) error
}

// Core data models

// ParsedQuery is a free-form query split into artist and track components.
// Artist is empty when no recognized separator was found past position zero;
// Track then holds the whole input unchanged.
type ParsedQuery struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// TracklistEntry is a single row of a release tracklist. Entries without a
// Type are treated as playable tracks; heading and index rows are skipped by
// the matcher.
type TracklistEntry struct {
	Position string `json:"position"`
	Title    string `json:"title"`
	Type     string `json:"type_"`
	Duration string `json:"duration"`
}

// EntityKind distinguishes Discogs masters from concrete releases
type EntityKind string

const (
	KindMaster  EntityKind = "master"
	KindRelease EntityKind = "release"
)

// EntityRef identifies a Discogs master or release. Identity is (Kind, ID).
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   int        `json:"id"`
	URL  string     `json:"url"`
}

// Key returns the deduplication key for the reference
func (e EntityRef) Key() string {
	return string(e.Kind) + ":" + strconv.Itoa(e.ID)
}

// Artist is a credited artist on a Discogs entity
type Artist struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Format describes one physical format of a release (e.g. Vinyl, CD)
type Format struct {
	Name         string   `json:"name"`
	Quantity     string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// Image is a thumbnail/cover reference on an entity
type Image struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// EntityDetail is the detail payload for a master or release
type EntityDetail struct {
	ID        int              `json:"id"`
	Title     string           `json:"title"`
	Year      int              `json:"year"`
	Artists   []Artist         `json:"artists"`
	Tracklist []TracklistEntry `json:"tracklist"`
	Formats   []Format         `json:"formats"`
	Images    []Image          `json:"images"`
	// MainRelease is populated on masters only
	MainRelease int `json:"main_release"`
}

// PageStats is the result of parsing a single marketplace sell page
type PageStats struct {
	Total        int       `json:"total"`
	OnPageCount  int       `json:"on_page_count"`
	MatchedCount int       `json:"matched_count"`
	Prices       []float64 `json:"prices"`
	Lowest       *float64  `json:"lowest"`
	// LowestGrade is the abbreviated media condition of the cheapest
	// priced listing, when one exists
	LowestGrade string `json:"lowest_grade,omitempty"`
}

// AggregateStats is combined pricing statistics for a query or single entity
type AggregateStats struct {
	NumForSale    int      `json:"num_for_sale"`
	LowestPrice   *float64 `json:"lowest_price"`
	LowestGrade   string   `json:"lowest_grade,omitempty"`
	MedianPrice   *float64 `json:"median_price"`
	VGPlusPrice   *float64 `json:"vg_plus_price,omitempty"`
	NearMintPrice *float64 `json:"near_mint_price,omitempty"`
}

// MatchDetail is one verified entity with display metadata and its own
// per-entity statistics
type MatchDetail struct {
	Entity  EntityRef      `json:"entity"`
	Title   string         `json:"title"`
	Artist  string         `json:"artist"`
	Year    int            `json:"year"`
	Thumb   string         `json:"thumb,omitempty"`
	Format  string         `json:"format,omitempty"`
	SellURL string         `json:"sell_url"`
	Stats   AggregateStats `json:"stats"`
	// Prices holds the raw per-listing prices backing Stats so the
	// aggregator can pool them across entities
	Prices []float64 `json:"-"`
}

// API request/response models

// LookupRequest is a request to resolve pricing for a raw title or an
// already-split artist/track query
type LookupRequest struct {
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Track     string `json:"track,omitempty"`
	USOnly    bool   `json:"us_only"`
	VGPlus    bool   `json:"vg_plus"`
	ReleaseID int    `json:"release_id,omitempty"`
}

// LookupResult is the aggregate outcome of a lookup
type LookupResult struct {
	Query   ParsedQuery    `json:"query"`
	Stats   AggregateStats `json:"stats"`
	Matches []MatchDetail  `json:"matches"`
}

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}
