// Package discovery finds candidate Discogs entities for a parsed query by
// scraping a search engine's result page.
//
// The result page is fetched as HTML, anchors are extracted with goquery,
// and the anchor texts are fuzzy-ranked against the query so the most
// promising releases are tried first. The discovery step only supplies
// candidate URLs; verification against the tracklist happens downstream.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/discogs"
	"github.com/Eric-A99/discogs-preview/internal/textutil"
	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Config holds configuration for the search-engine scraper.
type Config struct {
	// SearchURL is the HTML results endpoint; the query is appended as
	// the q parameter.
	SearchURL      string
	UserAgent      string
	Timeout        time.Duration
	MaxCandidates  int
	MaxContentSize int64
}

// DefaultConfig returns the default discovery configuration.
func DefaultConfig() Config {
	return Config{
		SearchURL:      "https://html.duckduckgo.com/html/",
		UserAgent:      "discogs-preview/1.0",
		Timeout:        30 * time.Second,
		MaxCandidates:  5,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
	}
}

// Searcher implements the DiscoveryService interface against an HTML search
// engine.
type Searcher struct {
	httpClient *http.Client
	config     Config
	logger     *logrus.Logger
}

// NewSearcher creates a search-engine backed discovery service.
func NewSearcher(config Config, logger *logrus.Logger) *Searcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Searcher{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger,
	}
}

// candidate is one anchor lifted from the results page
type candidate struct {
	href string
	text string
}

// FindCandidates searches for the query and returns up to MaxCandidates
// deduplicated entity references, best-ranked first.
func (s *Searcher) FindCandidates(ctx context.Context, artist, track string) ([]types.EntityRef, error) {
	query := strings.TrimSpace(artist + " " + track)
	if query == "" {
		return nil, fmt.Errorf("discovery query cannot be empty")
	}

	html, err := s.fetchResults(ctx, query+" site:discogs.com")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}

	candidates, err := s.extractCandidates(html)
	if err != nil {
		return nil, err
	}

	collector := discogs.NewCollector()
	for _, c := range rankCandidates(query, candidates) {
		collector.Add(c.href)
		if len(collector.Refs()) >= s.config.MaxCandidates {
			break
		}
	}
	refs := collector.Refs()

	s.logger.WithFields(logrus.Fields{
		"component":  "discovery",
		"operation":  "find_candidates",
		"query":      query,
		"anchors":    len(candidates),
		"candidates": len(refs),
	}).Info("Discovery completed")

	return refs, nil
}

func (s *Searcher) fetchResults(ctx context.Context, query string) (string, error) {
	searchURL := s.config.SearchURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search engine returned status %d", resp.StatusCode)
	}

	body := http.MaxBytesReader(nil, resp.Body, s.config.MaxContentSize)
	content, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(content), nil
}

// extractCandidates pulls every anchor from the results page, unwrapping
// the engine's redirect parameter when present.
func (s *Searcher) extractCandidates(html string) ([]candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var out []candidate
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = unwrapRedirect(href)
		text := strings.TrimSpace(sel.Text())
		if href == "" {
			return
		}
		out = append(out, candidate{href: href, text: text})
	})
	return out, nil
}

// unwrapRedirect resolves the uddg-style redirect wrapper some engines put
// around result links.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// rankCandidates orders anchors by fuzzy similarity of their text to the
// query; anchors the matcher cannot score keep their document order after
// the ranked ones.
func rankCandidates(query string, candidates []candidate) []candidate {
	if len(candidates) == 0 {
		return nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = textutil.Normalize(c.text)
	}

	matches := fuzzy.Find(textutil.Normalize(query), texts)
	ranked := make([]candidate, 0, len(candidates))
	seen := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		ranked = append(ranked, candidates[m.Index])
		seen[m.Index] = struct{}{}
	}
	for i, c := range candidates {
		if _, ok := seen[i]; !ok {
			ranked = append(ranked, c)
		}
	}
	return ranked
}
