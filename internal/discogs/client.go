// Package discogs provides the Discogs API client, marketplace URL
// utilities and the shared outbound request budget.
package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Sentinel errors for the failure modes callers must distinguish.
var (
	// ErrNoToken is returned when an API call is attempted without a
	// configured personal access token.
	ErrNoToken = errors.New("no discogs token configured")
	// ErrUnauthorized is returned when the configured token is rejected.
	// It is fatal for the request and never retried.
	ErrUnauthorized = errors.New("discogs rejected the configured token")
	// ErrRateLimited is returned when the retry budget for a 429 response
	// is exhausted. It must be surfaced, never converted to an empty
	// result that could read as "no listings".
	ErrRateLimited = errors.New("discogs rate limit exceeded after retries")
)

// ClientConfig holds configuration for the Discogs client.
type ClientConfig struct {
	BaseURL        string
	Token          string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxContentSize int64
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "https://api.discogs.com",
		UserAgent:      "discogs-preview/1.0",
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryBackoff:   2 * time.Second,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
	}
}

// Client talks to the Discogs API and marketplace under a shared request
// budget.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	budget     types.RateBudget
	logger     *logrus.Logger
	// sleep allows tests to observe backoff without waiting
	sleep func(time.Duration)
}

// NewClient creates a Discogs client. The budget is shared with any other
// outbound callers; pass nil to run unthrottled.
func NewClient(config ClientConfig, budget types.RateBudget, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		config: config,
		budget: budget,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// HasToken reports whether a personal access token is configured
func (c *Client) HasToken() bool {
	return c.config.Token != ""
}

// GetRelease fetches release detail by id. Missing or forbidden releases
// yield (nil, nil): the caller should skip the candidate, not fail.
func (c *Client) GetRelease(ctx context.Context, id int) (*types.EntityDetail, error) {
	return c.getEntity(ctx, fmt.Sprintf("%s/releases/%d", c.config.BaseURL, id))
}

// GetMaster fetches master detail by id with the same absence semantics as
// GetRelease.
func (c *Client) GetMaster(ctx context.Context, id int) (*types.EntityDetail, error) {
	return c.getEntity(ctx, fmt.Sprintf("%s/masters/%d", c.config.BaseURL, id))
}

func (c *Client) getEntity(ctx context.Context, url string) (*types.EntityDetail, error) {
	body, status, err := c.doAPI(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusForbidden {
		c.logger.WithFields(logrus.Fields{
			"component": "discogs",
			"operation": "get_entity",
			"url":       url,
			"status":    status,
		}).Debug("Entity absent, skipping candidate")
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("discogs returned status %d for %s", status, url)
	}

	var detail types.EntityDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode entity detail: %w", err)
	}
	return &detail, nil
}

// priceSuggestion is one grade's suggested price in the API response.
type priceSuggestion struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// GetPriceSuggestions fetches the grade-label to suggested-price mapping for
// a release. Releases without suggestions yield an empty map.
func (c *Client) GetPriceSuggestions(ctx context.Context, releaseID int) (map[string]float64, error) {
	url := fmt.Sprintf("%s/marketplace/price_suggestions/%d", c.config.BaseURL, releaseID)
	body, status, err := c.doAPI(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusForbidden {
		return map[string]float64{}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("discogs returned status %d for %s", status, url)
	}

	var raw map[string]priceSuggestion
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode price suggestions: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for label, s := range raw {
		out[label] = s.Value
	}
	return out, nil
}

// FetchSellPage fetches a marketplace sell page as raw HTML. Sell pages are
// public, so no token is required, but the shared budget and retry policy
// still apply.
func (c *Client) FetchSellPage(ctx context.Context, url string) (string, error) {
	body, status, err := c.do(ctx, url, false)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("sell page returned status %d for %s", status, url)
	}
	return string(body), nil
}

// doAPI performs an authenticated API request. Calls without a configured
// token fail immediately and distinctly.
func (c *Client) doAPI(ctx context.Context, url string) ([]byte, int, error) {
	if !c.HasToken() {
		return nil, 0, ErrNoToken
	}
	return c.do(ctx, url, true)
}

// do performs one logical request with the bounded 429 retry loop. Backoff
// uses the server-provided Retry-After hint when present.
func (c *Client) do(ctx context.Context, url string, authenticated bool) ([]byte, int, error) {
	backoff := c.config.RetryBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if c.budget != nil {
			if err := c.budget.Wait(ctx); err != nil {
				return nil, 0, err
			}
		}

		body, status, retryAfter, err := c.doOnce(ctx, url, authenticated)
		if err != nil {
			return nil, 0, err
		}

		if status == http.StatusUnauthorized {
			return nil, status, ErrUnauthorized
		}
		if status != http.StatusTooManyRequests {
			return body, status, nil
		}

		wait := backoff
		if retryAfter > 0 {
			wait = retryAfter
		}
		c.logger.WithFields(logrus.Fields{
			"component": "discogs",
			"operation": "retry_rate_limited",
			"url":       url,
			"attempt":   attempt + 1,
			"max":       c.config.MaxRetries + 1,
			"wait":      wait,
		}).Warn("Rate limited, backing off")

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}
		c.sleep(wait)
		backoff *= 2
	}

	return nil, http.StatusTooManyRequests, ErrRateLimited
}

func (c *Client) doOnce(ctx context.Context, url string, authenticated bool) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if authenticated {
		req.Header.Set("Authorization", "Discogs token="+c.config.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"component":   "discogs",
		"operation":   "http_fetch",
		"url":         url,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Request completed")

	var retryAfter time.Duration
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	limited := http.MaxBytesReader(nil, resp.Body, c.config.MaxContentSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, retryAfter, nil
}
