// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package autocorrect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Suggester returns a corrected version of text, or "" for none.
type Suggester interface {
	Suggest(ctx context.Context, text string) (string, error)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// URL is the absolute suggestion endpoint; text is sent as ?q=.
	URL string
	// RatePerSec caps outgoing requests; zero disables the cap.
	RatePerSec float64
	Burst      int
	// CacheTTL keeps answers per text; zero disables caching.
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the suggestion endpoint with rate limiting and a result cache.
type Client struct {
	url     string
	hc      *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

type suggestResponse struct {
	Suggestion string `json:"suggestion"`
}

// NewClient returns a Client for opts.
func NewClient(opts ClientOptions) *Client {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		url:     opts.URL,
		hc:      hc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// Suggest implements Suggester.
func (c *Client) Suggest(ctx context.Context, text string) (string, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(text); ok {
			return v.(string), nil
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid autocorrect url: %w", err)
	}
	q := u.Query()
	q.Set("q", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("autocorrect returned %d", resp.StatusCode)
	}

	var body suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode suggestion: %w", err)
	}
	if c.cache != nil {
		c.cache.Set(text, body.Suggestion, cache.DefaultExpiration)
	}
	return body.Suggestion, nil
}
