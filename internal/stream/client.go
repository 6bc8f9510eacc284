// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/model"
)

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	// StreamURL is the absolute URL of the SSE endpoint.
	StreamURL string
	// ConnectTimeout bounds dialing and waiting for response headers. The
	// body itself may stream for as long as the service needs.
	ConnectTimeout time.Duration
	// HTTPClient overrides the default client; ConnectTimeout is then ignored.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client opens research streams.
type Client struct {
	streamURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a Client for opts.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.ConnectTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       30 * time.Second,
			},
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{streamURL: opts.StreamURL, httpClient: hc, logger: logger}
}

// Open starts a research stream for query. It fails only when the request
// cannot be built; every later failure arrives as an "error" event.
func (c *Client) Open(ctx context.Context, query string, mode model.Mode) (*Conn, error) {
	u, err := url.Parse(c.streamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	q := u.Query()
	q.Set("question", query)
	q.Set("mode", string(mode))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	conn := &Conn{
		events: make(chan Event, 16),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: c.logger.With(zap.String("mode", string(mode))),
	}
	go conn.run(c.httpClient, req)
	return conn, nil
}

// =============================================================================
// CONNECTION
// =============================================================================

// Conn is one open research stream.
type Conn struct {
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// Events yields events in arrival order and is closed when the stream ends.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Close aborts the request and waits for the reader goroutine to exit.
// Calling Close more than once is safe.
func (c *Conn) Close() {
	c.once.Do(c.cancel)
	<-c.done
}

func (c *Conn) run(hc *http.Client, req *http.Request) {
	defer close(c.done)
	defer close(c.events)
	defer c.cancel()

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("stream request failed", zap.Error(err))
			c.send(ErrorEvent(fmt.Sprintf("Could not reach the research service: %v", unwrapURLError(err))))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorBody(resp)
		c.logger.Warn("stream rejected", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		c.send(ErrorEvent(msg))
		return
	}
	c.logger.Debug("stream opened", zap.Duration("ttfb", time.Since(start)))

	reader := NewReader(resp.Body)
	count := 0
	for {
		ev, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Debug("stream ended", zap.Int("events", count), zap.Duration("elapsed", time.Since(start)))
				return
			}
			if c.ctx.Err() == nil {
				c.logger.Warn("stream interrupted", zap.Error(err))
				c.send(ErrorEvent(fmt.Sprintf("Connection to the research service was interrupted: %v", err)))
			}
			return
		}
		count++
		if !c.send(ev) {
			return
		}
	}
}

// send delivers ev unless the connection is being closed.
func (c *Conn) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// readErrorBody extracts a useful message from a non-2xx response.
func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Sprintf("Research service returned %d: %s", resp.StatusCode, text)
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
