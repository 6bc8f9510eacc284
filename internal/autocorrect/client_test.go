// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package autocorrect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Suggest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"suggestion":%q}`, "fixed: "+r.URL.Query().Get("q"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL + "/api/autocorrect", CacheTTL: time.Minute, HTTPClient: srv.Client()})

	got, err := c.Suggest(context.Background(), "teh & co")
	require.NoError(t, err)
	assert.Equal(t, "fixed: teh & co", got)

	// Second call is served from the cache.
	got, err = c.Suggest(context.Background(), "teh & co")
	require.NoError(t, err)
	assert.Equal(t, "fixed: teh & co", got)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_NoCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"suggestion":""}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, HTTPClient: srv.Client()})
	for i := 0; i < 3; i++ {
		_, err := c.Suggest(context.Background(), "same")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, CacheTTL: time.Minute, HTTPClient: srv.Client()})
	_, err := c.Suggest(context.Background(), "q")
	assert.Error(t, err)
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{URL: srv.URL, HTTPClient: srv.Client()}).Suggest(context.Background(), "q")
	assert.Error(t, err)
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"suggestion":"x"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, RatePerSec: 0.01, Burst: 1, HTTPClient: srv.Client()})
	_, err := c.Suggest(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Suggest(ctx, "second")
	assert.Error(t, err, "second request should not fit in the rate budget")
}
