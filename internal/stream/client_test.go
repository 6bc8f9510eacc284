// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jeranaias/nebula-tui/internal/model"
)

func leakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	}
}

func writeEvent(w http.ResponseWriter, name, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func collect(t *testing.T, conn *Conn) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not close")
			return nil
		}
	}
}

func TestClient_StreamsEventsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)

	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, "plan", `{"intent":"explain","steps":["Search","Answer"]}`)
		writeEvent(w, "progress", `{"pct":50}`)
		writeEvent(w, "final", `{"answer":"**42**","citations":["https://a.example"]}`)
		writeEvent(w, "progress", `{"pct":100}`)
	}))
	defer srv.Close()
	defer srv.Client().CloseIdleConnections()

	client := NewClient(Options{StreamURL: srv.URL + "/api/stream_chat", HTTPClient: srv.Client()})
	conn, err := client.Open(context.Background(), "what is 6 × 7?", model.ModeThorough)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	events := collect(t, conn)
	conn.Close()

	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	if strings.Join(names, ",") != "plan,progress,final,progress" {
		t.Errorf("event order = %v", names)
	}
	req := <-seen
	if q := req.URL.Query(); q.Get("question") != "what is 6 × 7?" || q.Get("mode") != "thorough" {
		t.Errorf("query params = %v", q)
	}
	if got := req.Header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("Accept = %q", got)
	}
}

func TestClient_HTTPErrorBecomesErrorEvent(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"model overloaded"}`)
	}))
	defer srv.Close()
	defer srv.Client().CloseIdleConnections()

	conn, err := NewClient(Options{StreamURL: srv.URL, HTTPClient: srv.Client()}).
		Open(context.Background(), "q", model.ModeFast)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	events := collect(t, conn)
	conn.Close()

	if len(events) != 1 || events[0].Name != EventError {
		t.Fatalf("events = %+v, want one error event", events)
	}
	var e Error
	if err := events[0].Decode(&e); err != nil || e.Message != "model overloaded" {
		t.Errorf("error payload = %+v, %v", e, err)
	}
}

func TestClient_UnreachableBecomesErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	conn, err := NewClient(Options{StreamURL: url, ConnectTimeout: time.Second}).
		Open(context.Background(), "q", model.ModeFast)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	events := collect(t, conn)
	conn.Close()

	if len(events) != 1 || events[0].Name != EventError {
		t.Fatalf("events = %+v, want one error event", events)
	}
}

func TestClient_CloseMidStream(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, "status", `{"state":"Searching"}`)
		<-r.Context().Done()
	}))
	defer srv.Close()
	defer srv.Client().CloseIdleConnections()

	conn, err := NewClient(Options{StreamURL: srv.URL, HTTPClient: srv.Client()}).
		Open(context.Background(), "q", model.ModeFast)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	select {
	case ev := <-conn.Events():
		if ev.Name != EventStatus {
			t.Fatalf("first event = %q", ev.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	done := make(chan struct{})
	go func() {
		conn.Close()
		conn.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// No error event is synthesized for a deliberate close.
	for ev := range conn.Events() {
		if ev.Name == EventError {
			t.Errorf("unexpected error event after Close: %s", ev.Data)
		}
	}
}

func TestClient_CloseWithUnreadEvents(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 200; i++ {
			writeEvent(w, "search", `{"query":"q","results":[]}`)
		}
		<-r.Context().Done()
	}))
	defer srv.Close()
	defer srv.Client().CloseIdleConnections()

	conn, err := NewClient(Options{StreamURL: srv.URL, HTTPClient: srv.Client()}).
		Open(context.Background(), "q", model.ModeFast)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		conn.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a full event buffer")
	}
}

func TestClient_BadURL(t *testing.T) {
	_, err := NewClient(Options{StreamURL: "://nope"}).Open(context.Background(), "q", model.ModeFast)
	if err == nil {
		t.Error("expected error for malformed URL")
	}
}
