// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, input string) []Event {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var out []Event
	for {
		ev, err := r.ReadEvent()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadEvent failed: %v", err)
		}
		out = append(out, ev)
	}
}

func TestReader_NamedEvents(t *testing.T) {
	input := "event: plan\ndata: {\"intent\":\"x\",\"steps\":[]}\n\n" +
		"event: progress\ndata: {\"pct\":12.5}\n\n" +
		"event: final\ndata: {\"answer\":\"done\",\"citations\":[]}\n\n"

	events := readAll(t, input)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	wantNames := []string{EventPlan, EventProgress, EventFinal}
	for i, ev := range events {
		if ev.Name != wantNames[i] {
			t.Errorf("event %d name = %q, want %q", i, ev.Name, wantNames[i])
		}
	}
	if string(events[1].Data) != `{"pct":12.5}` {
		t.Errorf("progress data = %q", events[1].Data)
	}
}

func TestReader_Framing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Event
	}{
		{
			name:  "crlf line endings",
			input: "event: status\r\ndata: {\"state\":\"a\"}\r\n\r\n",
			want:  []Event{{Name: "status", Data: []byte(`{"state":"a"}`)}},
		},
		{
			name:  "comments and keepalives ignored",
			input: ": ping\n\n: ping\nevent: status\ndata: {}\n\n",
			want:  []Event{{Name: "status", Data: []byte(`{}`)}},
		},
		{
			name:  "multi-line data joined with newline",
			input: "event: final\ndata: {\"answer\":\ndata: \"x\"}\n\n",
			want:  []Event{{Name: "final", Data: []byte("{\"answer\":\n\"x\"}")}},
		},
		{
			name:  "no trailing blank line",
			input: "event: error\ndata: {\"message\":\"boom\"}",
			want:  []Event{{Name: "error", Data: []byte(`{"message":"boom"}`)}},
		},
		{
			name:  "unnamed event",
			input: "data: hello\n\n",
			want:  []Event{{Name: "message", Data: []byte("hello")}},
		},
		{
			name:  "event without data is skipped and name does not leak",
			input: "event: plan\n\ndata: {}\n\n",
			want:  []Event{{Name: "message", Data: []byte("{}")}},
		},
		{
			name:  "error event without data is delivered",
			input: "event: error\n\nevent: status\ndata: {\"state\":\"a\"}\n\n",
			want: []Event{
				{Name: "error"},
				{Name: "status", Data: []byte(`{"state":"a"}`)},
			},
		},
		{
			name:  "bare error event at end of stream",
			input: "event: error\n",
			want:  []Event{{Name: "error"}},
		},
		{
			name:  "no space after colon",
			input: "event:read\ndata:{\"url\":\"u\"}\n\n",
			want:  []Event{{Name: "read", Data: []byte(`{"url":"u"}`)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i].Name != tt.want[i].Name || string(got[i].Data) != string(tt.want[i].Data) {
					t.Errorf("event %d = {%q %q}, want {%q %q}", i, got[i].Name, got[i].Data, tt.want[i].Name, tt.want[i].Data)
				}
			}
		})
	}
}

func TestReader_LongLine(t *testing.T) {
	answer := strings.Repeat("a", 200*1024)
	events := readAll(t, "event: final\ndata: {\"answer\":\""+answer+"\"}\n\n")
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	var f Final
	if err := events[0].Decode(&f); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(f.Answer) != len(answer) {
		t.Errorf("answer length = %d, want %d", len(f.Answer), len(answer))
	}
}

func TestEvent_Decode(t *testing.T) {
	var p Progress
	if err := (Event{Name: EventProgress, Data: []byte(`{"pct":40}`)}).Decode(&p); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Pct == nil || *p.Pct != 40 {
		t.Errorf("Pct = %v, want 40", p.Pct)
	}

	var missing Progress
	_ = (Event{Name: EventProgress, Data: []byte(`{}`)}).Decode(&missing)
	if missing.Pct != nil {
		t.Error("absent pct should decode as nil")
	}

	if err := (Event{Name: EventError}).Decode(&Error{}); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("empty payload error = %v", err)
	}

	var e Error
	if err := ErrorEvent("boom").Decode(&e); err != nil || e.Message != "boom" {
		t.Errorf("ErrorEvent round trip = %+v, %v", e, err)
	}
}
