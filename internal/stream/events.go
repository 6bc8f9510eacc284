// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"errors"
)

// Event names sent by the service.
const (
	EventPlan      = "plan"
	EventProgress  = "progress"
	EventStatus    = "status"
	EventQueries   = "queries"
	EventSearch    = "search"
	EventRead      = "read"
	EventExtract   = "extract"
	EventRationale = "rationale"
	EventFinal     = "final"
	EventError     = "error"
)

// Event is one server-sent event. Data is the raw JSON payload.
type Event struct {
	Name string
	Data json.RawMessage
}

// ErrEmptyPayload is returned by Decode when the event carried no data.
var ErrEmptyPayload = errors.New("event has no payload")

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(e.Data, v)
}

// =============================================================================
// PAYLOADS
// =============================================================================

// Plan announces the research plan.
type Plan struct {
	Intent *string  `json:"intent"`
	Steps  []string `json:"steps"`
}

// Progress reports overall completion in percent. Pct is nil when absent.
type Progress struct {
	Pct *float64 `json:"pct"`
}

// Status is a one-line description of what the service is doing.
type Status struct {
	State string `json:"state"`
}

// Queries lists the search queries about to be issued.
type Queries struct {
	Items []string `json:"items"`
}

// SearchResult is one hit of a search.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Search reports the results of one query.
type Search struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// Read reports a fetched page.
type Read struct {
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// Extract lists evidence snippets taken from a page.
type Extract struct {
	URL      string   `json:"url"`
	Snippets []string `json:"snippets"`
}

// Rationale summarizes the reasoning behind the answer.
type Rationale struct {
	Subgoals     []string `json:"subgoals,omitempty"`
	Factors      []string `json:"factors,omitempty"`
	Risks        []string `json:"risks,omitempty"`
	PrelimAnswer string   `json:"prelim_answer,omitempty"`
}

// Final carries the finished markdown answer.
type Final struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Error reports a failed run.
type Error struct {
	Message string `json:"message"`
}

// ErrorEvent builds a synthesized error event.
func ErrorEvent(message string) Event {
	data, _ := json.Marshal(Error{Message: message})
	return Event{Name: EventError, Data: data}
}
