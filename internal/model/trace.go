// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"
)

// TraceKind names a research event.
type TraceKind string

const (
	TracePlan      TraceKind = "plan"
	TraceProgress  TraceKind = "progress"
	TraceStatus    TraceKind = "status"
	TraceQueries   TraceKind = "queries"
	TraceSearch    TraceKind = "search"
	TraceRead      TraceKind = "read"
	TraceExtract   TraceKind = "extract"
	TraceRationale TraceKind = "rationale"
	TraceError     TraceKind = "error"
)

// Label is the short heading shown in trace listings.
func (k TraceKind) Label() string {
	switch k {
	case TracePlan:
		return "Plan"
	case TraceProgress:
		return "Progress"
	case TraceStatus:
		return "Status"
	case TraceQueries:
		return "Queries"
	case TraceSearch:
		return "Search"
	case TraceRead:
		return "Read"
	case TraceExtract:
		return "Evidence"
	case TraceRationale:
		return "Rationale"
	case TraceError:
		return "Error"
	default:
		return string(k)
	}
}

// TraceEvent is one entry of a session's research trace. Data holds the event
// payload exactly as received.
type TraceEvent struct {
	Type TraceKind       `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// Clone returns a copy that shares no bytes with e.
func (e TraceEvent) Clone() TraceEvent {
	if e.Data != nil {
		e.Data = append(json.RawMessage(nil), e.Data...)
	}
	return e
}
