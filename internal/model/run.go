// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunIdle     RunStatus = "idle"
	RunThinking RunStatus = "thinking"
	RunDone     RunStatus = "done"
	RunError    RunStatus = "error"
	RunStopped  RunStatus = "stopped"
)

// Terminal reports whether s ends a run.
func (s RunStatus) Terminal() bool {
	return s == RunDone || s == RunError || s == RunStopped
}

// Plan is the research plan announced by the service for the active run.
type Plan struct {
	Intent *string  `json:"intent"`
	Steps  []string `json:"steps"`
}

// IntentText returns the intent or "" when none was announced.
func (p Plan) IntentText() string {
	if p.Intent == nil {
		return ""
	}
	return *p.Intent
}

// RunState describes the active (or most recent) run. It is never persisted.
type RunState struct {
	Status     RunStatus
	Elapsed    time.Duration
	Progress   float64
	StatusLine string
	Plan       Plan
	// Error is the failure message when Status is RunError.
	Error      string
}

// Thinking reports whether a run is in flight.
func (r RunState) Thinking() bool {
	return r.Status == RunThinking
}

// Clone returns a copy that shares no slices with r.
func (r RunState) Clone() RunState {
	if r.Plan.Steps != nil {
		r.Plan.Steps = append([]string(nil), r.Plan.Steps...)
	}
	if r.Plan.Intent != nil {
		intent := *r.Plan.Intent
		r.Plan.Intent = &intent
	}
	return r
}

// AutocorrectSuggestion is a proposed rewrite of QueriedText.
type AutocorrectSuggestion struct {
	QueriedText   string
	SuggestedText string
}

// Correction records that a submitted query was replaced by a suggestion.
type Correction struct {
	Original  string
	Corrected string
}
