// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/stream"
	"github.com/jeranaias/nebula-tui/internal/trace"
)

// OutcomeKind tells the controller what an event means for the run.
type OutcomeKind int

const (
	// Continue keeps the run thinking.
	Continue OutcomeKind = iota
	// Finished carries the final answer.
	Finished
	// Failed carries an error message.
	Failed
)

// Outcome is the result of applying one event.
type Outcome struct {
	Kind    OutcomeKind
	Final   stream.Final
	Message string
}

// DefaultErrorMessage is used when an error event has no usable message.
const DefaultErrorMessage = "The research service reported an error."

// reducer applies one kind of event. It returns ok=false when the payload is
// malformed, in which case nothing has been changed.
type reducer func(d *Dispatcher, state *model.RunState, sessionID string, ev stream.Event) (Outcome, bool)

var reducers = map[string]reducer{
	stream.EventPlan:      reducePlan,
	stream.EventProgress:  reduceProgress,
	stream.EventStatus:    reduceStatus,
	stream.EventQueries:   traceOnly[stream.Queries](model.TraceQueries),
	stream.EventSearch:    traceOnly[stream.Search](model.TraceSearch),
	stream.EventRead:      traceOnly[stream.Read](model.TraceRead),
	stream.EventExtract:   traceOnly[stream.Extract](model.TraceExtract),
	stream.EventRationale: traceOnly[stream.Rationale](model.TraceRationale),
	stream.EventFinal:     reduceFinal,
	stream.EventError:     reduceError,
}

// Dispatcher folds stream events into run state and the session trace.
type Dispatcher struct {
	trace  *trace.Log
	logger *zap.Logger
}

// NewDispatcher returns a Dispatcher that records into log.
func NewDispatcher(log *trace.Log, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{trace: log, logger: logger}
}

// Apply folds ev into state and the trace of sessionID. Unknown event names
// and malformed payloads leave everything untouched.
func (d *Dispatcher) Apply(state *model.RunState, sessionID string, ev stream.Event) Outcome {
	r, ok := reducers[ev.Name]
	if !ok {
		d.logger.Debug("ignoring unknown event", zap.String("event", ev.Name))
		return Outcome{Kind: Continue}
	}
	out, ok := r(d, state, sessionID, ev)
	if !ok {
		d.logger.Debug("dropping malformed event", zap.String("event", ev.Name), zap.ByteString("data", ev.Data))
		return Outcome{Kind: Continue}
	}
	return out
}

// record appends the verbatim payload; a session deleted mid-run is not an error.
func (d *Dispatcher) record(sessionID string, kind model.TraceKind, ev stream.Event) {
	if err := d.trace.Append(sessionID, kind, ev.Data); err != nil {
		d.logger.Debug("trace append skipped", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// =============================================================================
// REDUCERS
// =============================================================================

func reducePlan(d *Dispatcher, state *model.RunState, sessionID string, ev stream.Event) (Outcome, bool) {
	var p stream.Plan
	if err := ev.Decode(&p); err != nil {
		return Outcome{}, false
	}
	steps := p.Steps
	if steps == nil {
		steps = []string{}
	}
	state.Plan = model.Plan{Intent: p.Intent, Steps: steps}
	d.record(sessionID, model.TracePlan, ev)
	return Outcome{Kind: Continue}, true
}

// Progress only moves the bar; it is not worth a trace entry.
func reduceProgress(_ *Dispatcher, state *model.RunState, _ string, ev stream.Event) (Outcome, bool) {
	var p stream.Progress
	if err := ev.Decode(&p); err != nil {
		return Outcome{}, false
	}
	if p.Pct != nil {
		state.Progress = ClampProgress(*p.Pct)
	}
	return Outcome{Kind: Continue}, true
}

func reduceStatus(d *Dispatcher, state *model.RunState, sessionID string, ev stream.Event) (Outcome, bool) {
	var s stream.Status
	if err := ev.Decode(&s); err != nil {
		return Outcome{}, false
	}
	state.StatusLine = s.State
	d.record(sessionID, model.TraceStatus, ev)
	return Outcome{Kind: Continue}, true
}

// traceOnly validates the payload shape and records it verbatim.
func traceOnly[T any](kind model.TraceKind) reducer {
	return func(d *Dispatcher, _ *model.RunState, sessionID string, ev stream.Event) (Outcome, bool) {
		var payload T
		if err := ev.Decode(&payload); err != nil {
			return Outcome{}, false
		}
		d.record(sessionID, kind, ev)
		return Outcome{Kind: Continue}, true
	}
}

func reduceFinal(_ *Dispatcher, _ *model.RunState, _ string, ev stream.Event) (Outcome, bool) {
	var f stream.Final
	if err := ev.Decode(&f); err != nil {
		return Outcome{}, false
	}
	return Outcome{Kind: Finished, Final: f}, true
}

// The error payload is optional; any error event fails the run.
func reduceError(_ *Dispatcher, _ *model.RunState, _ string, ev stream.Event) (Outcome, bool) {
	var e stream.Error
	msg := DefaultErrorMessage
	if err := ev.Decode(&e); err == nil && strings.TrimSpace(e.Message) != "" {
		msg = e.Message
	}
	return Outcome{Kind: Failed, Message: msg}, true
}
