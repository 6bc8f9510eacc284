// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package trace records the research events of a run into the owning
// session, in arrival order. Entries are never reordered, merged or removed;
// a session's trace is only reset when a new question is asked in it.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/nebula-tui/internal/model"
)

// Store is the part of the session store the log writes through.
type Store interface {
	AppendTrace(sessionID string, ev model.TraceEvent) error
	Get(sessionID string) (model.Session, bool)
}

// Log appends trace entries to sessions.
type Log struct {
	store Store
	now   func() time.Time
}

// New returns a Log writing to store.
func New(store Store) *Log {
	return &Log{store: store, now: time.Now}
}

// Append stores raw as the next entry of a session's trace. raw must be valid
// JSON; it is compacted so the persisted form is canonical.
func (l *Log) Append(sessionID string, kind model.TraceKind, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	return l.store.AppendTrace(sessionID, model.TraceEvent{
		Type: kind,
		Data: json.RawMessage(buf.Bytes()),
		At:   l.now(),
	})
}

// Record marshals payload and appends it.
func (l *Log) Record(sessionID string, kind model.TraceKind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return l.Append(sessionID, kind, raw)
}

// Events returns a session's trace, oldest first.
func (l *Log) Events(sessionID string) []model.TraceEvent {
	s, ok := l.store.Get(sessionID)
	if !ok {
		return nil
	}
	return s.Trace
}
