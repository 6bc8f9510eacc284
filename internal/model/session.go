// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/nebula-tui/internal/util"
)

// MaxTitleRunes bounds derived session titles.
const MaxTitleRunes = 64

// UntitledSession is used when a title hint has no visible characters.
const UntitledSession = "Untitled"

// =============================================================================
// MODE TYPE
// =============================================================================

// Mode selects research depth.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeThorough Mode = "thorough"
)

// ParseMode accepts "fast" or "thorough" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFast:
		return ModeFast, nil
	case ModeThorough:
		return ModeThorough, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want fast or thorough)", s)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeThorough {
		return ModeFast
	}
	return ModeThorough
}

func (m Mode) String() string {
	return string(m)
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one persisted conversation.
type Session struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Mode      Mode         `json:"mode"`
	Messages  []Message    `json:"messages"`
	Trace     []TraceEvent `json:"trace"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewSession returns an empty session titled from hint.
func NewSession(hint string, mode Mode) Session {
	return Session{
		ID:        NewID(),
		Title:     DeriveTitle(hint),
		Mode:      mode,
		Messages:  []Message{},
		Trace:     []TraceEvent{},
		CreatedAt: time.Now(),
	}
}

// DeriveTitle collapses whitespace in hint and keeps the first 64 characters.
func DeriveTitle(hint string) string {
	title := util.TruncateRunesNoEllipsis(util.CollapseWhitespace(hint), MaxTitleRunes)
	if title == "" {
		return UntitledSession
	}
	return title
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	msgs := make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = m.Clone()
	}
	trace := make([]TraceEvent, len(s.Trace))
	for i, e := range s.Trace {
		trace[i] = e.Clone()
	}
	s.Messages = msgs
	s.Trace = trace
	return s
}

// LastMessage returns the most recent message, if any.
func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Preview returns a one-line summary of the latest message.
func (s Session) Preview(maxRunes int) string {
	last, ok := s.LastMessage()
	if !ok {
		return ""
	}
	return util.TruncateRunes(util.CollapseWhitespace(last.Content), maxRunes)
}
