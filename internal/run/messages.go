// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nebula-tui/internal/stream"
)

// EventMsg delivers one stream event of run RunID.
type EventMsg struct {
	RunID uint64
	Event stream.Event
}

// StreamClosedMsg reports that run RunID's event channel was closed.
type StreamClosedMsg struct {
	RunID uint64
}

// TickMsg advances the elapsed timer of run RunID.
type TickMsg struct {
	RunID uint64
	At    time.Time
}

// StopMsg asks the controller to stop the active run.
type StopMsg struct{}

type progressResetMsg struct {
	runID uint64
}

// waitForEvent blocks on the next event of s. It is re-armed after every
// event the controller accepts.
func waitForEvent(runID uint64, s Stream) tea.Cmd {
	ch := s.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return StreamClosedMsg{RunID: runID}
		}
		return EventMsg{RunID: runID, Event: ev}
	}
}
