// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/nebula-tui/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen.
type KeyMap struct {
	Submit      key.Binding
	Stop        key.Binding
	ToggleMode  key.Binding
	NewSession  key.Binding
	Sessions    key.Binding
	Delete      key.Binding
	Rename      key.Binding
	Details     key.Binding
	Autocorrect key.Binding
	Original    key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop"),
		),
		ToggleMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "mode"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "sessions"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "delete"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rename"),
		),
		Details: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "trace"),
		),
		Autocorrect: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("ctrl+a", "autocorrect"),
		),
		Original: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "original"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// shortcuts returns the hints for the status bar in priority order.
func (k KeyMap) shortcuts(f focus) []components.Shortcut {
	var bindings []key.Binding
	switch f {
	case focusSessions:
		return []components.Shortcut{{Key: "enter", Desc: "open"}, {Key: "ctrl+x", Desc: "delete"}, {Key: "esc", Desc: "back"}}
	case focusRename:
		return []components.Shortcut{{Key: "enter", Desc: "save"}, {Key: "esc", Desc: "cancel"}}
	default:
		bindings = []key.Binding{k.Submit, k.ToggleMode, k.NewSession, k.Sessions, k.Details, k.Rename, k.Autocorrect, k.Quit}
	}
	out := make([]components.Shortcut, len(bindings))
	for i, b := range bindings {
		out[i] = components.Shortcut{Key: b.Help().Key, Desc: b.Help().Desc}
	}
	return out
}
