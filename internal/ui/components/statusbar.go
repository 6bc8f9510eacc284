// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBarInfo is what the status bar shows.
type StatusBarInfo struct {
	Mode        model.Mode
	Autocorrect bool
	Thinking    bool
	Sessions    int
	Shortcuts   []Shortcut
	// Notice replaces the shortcuts when set.
	Notice string
}

// StatusBar renders the footer line. Shortcuts are dropped from the right
// until the line fits.
func StatusBar(theme *styles.Theme, info StatusBarInfo, width int) string {
	mode := theme.ModeFast.Render("FAST")
	if info.Mode == model.ModeThorough {
		mode = theme.ModeThorough.Render("THOROUGH")
	}
	ac := "autocorrect off"
	if info.Autocorrect {
		ac = "autocorrect on"
	}
	left := mode + theme.ShortcutDesc.Render(" | "+ac+" | "+strconv.Itoa(info.Sessions)+" sessions")
	if info.Thinking {
		left += theme.ShortcutKey.Render(" | esc") + theme.ShortcutDesc.Render(" stop")
	}

	var right string
	if info.Notice != "" {
		right = theme.ShortcutDesc.Render(info.Notice)
	} else {
		shortcuts := info.Shortcuts
		for len(shortcuts) > 0 {
			right = renderShortcuts(theme, shortcuts)
			if lipgloss.Width(left)+lipgloss.Width(right)+4 <= width {
				break
			}
			shortcuts = shortcuts[:len(shortcuts)-1]
			right = ""
		}
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderShortcuts(theme *styles.Theme, shortcuts []Shortcut) string {
	parts := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		parts[i] = theme.ShortcutKey.Render(s.Key) + " " + theme.ShortcutDesc.Render(s.Desc)
	}
	return strings.Join(parts, "  ")
}
