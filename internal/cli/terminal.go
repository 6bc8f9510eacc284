// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/nebula-tui/internal/config"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest width text is wrapped to.
	MinTerminalWidth = 40
)

// isTerminal reports whether w is an *os.File attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsStdinTTY reports whether stdin is a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalWidth returns the width of w, or DefaultTerminalWidth.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return max(width, MinTerminalWidth)
}

// =============================================================================
// COLOR
// =============================================================================

// colorsEnabled reports whether styled output should be written to w.
// NO_COLOR always wins.
func colorsEnabled(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}
	return isTerminal(w)
}

// configureColor sets the lipgloss profile for line-oriented output to w.
func configureColor(w io.Writer) {
	if !colorsEnabled(w) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}

// answerRenderer picks glamour for terminals and plain text otherwise, so
// piped answers stay greppable markdown.
func answerRenderer(cfg *config.Config, w io.Writer) components.MarkdownRenderer {
	if !colorsEnabled(w) {
		return components.PlainRenderer{}
	}
	wrap := terminalWidth(w) - 2
	if cfg.UI.WordWrap > 0 {
		wrap = min(wrap, cfg.UI.WordWrap)
	}
	r, err := components.NewGlamourRenderer(cfg.UI.MarkdownStyle, wrap)
	if err != nil {
		return components.PlainRenderer{Width: wrap}
	}
	return r
}
