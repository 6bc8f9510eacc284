// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// Conversation
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	Citation       lipgloss.Style
	Timestamp      lipgloss.Style

	// Run panel
	Panel       lipgloss.Style
	PanelTitle  lipgloss.Style
	StepDone    lipgloss.Style
	StepActive  lipgloss.Style
	StepPending lipgloss.Style
	StatusLine  lipgloss.Style
	Elapsed     lipgloss.Style
	Stopped     lipgloss.Style
	Failed      lipgloss.Style

	// Trace
	TraceKind lipgloss.Style
	TraceBody lipgloss.Style

	// Composer
	InputContainer lipgloss.Style
	Suggestion     lipgloss.Style
	Correction     lipgloss.Style

	// Sessions
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionMeta         lipgloss.Style

	// Footer
	StatusBar    lipgloss.Style
	ModeFast     lipgloss.Style
	ModeThorough lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme detects the terminal and builds the styles.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// MarkdownStyle returns the glamour standard style matching the background.
func (t *Theme) MarkdownStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.Citation = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.StepDone = lipgloss.NewStyle().Foreground(Emerald)
	t.StepActive = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.StepPending = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusLine = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Elapsed = lipgloss.NewStyle().Foreground(TextMuted)
	t.Stopped = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Failed = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.TraceKind = lipgloss.NewStyle().Bold(true).Foreground(Purple).Width(10)
	t.TraceBody = lipgloss.NewStyle().Foreground(TextSecondary)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.Suggestion = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.Correction = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.SessionItem = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(1)
	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(1)
	t.SessionMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ModeFast = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ModeThorough = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
}
