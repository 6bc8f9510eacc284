// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner animates while a run is thinking.
type Spinner struct {
	spinner  spinner.Model
	isActive bool
}

// NewSpinner returns an inactive spinner.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = styles.ThinkingSpinner
	s.Style = lipgloss.NewStyle().Foreground(styles.Purple)
	return Spinner{spinner: s}
}

// Start activates the spinner. The returned command drives its animation.
func (s *Spinner) Start() tea.Cmd {
	if s.isActive {
		return nil
	}
	s.isActive = true
	return s.spinner.Tick
}

// Stop deactivates the spinner; pending ticks are then ignored.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is running.
func (s Spinner) IsActive() bool {
	return s.isActive
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the current frame, or "" when inactive.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	return s.spinner.View()
}
