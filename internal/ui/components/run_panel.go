// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/run"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// Step markers.
const (
	IconDone    = "[x]"
	IconActive  = "[>]"
	IconPending = "[ ]"
)

// =============================================================================
// RUN PANEL
// =============================================================================

// RunPanel renders the state of the active or most recent run.
type RunPanel struct {
	theme *styles.Theme
	bar   progress.Model
	width int
}

// NewRunPanel returns a panel at the given width.
func NewRunPanel(theme *styles.Theme, width int) *RunPanel {
	p := &RunPanel{
		theme: theme,
		bar:   progress.New(progress.WithGradient("#7C3AED", "#22D3EE"), progress.WithoutPercentage()),
	}
	p.SetWidth(width)
	return p
}

// SetWidth resizes the panel.
func (p *RunPanel) SetWidth(width int) {
	p.width = max(width, 20)
	p.bar.Width = p.width - 12
}

// Render draws the panel. spinnerFrame is shown while thinking. An idle run
// renders as "".
func (p *RunPanel) Render(state model.RunState, spinnerFrame string) string {
	if state.Status == model.RunIdle {
		return ""
	}
	var sb strings.Builder

	sb.WriteString(p.renderHeadline(state, spinnerFrame))
	if steps := p.renderSteps(state); steps != "" {
		sb.WriteString("\n")
		sb.WriteString(steps)
	}
	if state.Thinking() && state.StatusLine != "" {
		sb.WriteString("\n")
		sb.WriteString(p.theme.StatusLine.Render(util.FitWidth(state.StatusLine, p.width-4)))
	}
	if state.Status == model.RunThinking || state.Status == model.RunDone {
		sb.WriteString("\n")
		sb.WriteString(p.bar.ViewAs(state.Progress / 100))
		sb.WriteString(fmt.Sprintf(" %3.0f%%", state.Progress))
	}
	return p.theme.Panel.Width(p.width - 2).Render(sb.String())
}

func (p *RunPanel) renderHeadline(state model.RunState, spinnerFrame string) string {
	elapsed := p.theme.Elapsed.Render(FormatElapsed(state.Elapsed))
	switch state.Status {
	case model.RunThinking:
		head := "Researching"
		if intent := state.Plan.IntentText(); intent != "" {
			head += " (" + intent + ")"
		}
		return strings.TrimSpace(spinnerFrame+" "+p.theme.PanelTitle.Render(head)) + " " + elapsed
	case model.RunDone:
		return styles.RenderSuccess("Done") + " " + elapsed
	case model.RunStopped:
		return p.theme.Stopped.Render(styles.StatusIndicators.Warning+" "+run.StoppedByUser) + " " + elapsed
	case model.RunError:
		msg := state.Error
		if msg == "" {
			msg = run.DefaultErrorMessage
		}
		return p.theme.Failed.Render(styles.StatusIndicators.Error + " " + util.FitWidth(msg, p.width-10))
	}
	return ""
}

func (p *RunPanel) renderSteps(state model.RunState) string {
	n := len(state.Plan.Steps)
	if n == 0 {
		return ""
	}
	active := run.ActiveStep(n, state.Progress)
	lines := make([]string, n)
	for i, step := range state.Plan.Steps {
		text := util.FitWidth(step, p.width-10)
		switch {
		case run.StepDone(i, n, state.Progress):
			lines[i] = p.theme.StepDone.Render(IconDone + " " + text)
		case i == active && state.Thinking():
			lines[i] = p.theme.StepActive.Render(IconActive + " " + text)
		default:
			lines[i] = p.theme.StepPending.Render(IconPending + " " + text)
		}
	}
	return strings.Join(lines, "\n")
}
