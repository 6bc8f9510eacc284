// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/components"
)

// traceRows is the height of the trace list when details are shown.
const traceRows = 8

// refresh re-lays out the screen. bottom scrolls the conversation to the end.
func (m *Model) refresh(bottom bool) {
	cur, hasCur := m.deps.Store.Current()

	var content string
	if m.focus == focusSessions {
		content = components.SessionList(m.theme, m.deps.Store.List(), cur.ID, m.cursor, m.width, m.viewport.Height)
	} else {
		var msgs []model.Message
		if hasCur {
			msgs = cur.Messages
		}
		// Markdown rendering is the expensive part; redo it only when the
		// conversation or the width changed.
		cacheKey := cur.ID + "/" + strconv.Itoa(len(msgs)) + "/" + strconv.Itoa(m.width)
		if cacheKey != m.convKey {
			m.convKey = cacheKey
			m.convCache = components.Conversation(m.theme, msgs, m.deps.Renderer, m.width)
		}
		content = m.convCache
	}

	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderBottom())
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-used, 3)
	m.viewport.SetContent(content)
	if bottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) render() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderBottom(),
	)
}

func (m Model) renderHeader() string {
	var sess *model.Session
	if cur, ok := m.deps.Store.Current(); ok {
		sess = &cur
	}
	return components.Header(m.theme, sess, m.width)
}

// renderBottom draws everything under the conversation.
func (m Model) renderBottom() string {
	var parts []string
	if panel := m.renderPanel(); panel != "" {
		parts = append(parts, panel)
	}
	if m.showDetails {
		if id := m.deps.Store.CurrentID(); id != "" {
			if s, ok := m.deps.Store.Get(id); ok {
				parts = append(parts, components.TraceView(m.theme, s.Trace, m.width, traceRows))
			}
		}
	}
	if notice := components.CorrectionNotice(m.theme, m.correction, m.width); notice != "" {
		parts = append(parts, notice)
	}
	parts = append(parts, m.renderComposer())
	parts = append(parts, m.renderStatusBar())
	return strings.Join(parts, "\n")
}

// renderPanel shows the run panel for the session the run belongs to.
// Fast runs only show it with details on.
func (m Model) renderPanel() string {
	if m.runSessionID == "" || m.runSessionID != m.deps.Store.CurrentID() {
		return ""
	}
	if m.runMode != model.ModeThorough && !m.showDetails {
		return ""
	}
	return m.panel.Render(m.deps.Controller.State(), m.spinner.View())
}

func (m Model) renderComposer() string {
	var body string
	switch m.focus {
	case focusRename:
		body = m.rename.View()
	default:
		body = m.input.View()
		if m.deps.Autocorrect != nil {
			s, _ := m.deps.Autocorrect.Suggestion()
			if hint := components.SuggestionHint(m.theme, s, m.deps.Autocorrect.Loading(), m.width-4); hint != "" {
				body += "\n" + hint
			}
		}
		if m.deps.Controller.Thinking() && m.runSessionID != m.deps.Store.CurrentID() {
			body += "\n" + m.theme.Correction.Render("A run is in progress in another session ("+m.spinner.View()+" "+
				strconv.Itoa(int(m.deps.Controller.State().Progress))+"%)")
		}
	}
	return m.theme.InputContainer.Width(m.width).Render(body)
}

func (m Model) renderStatusBar() string {
	ac := false
	if m.deps.Autocorrect != nil {
		ac = m.deps.Autocorrect.Enabled()
	}
	return components.StatusBar(m.theme, components.StatusBarInfo{
		Mode:        m.mode,
		Autocorrect: ac,
		Thinking:    m.deps.Controller.Thinking(),
		Sessions:    m.deps.Store.Len(),
		Shortcuts:   m.keys.shortcuts(m.focus),
		Notice:      m.notice,
	}, m.width)
}
